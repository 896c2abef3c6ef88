package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiinfra/internal/models"
)

func newTestModelRepo(t *testing.T, db *DB, userID string) *ModelRepository {
	t.Helper()
	repo := db.NewModelRepository(userID)
	repo.now = steppingClock()
	return repo
}

func listIDs(items []models.ProviderModelListItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestModelRepository_BatchUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := newTestModelRepo(t, db, "user-1")
	ctx := context.Background()

	err := repo.BatchUpsert(ctx, "ollama", []models.ProviderModelListItem{
		{ID: "llama3", Source: models.ModelSourceRemote, Type: models.ModelTypeChat,
			Abilities: &models.ModelAbilities{FunctionCall: boolPtr(true)}},
		{ID: "qwen2", Source: models.ModelSourceRemote, Type: models.ModelTypeChat, DisplayName: strPtr("Qwen 2")},
	})
	require.NoError(t, err)

	list, err := repo.GetProviderModelList(ctx, "ollama")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []string{"llama3", "qwen2"}, listIDs(list))
	for _, m := range list {
		assert.Equal(t, models.ModelSourceRemote, m.Source)
		assert.False(t, m.Enabled)
	}

	// Enable one model, then rediscover it with a new display name.
	require.NoError(t, repo.ToggleEnabled(ctx, models.ToggleModelParams{ID: "llama3", ProviderID: "ollama", Enabled: true}))
	err = repo.BatchUpsert(ctx, "ollama", []models.ProviderModelListItem{
		{ID: "llama3", Source: models.ModelSourceRemote, Type: models.ModelTypeChat, DisplayName: strPtr("Llama 3")},
	})
	require.NoError(t, err)

	m, err := repo.FindByID(ctx, "ollama", "llama3")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.Enabled, "rediscovery keeps the user's enabled flag")
	assert.Equal(t, "Llama 3", *m.DisplayName)
	assert.Nil(t, m.Abilities, "descriptive fields are overwritten")

	// Other providers and users are unaffected.
	other, err := repo.GetProviderModelList(ctx, "openai")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, repo.BatchUpsert(ctx, "ollama", nil))
}

func TestModelRepository_BatchUpsertRejectsEmptyID(t *testing.T) {
	db := newTestDB(t)
	repo := newTestModelRepo(t, db, "user-1")

	err := repo.BatchUpsert(context.Background(), "ollama", []models.ProviderModelListItem{{ID: ""}})
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestModelRepository_ClearRemoteModels(t *testing.T) {
	db := newTestDB(t)
	repo := newTestModelRepo(t, db, "user-1")
	ctx := context.Background()

	require.NoError(t, repo.BatchUpsert(ctx, "openai", []models.ProviderModelListItem{
		{ID: "gpt-remote-1", Source: models.ModelSourceRemote},
		{ID: "gpt-remote-2", Source: models.ModelSourceRemote},
	}))
	_, err := repo.Create(ctx, "openai", models.CreateAiModelParams{ID: "my-finetune"})
	require.NoError(t, err)
	require.NoError(t, repo.ToggleEnabled(ctx, models.ToggleModelParams{ID: "gpt-4o", ProviderID: "openai", Enabled: true}))

	n, err := repo.ClearRemoteModels(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := repo.GetProviderModelList(ctx, "openai")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"my-finetune", "gpt-4o"}, listIDs(list))
}

func TestModelRepository_CreateAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := newTestModelRepo(t, db, "user-1")
	ctx := context.Background()

	created, err := repo.Create(ctx, "openai", models.CreateAiModelParams{
		ID:           "text-embedding-3-large",
		Type:         models.ModelTypeEmbedding,
		MaxDimension: intPtr(3072),
		Abilities:    &models.ModelAbilities{Vision: boolPtr(true)},
		Pricing:      &models.ModelPricing{Input: new(float64)},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModelSourceCustom, created.Source)
	assert.True(t, created.Enabled)
	assert.Nil(t, created.Abilities)

	found, err := repo.FindByID(ctx, "openai", "text-embedding-3-large")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, models.ModelTypeEmbedding, found.Type)
	require.NotNil(t, found.MaxDimension)
	assert.Equal(t, 3072, *found.MaxDimension)
	require.NotNil(t, found.Pricing)
	assert.Equal(t, models.CurrencyUSD, found.Pricing.Currency)

	_, err = repo.Create(ctx, "openai", models.CreateAiModelParams{ID: "text-embedding-3-large"})
	assert.ErrorIs(t, err, ErrModelExists)

	_, err = repo.Create(ctx, "openai", models.CreateAiModelParams{ID: "x", Type: "hologram"})
	assert.ErrorIs(t, err, ErrInvalidModel)

	n, err := repo.Delete(ctx, "openai", "text-embedding-3-large")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Delete(ctx, "openai", "text-embedding-3-large")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	missing, err := repo.FindByID(ctx, "openai", "text-embedding-3-large")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestModelRepository_ToggleEnabled(t *testing.T) {
	db := newTestDB(t)
	repo := newTestModelRepo(t, db, "user-1")
	ctx := context.Background()

	custom := models.ModelSourceCustom
	require.NoError(t, repo.ToggleEnabled(ctx, models.ToggleModelParams{ID: "m1", ProviderID: "p", Enabled: true, Source: &custom}))
	require.NoError(t, repo.ToggleEnabled(ctx, models.ToggleModelParams{ID: "m1", ProviderID: "p", Enabled: false}))

	m, err := repo.FindByID(ctx, "p", "m1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.False(t, m.Enabled)
	assert.Equal(t, models.ModelSourceCustom, m.Source, "source is fixed at insert time")

	err = repo.ToggleEnabled(ctx, models.ToggleModelParams{ID: "m1"})
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestModelRepository_UpdateOrder(t *testing.T) {
	db := newTestDB(t)
	repo := newTestModelRepo(t, db, "user-1")
	ctx := context.Background()

	require.NoError(t, repo.BatchUpsert(ctx, "openai", []models.ProviderModelListItem{
		{ID: "a", Source: models.ModelSourceRemote},
		{ID: "b", Source: models.ModelSourceRemote},
		{ID: "c", Source: models.ModelSourceRemote},
	}))

	require.NoError(t, repo.UpdateOrder(ctx, "openai", []models.SortMapEntry{{ID: "c", Sort: 0}, {ID: "a", Sort: 1}, {ID: "b", Sort: 2}}))

	list, err := repo.GetProviderModelList(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, listIDs(list))

	err = repo.UpdateOrder(ctx, "openai", []models.SortMapEntry{{ID: "a", Sort: 5}, {ID: "", Sort: 6}})
	require.Error(t, err)

	list, err = repo.GetProviderModelList(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, listIDs(list), "failed reorder leaves the order unchanged")
}

func TestModelRepository_DeleteAll(t *testing.T) {
	db := newTestDB(t)
	repo := newTestModelRepo(t, db, "user-1")
	other := newTestModelRepo(t, db, "user-2")
	ctx := context.Background()

	require.NoError(t, repo.BatchUpsert(ctx, "openai", []models.ProviderModelListItem{{ID: "a"}}))
	require.NoError(t, other.BatchUpsert(ctx, "openai", []models.ProviderModelListItem{{ID: "a"}}))

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := other.GetProviderModelList(ctx, "openai")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
