package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiinfra/internal/models"
	"aiinfra/internal/providers"
	"aiinfra/internal/utils"
)

func modelIDs(items []models.ProviderModelListItem) []string {
	ids := make([]string, 0, len(items))
	for _, m := range items {
		ids = append(ids, m.ID)
	}
	return ids
}

func newTestDiscoverer() *providers.HTTPDiscoverer {
	return providers.NewHTTPDiscoverer(nil, providers.DiscoveryConfig{Timeout: 5 * time.Second})
}

func TestModelLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	const user = "user-1"
	base := "/api/providers/openrouter/models"

	w := s.do(t, http.MethodGet, base, nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())

	w = s.do(t, http.MethodPost, base, models.CreateAiModelParams{
		ID:          "anthropic/claude-3.5-sonnet",
		DisplayName: utils.StringPtr("Claude 3.5 Sonnet"),
	}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.AiModel](t, w)
	assert.Equal(t, models.ModelSourceCustom, created.Source)
	assert.True(t, created.Enabled)

	w = s.do(t, http.MethodPost, base, models.CreateAiModelParams{ID: "anthropic/claude-3.5-sonnet"}, user)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, base, models.CreateAiModelParams{ID: "x", Type: "hologram"}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, base, BatchUpdateRequest{Models: []models.ProviderModelListItem{
		{ID: "meta/llama-3", Source: models.ModelSourceRemote},
		{ID: "google/gemini", Source: models.ModelSourceBuiltin, Enabled: true},
	}}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.ElementsMatch(t, []string{"anthropic/claude-3.5-sonnet", "google/gemini", "meta/llama-3"}, modelIDs(decode[[]models.ProviderModelListItem](t, w)))

	w = s.do(t, http.MethodPut, base, BatchUpdateRequest{Models: []models.ProviderModelListItem{{ID: ""}}}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, base+"/enabled", ToggleModelRequest{ID: "meta/llama-3", Enabled: utils.BoolPtr(true)}, user)
	require.Equal(t, http.StatusOK, w.Code)
	for _, m := range decode[[]models.ProviderModelListItem](t, w) {
		if m.ID == "meta/llama-3" {
			assert.True(t, m.Enabled)
			assert.Equal(t, models.ModelSourceRemote, m.Source)
		}
	}

	w = s.do(t, http.MethodPut, base+"/enabled", ToggleModelRequest{ID: "meta/llama-3"}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, base+"/order", SortRequest{SortMap: []models.SortMapEntry{
		{ID: "meta/llama-3", Sort: 0},
		{ID: "google/gemini", Sort: 1},
		{ID: "anthropic/claude-3.5-sonnet", Sort: 2},
	}}, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"meta/llama-3", "google/gemini", "anthropic/claude-3.5-sonnet"}, modelIDs(decode[[]models.ProviderModelListItem](t, w)))

	w = s.do(t, http.MethodDelete, base, nil, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, base+"?source=remote", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"google/gemini", "anthropic/claude-3.5-sonnet"}, modelIDs(decode[[]models.ProviderModelListItem](t, w)))

	w = s.do(t, http.MethodDelete, base+"/anthropic/claude-3.5-sonnet", nil, user)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, base, nil, user)
	assert.Equal(t, []string{"google/gemini"}, modelIDs(decode[[]models.ProviderModelListItem](t, w)))
}

func TestFetchModels(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"llama3","name":"Llama 3"},{"id":"qwen2"}]}`))
	}))
	defer vendor.Close()

	s := newTestServer(t, newTestDiscoverer())
	const user = "user-1"

	w := s.do(t, http.MethodPut, "/api/providers/ollama/config", models.UpdateProviderConfigParams{
		KeyVaults: models.KeyVaults{models.KeyVaultBaseURL: vendor.URL},
	}, user)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/providers/ollama/models/fetch", nil, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[[]models.ProviderModelListItem](t, w)
	require.Equal(t, []string{"llama3", "qwen2"}, modelIDs(list))
	for _, m := range list {
		assert.Equal(t, models.ModelSourceRemote, m.Source)
		assert.False(t, m.Enabled)
	}
	assert.Equal(t, "Llama 3", utils.StringPtrValue(list[0].DisplayName))
}

func TestFetchModels_EmptyCatalogKeepsList(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer vendor.Close()

	s := newTestServer(t, newTestDiscoverer())
	const user = "user-1"

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/providers/ollama/config", models.UpdateProviderConfigParams{
		KeyVaults: models.KeyVaults{models.KeyVaultBaseURL: vendor.URL},
	}, user).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/providers/ollama/models", models.CreateAiModelParams{ID: "mine"}, user).Code)

	w := s.do(t, http.MethodPost, "/api/providers/ollama/models/fetch", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"mine"}, modelIDs(decode[[]models.ProviderModelListItem](t, w)))
}

func TestFetchModels_Errors(t *testing.T) {
	t.Run("no discoverer", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodPost, "/api/providers/ollama/models/fetch", nil, "user-1")
		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})

	t.Run("vendor failure", func(t *testing.T) {
		vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusInternalServerError)
		}))
		defer vendor.Close()

		s := newTestServer(t, newTestDiscoverer())
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/providers/openai/config", models.UpdateProviderConfigParams{
			KeyVaults: models.KeyVaults{models.KeyVaultBaseURL: vendor.URL, models.KeyVaultAPIKey: "sk"},
		}, "user-1").Code)

		w := s.do(t, http.MethodPost, "/api/providers/openai/models/fetch", nil, "user-1")
		assert.Equal(t, http.StatusBadGateway, w.Code)

		w = s.do(t, http.MethodGet, "/api/providers/openai/models", nil, "user-1")
		assert.Equal(t, "[]\n", w.Body.String())
	})

	t.Run("no base url", func(t *testing.T) {
		s := newTestServer(t, newTestDiscoverer())
		w := s.do(t, http.MethodPost, "/api/providers/azure/models/fetch", nil, "user-1")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unknown provider", func(t *testing.T) {
		s := newTestServer(t, newTestDiscoverer())
		w := s.do(t, http.MethodPost, "/api/providers/nope/models/fetch", nil, "user-1")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
