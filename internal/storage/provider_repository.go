package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"aiinfra/internal/keyvault"
	"aiinfra/internal/models"
	"aiinfra/internal/providers"
)

const providerColumns = `id, user_id, name, description, logo, source, enabled, sort,
	check_model, fetch_on_client, config, key_vaults, created_at, updated_at`

// nullsLastSort orders rows by an explicit sort, unsorted rows last, most
// recently updated first among equals. Works on both drivers.
const nullsLastSort = `CASE WHEN sort IS NULL THEN 1 ELSE 0 END, sort ASC, updated_at DESC`

// ProviderRepository handles provider database operations for one user.
// Every read and write is scoped to that user; key vaults always pass
// through the codec on their way in and out.
type ProviderRepository struct {
	db     *DB
	userID string
	codec  keyvault.Codec
	now    func() time.Time
}

// NewProviderRepository creates a new provider repository. codec must not be
// nil; use keyvault.Passthrough() explicitly for development setups.
func NewProviderRepository(db *DB, userID string, codec keyvault.Codec) *ProviderRepository {
	return &ProviderRepository{
		db:     db,
		userID: userID,
		codec:  codec,
		now:    utcNow,
	}
}

func inferProviderSource(id string) models.ProviderSource {
	if providers.IsBuiltin(id) {
		return models.ProviderSourceBuiltin
	}
	return models.ProviderSourceCustom
}

// Create inserts a new provider. New providers are always enabled.
func (r *ProviderRepository) Create(ctx context.Context, params models.CreateProviderParams) (*models.Provider, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidProvider)
	}

	sealed, err := keyvault.Seal(ctx, r.codec, params.KeyVaults)
	if err != nil {
		return nil, err
	}

	source := params.Source
	if source == "" {
		source = inferProviderSource(params.ID)
	}

	now := r.now()
	provider := &models.Provider{
		ID:            params.ID,
		UserID:        r.userID,
		Name:          params.Name,
		Description:   params.Description,
		Logo:          params.Logo,
		Source:        source,
		Enabled:       true,
		Sort:          params.Sort,
		CheckModel:    params.CheckModel,
		FetchOnClient: params.FetchOnClient,
		Config:        params.Config,
		KeyVaults:     sealed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		INSERT INTO ai_providers (id, user_id, name, description, logo, source, enabled, sort,
		                          check_model, fetch_on_client, config, key_vaults, created_at, updated_at)
		VALUES (:id, :user_id, :name, :description, :logo, :source, :enabled, :sort,
		        :check_model, :fetch_on_client, :config, :key_vaults, :created_at, :updated_at)
	`

	if _, err := r.db.conn.NamedExecContext(ctx, query, provider); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", ErrProviderExists, err)
		}
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return provider, nil
}

// Delete removes one provider. Deleting a missing provider is not an error.
func (r *ProviderRepository) Delete(ctx context.Context, id string) (int64, error) {
	query := r.db.conn.Rebind("DELETE FROM ai_providers WHERE id = ? AND user_id = ?")
	result, err := r.db.conn.ExecContext(ctx, query, id, r.userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete provider: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// DeleteAll removes every provider of the user.
func (r *ProviderRepository) DeleteAll(ctx context.Context) (int64, error) {
	query := r.db.conn.Rebind("DELETE FROM ai_providers WHERE user_id = ?")
	result, err := r.db.conn.ExecContext(ctx, query, r.userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete providers: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// Query returns all providers of the user, most recently updated first.
func (r *ProviderRepository) Query(ctx context.Context) ([]models.Provider, error) {
	query := r.db.conn.Rebind(`
		SELECT ` + providerColumns + `
		FROM ai_providers
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`)

	providerList := []models.Provider{}
	if err := r.db.conn.SelectContext(ctx, &providerList, query, r.userID); err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	return providerList, nil
}

// GetListView returns the list projection in display order.
func (r *ProviderRepository) GetListView(ctx context.Context) ([]models.ProviderListItem, error) {
	query := r.db.conn.Rebind(`
		SELECT id, name, description, logo, enabled, source
		FROM ai_providers
		WHERE user_id = ?
		ORDER BY ` + nullsLastSort)

	items := []models.ProviderListItem{}
	if err := r.db.conn.SelectContext(ctx, &items, query, r.userID); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return items, nil
}

// FindByID returns the provider row, or nil when it does not exist.
func (r *ProviderRepository) FindByID(ctx context.Context, id string) (*models.Provider, error) {
	query := r.db.conn.Rebind(`
		SELECT ` + providerColumns + `
		FROM ai_providers
		WHERE id = ? AND user_id = ?
	`)

	var provider models.Provider
	err := r.db.conn.GetContext(ctx, &provider, query, id, r.userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &provider, nil
}

// setClause collects "column = ?" assignments for partial updates.
type setClause struct {
	columns []string
	args    []any
}

func (s *setClause) add(column string, value any) {
	s.columns = append(s.columns, column+" = ?")
	s.args = append(s.args, value)
}

func (r *ProviderRepository) applyUpdate(ctx context.Context, id string, set *setClause) error {
	set.add("updated_at", r.now())

	query := r.db.conn.Rebind(fmt.Sprintf(
		"UPDATE ai_providers SET %s WHERE id = ? AND user_id = ?",
		strings.Join(set.columns, ", "),
	))
	args := append(set.args, id, r.userID)

	if _, err := r.db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	return nil
}

// Update patches the non-nil fields and always stamps updated_at.
func (r *ProviderRepository) Update(ctx context.Context, id string, params models.UpdateProviderParams) error {
	set := &setClause{}
	if params.Name != nil {
		set.add("name", *params.Name)
	}
	if params.Description != nil {
		set.add("description", *params.Description)
	}
	if params.Logo != nil {
		set.add("logo", *params.Logo)
	}
	if params.Enabled != nil {
		set.add("enabled", *params.Enabled)
	}
	if params.Sort != nil {
		set.add("sort", *params.Sort)
	}
	if params.Config != nil {
		set.add("config", params.Config)
	}

	return r.applyUpdate(ctx, id, set)
}

// UpdateConfig patches the configuration fields. Key vaults, when present,
// are sealed again before they are written.
func (r *ProviderRepository) UpdateConfig(ctx context.Context, id string, params models.UpdateProviderConfigParams) error {
	set := &setClause{}
	if params.Config != nil {
		set.add("config", params.Config)
	}
	if params.CheckModel != nil {
		set.add("check_model", *params.CheckModel)
	}
	if params.FetchOnClient != nil {
		set.add("fetch_on_client", *params.FetchOnClient)
	}
	if params.KeyVaults != nil {
		sealed, err := keyvault.Seal(ctx, r.codec, params.KeyVaults)
		if err != nil {
			return err
		}
		set.add("key_vaults", sealed)
	}

	return r.applyUpdate(ctx, id, set)
}

// ToggleEnabled sets the enabled flag, inserting the row first when the
// provider has never been persisted. The source of a new row is inferred
// from the builtin identity set.
func (r *ProviderRepository) ToggleEnabled(ctx context.Context, id string, enabled bool) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProvider)
	}

	now := r.now()
	query := r.db.conn.Rebind(`
		INSERT INTO ai_providers (id, user_id, source, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, user_id) DO UPDATE SET enabled = excluded.enabled
	`)

	if _, err := r.db.conn.ExecContext(ctx, query, id, r.userID, inferProviderSource(id), enabled, now, now); err != nil {
		return fmt.Errorf("failed to toggle provider: %w", err)
	}
	return nil
}

// UpdateOrder applies every sort entry in one transaction. Missing rows are
// inserted (enabled, source inferred) so the order is fully stored. Either
// all entries apply or none do.
func (r *ProviderRepository) UpdateOrder(ctx context.Context, sortMap []models.SortMapEntry) error {
	if len(sortMap) == 0 {
		return nil
	}

	now := r.now()
	query := r.db.conn.Rebind(`
		INSERT INTO ai_providers (id, user_id, source, enabled, sort, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, user_id) DO UPDATE SET sort = excluded.sort, updated_at = excluded.updated_at
	`)

	argSets := make([][]any, 0, len(sortMap))
	for _, entry := range sortMap {
		argSets = append(argSets, []any{
			entry.ID, r.userID, inferProviderSource(entry.ID), true, entry.Sort, now, now,
		})
	}

	err := r.db.withTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return execConcurrently(ctx, tx, query, argSets)
	})
	if err != nil {
		return fmt.Errorf("failed to update provider order: %w", err)
	}
	return nil
}

// GetDetailByID returns the provider with its key vaults opened. A builtin
// provider that has no row yet is inserted on first access; any other
// missing id yields ErrProviderNotFound.
func (r *ProviderRepository) GetDetailByID(ctx context.Context, id string) (*models.ProviderDetail, error) {
	provider, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if provider == nil {
		if !providers.IsBuiltin(id) {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
		}

		if err := r.insertBuiltin(ctx, id); err != nil {
			return nil, err
		}

		provider, err = r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
		}
	}

	vaults, err := keyvault.Open(ctx, r.codec, provider.KeyVaults)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", id, err)
	}

	return &models.ProviderDetail{
		ID:            provider.ID,
		Name:          provider.Name,
		Source:        provider.Source,
		Enabled:       provider.Enabled,
		CheckModel:    provider.CheckModel,
		FetchOnClient: provider.FetchOnClient,
		Config:        provider.Config,
		KeyVaults:     vaults,
	}, nil
}

// insertBuiltin seeds a bare builtin row. A concurrent seed of the same row
// is absorbed by the conflict clause.
func (r *ProviderRepository) insertBuiltin(ctx context.Context, id string) error {
	now := r.now()
	query := r.db.conn.Rebind(`
		INSERT INTO ai_providers (id, user_id, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id, user_id) DO NOTHING
	`)

	if _, err := r.db.conn.ExecContext(ctx, query, id, r.userID, models.ProviderSourceBuiltin, now, now); err != nil {
		return fmt.Errorf("failed to initialize builtin provider: %w", err)
	}
	return nil
}

// GetAllKeyVaults returns the opened key vaults of every provider of the user.
func (r *ProviderRepository) GetAllKeyVaults(ctx context.Context) (map[string]models.KeyVaults, error) {
	query := r.db.conn.Rebind("SELECT id, key_vaults FROM ai_providers WHERE user_id = ?")

	var rows []struct {
		ID        string  `db:"id"`
		KeyVaults *string `db:"key_vaults"`
	}
	if err := r.db.conn.SelectContext(ctx, &rows, query, r.userID); err != nil {
		return nil, fmt.Errorf("failed to get key vaults: %w", err)
	}

	result := make(map[string]models.KeyVaults, len(rows))
	for _, row := range rows {
		vaults, err := keyvault.Open(ctx, r.codec, row.KeyVaults)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", row.ID, err)
		}
		result[row.ID] = vaults
	}
	return result, nil
}
