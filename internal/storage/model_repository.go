package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"aiinfra/internal/models"
)

const modelColumns = `id, provider_id, user_id, display_name, description, organization, type, source,
	enabled, sort, context_window_tokens, max_output, max_dimension, deployment_name,
	abilities, pricing, resolutions, released_at, legacy, created_at, updated_at`

// ModelRepository handles per-provider model records for one user.
type ModelRepository struct {
	db     *DB
	userID string
	now    func() time.Time
}

// NewModelRepository creates a new model repository
func NewModelRepository(db *DB, userID string) *ModelRepository {
	return &ModelRepository{
		db:     db,
		userID: userID,
		now:    utcNow,
	}
}

// GetProviderModelList returns the models of a provider in display order.
func (r *ModelRepository) GetProviderModelList(ctx context.Context, providerID string) ([]models.ProviderModelListItem, error) {
	query := r.db.conn.Rebind(`
		SELECT id, display_name, description, type, source, enabled, abilities,
		       context_window_tokens, pricing, released_at
		FROM ai_models
		WHERE user_id = ? AND provider_id = ?
		ORDER BY ` + nullsLastSort + `, id ASC`)

	items := []models.ProviderModelListItem{}
	if err := r.db.conn.SelectContext(ctx, &items, query, r.userID, providerID); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return items, nil
}

// FindByID returns a model, or nil when it does not exist.
func (r *ModelRepository) FindByID(ctx context.Context, providerID, id string) (*models.AiModel, error) {
	query := r.db.conn.Rebind(`
		SELECT ` + modelColumns + `
		FROM ai_models
		WHERE id = ? AND provider_id = ? AND user_id = ?
	`)

	var model models.AiModel
	if err := r.db.conn.GetContext(ctx, &model, query, id, providerID, r.userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return &model, nil
}

// Create inserts a user-curated model. Custom models start enabled.
func (r *ModelRepository) Create(ctx context.Context, providerID string, params models.CreateAiModelParams) (*models.AiModel, error) {
	if params.ID == "" || providerID == "" {
		return nil, fmt.Errorf("%w: id and provider id are required", ErrInvalidModel)
	}
	if params.Type != "" && !params.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidModel, params.Type)
	}

	now := r.now()
	model := &models.AiModel{
		ID:                  params.ID,
		ProviderID:          providerID,
		UserID:              r.userID,
		DisplayName:         params.DisplayName,
		Description:         params.Description,
		Type:                params.Type,
		Source:              models.ModelSourceCustom,
		Enabled:             true,
		ContextWindowTokens: params.ContextWindowTokens,
		MaxOutput:           params.MaxOutput,
		MaxDimension:        params.MaxDimension,
		DeploymentName:      params.DeploymentName,
		Abilities:           params.Abilities,
		Pricing:             params.Pricing,
		Resolutions:         params.Resolutions,
		ReleasedAt:          params.ReleasedAt,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	model.Normalize()

	query := `
		INSERT INTO ai_models (` + modelColumns + `)
		VALUES (:id, :provider_id, :user_id, :display_name, :description, :organization, :type, :source,
		        :enabled, :sort, :context_window_tokens, :max_output, :max_dimension, :deployment_name,
		        :abilities, :pricing, :resolutions, :released_at, :legacy, :created_at, :updated_at)
	`
	if _, err := r.db.conn.NamedExecContext(ctx, query, model); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", ErrModelExists, err)
		}
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return model, nil
}

// Delete removes one model. Missing models are not an error.
func (r *ModelRepository) Delete(ctx context.Context, providerID, id string) (int64, error) {
	query := r.db.conn.Rebind("DELETE FROM ai_models WHERE id = ? AND provider_id = ? AND user_id = ?")
	return r.exec(ctx, "delete model", query, id, providerID, r.userID)
}

// ClearRemoteModels deletes the discovered models of a provider.
func (r *ModelRepository) ClearRemoteModels(ctx context.Context, providerID string) (int64, error) {
	query := r.db.conn.Rebind("DELETE FROM ai_models WHERE provider_id = ? AND user_id = ? AND source = ?")
	return r.exec(ctx, "clear remote models", query, providerID, r.userID, models.ModelSourceRemote)
}

// DeleteAll removes every model of the user.
func (r *ModelRepository) DeleteAll(ctx context.Context) (int64, error) {
	query := r.db.conn.Rebind("DELETE FROM ai_models WHERE user_id = ?")
	return r.exec(ctx, "delete models", query, r.userID)
}

func (r *ModelRepository) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	result, err := r.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// BatchUpsert writes a list of models under providerID in one transaction,
// keyed by model id. Existing rows get their descriptive fields refreshed
// while enabled, sort and source stay as the user left them.
func (r *ModelRepository) BatchUpsert(ctx context.Context, providerID string, items []models.ProviderModelListItem) error {
	if len(items) == 0 {
		return nil
	}

	query := r.db.conn.Rebind(`
		INSERT INTO ai_models (id, provider_id, user_id, display_name, description, type, source,
		                       enabled, abilities, context_window_tokens, pricing, released_at,
		                       created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, provider_id, user_id) DO UPDATE SET
			display_name = excluded.display_name,
			description = excluded.description,
			type = excluded.type,
			abilities = excluded.abilities,
			context_window_tokens = excluded.context_window_tokens,
			pricing = excluded.pricing,
			released_at = excluded.released_at,
			updated_at = excluded.updated_at
	`)

	now := r.now()
	argSets := make([][]any, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: id is required", ErrInvalidModel)
		}
		m := item.ToModel(r.userID, providerID)
		argSets = append(argSets, []any{
			m.ID, m.ProviderID, m.UserID, m.DisplayName, m.Description, m.Type, m.Source,
			m.Enabled, m.Abilities, m.ContextWindowTokens, m.Pricing, m.ReleasedAt, now, now,
		})
	}

	err := r.db.withTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return execConcurrently(ctx, tx, query, argSets)
	})
	if err != nil {
		return fmt.Errorf("failed to batch update models: %w", err)
	}
	return nil
}

// ToggleEnabled sets the enabled flag of one model, inserting it when it has
// no row yet. Without an explicit source a new row is treated as builtin.
func (r *ModelRepository) ToggleEnabled(ctx context.Context, params models.ToggleModelParams) error {
	if params.ID == "" || params.ProviderID == "" {
		return fmt.Errorf("%w: id and provider id are required", ErrInvalidModel)
	}

	source := models.ModelSourceBuiltin
	if params.Source != nil {
		source = *params.Source
	}

	now := r.now()
	query := r.db.conn.Rebind(`
		INSERT INTO ai_models (id, provider_id, user_id, type, source, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, provider_id, user_id) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`)

	_, err := r.db.conn.ExecContext(ctx, query,
		params.ID, params.ProviderID, r.userID, models.ModelTypeChat, source, params.Enabled, now, now)
	if err != nil {
		return fmt.Errorf("failed to toggle model: %w", err)
	}
	return nil
}

// UpdateOrder applies sort values to the models of a provider in one
// transaction, inserting rows that do not exist yet.
func (r *ModelRepository) UpdateOrder(ctx context.Context, providerID string, sortMap []models.SortMapEntry) error {
	if len(sortMap) == 0 {
		return nil
	}

	now := r.now()
	query := r.db.conn.Rebind(`
		INSERT INTO ai_models (id, provider_id, user_id, type, source, enabled, sort, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, provider_id, user_id) DO UPDATE SET
			sort = excluded.sort,
			updated_at = excluded.updated_at
	`)

	argSets := make([][]any, 0, len(sortMap))
	for _, entry := range sortMap {
		argSets = append(argSets, []any{
			entry.ID, providerID, r.userID, models.ModelTypeChat, models.ModelSourceBuiltin, true, entry.Sort, now, now,
		})
	}

	err := r.db.withTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return execConcurrently(ctx, tx, query, argSets)
	})
	if err != nil {
		return fmt.Errorf("failed to update model order: %w", err)
	}
	return nil
}
