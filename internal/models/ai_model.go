package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ModelType determines which optional fields of a model are meaningful.
type ModelType string

const (
	ModelTypeChat       ModelType = "chat"
	ModelTypeEmbedding  ModelType = "embedding"
	ModelTypeTTS        ModelType = "tts"
	ModelTypeSTT        ModelType = "stt"
	ModelTypeImage      ModelType = "image"
	ModelTypeText2Video ModelType = "text2video"
	ModelTypeText2Music ModelType = "text2music"
	ModelTypeRealtime   ModelType = "realtime"
)

// Valid reports whether t is one of the known model types.
func (t ModelType) Valid() bool {
	switch t {
	case ModelTypeChat, ModelTypeEmbedding, ModelTypeTTS, ModelTypeSTT,
		ModelTypeImage, ModelTypeText2Video, ModelTypeText2Music, ModelTypeRealtime:
		return true
	}
	return false
}

// HasAbilities reports whether abilities apply to models of this type.
func (t ModelType) HasAbilities() bool {
	return t == ModelTypeChat || t == ModelTypeRealtime
}

// ModelSource tells where a model record came from.
type ModelSource string

const (
	ModelSourceBuiltin ModelSource = "builtin"
	// ModelSourceRemote models were discovered through the vendor's model listing API.
	ModelSourceRemote ModelSource = "remote"
	ModelSourceCustom ModelSource = "custom"
)

// Price currencies.
const (
	CurrencyUSD = "USD"
	CurrencyCNY = "CNY"
)

// ModelAbilities are capability flags of chat and realtime models.
type ModelAbilities struct {
	Files        *bool `json:"files,omitempty"`
	FunctionCall *bool `json:"functionCall,omitempty"`
	Vision       *bool `json:"vision,omitempty"`
}

func (a ModelAbilities) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *ModelAbilities) Scan(value any) error {
	return scanJSON(value, a, func() { *a = ModelAbilities{} })
}

// ModelPricing holds per-unit prices. Which fields apply depends on the model
// type: chat models use the token prices, image models use Resolutions.
type ModelPricing struct {
	Currency         string             `json:"currency,omitempty"`
	Input            *float64           `json:"input,omitempty"`
	Output           *float64           `json:"output,omitempty"`
	CachedInput      *float64           `json:"cachedInput,omitempty"`
	WriteCacheInput  *float64           `json:"writeCacheInput,omitempty"`
	AudioInput       *float64           `json:"audioInput,omitempty"`
	AudioOutput      *float64           `json:"audioOutput,omitempty"`
	CachedAudioInput *float64           `json:"cachedAudioInput,omitempty"`
	Resolutions      map[string]float64 `json:"resolutions,omitempty"`
}

func (p ModelPricing) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *ModelPricing) Scan(value any) error {
	return scanJSON(value, p, func() { *p = ModelPricing{} })
}

// AiModel is one invokable model exposed by a provider (ai_models table).
type AiModel struct {
	ID                  string          `db:"id" json:"id"`
	ProviderID          string          `db:"provider_id" json:"providerId"`
	UserID              string          `db:"user_id" json:"userId"`
	DisplayName         *string         `db:"display_name" json:"displayName,omitempty"`
	Description         *string         `db:"description" json:"description,omitempty"`
	Organization        *string         `db:"organization" json:"organization,omitempty"`
	Type                ModelType       `db:"type" json:"type"`
	Source              ModelSource     `db:"source" json:"source"`
	Enabled             bool            `db:"enabled" json:"enabled"`
	Sort                *int            `db:"sort" json:"sort,omitempty"`
	ContextWindowTokens *int            `db:"context_window_tokens" json:"contextWindowTokens,omitempty"`
	MaxOutput           *int            `db:"max_output" json:"maxOutput,omitempty"`
	MaxDimension        *int            `db:"max_dimension" json:"maxDimension,omitempty"`
	DeploymentName      *string         `db:"deployment_name" json:"deploymentName,omitempty"`
	Abilities           *ModelAbilities `db:"abilities" json:"abilities,omitempty"`
	Pricing             *ModelPricing   `db:"pricing" json:"pricing,omitempty"`
	Resolutions         StringList      `db:"resolutions" json:"resolutions,omitempty"`
	ReleasedAt          *string         `db:"released_at" json:"releasedAt,omitempty"`
	Legacy              bool            `db:"legacy" json:"legacy"`
	CreatedAt           time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updatedAt"`
}

// Normalize drops fields that do not apply to the model's type and fills
// defaults.
func (m *AiModel) Normalize() {
	if m.Type == "" {
		m.Type = ModelTypeChat
	}
	if m.Source == "" {
		m.Source = ModelSourceCustom
	}
	if !m.Type.HasAbilities() {
		m.Abilities = nil
		m.MaxOutput = nil
		m.DeploymentName = nil
	}
	if m.Type != ModelTypeEmbedding {
		m.MaxDimension = nil
	}
	if m.Type != ModelTypeImage {
		m.Resolutions = nil
		if m.Pricing != nil {
			m.Pricing.Resolutions = nil
		}
	}
	if m.Pricing != nil && m.Pricing.Currency == "" {
		m.Pricing.Currency = CurrencyUSD
	}
}

// ProviderModelListItem is the list projection of a model, and also the shape
// accepted by batch updates.
type ProviderModelListItem struct {
	ID                  string          `db:"id" json:"id"`
	DisplayName         *string         `db:"display_name" json:"displayName,omitempty"`
	Description         *string         `db:"description" json:"description,omitempty"`
	Type                ModelType       `db:"type" json:"type"`
	Source              ModelSource     `db:"source" json:"source,omitempty"`
	Enabled             bool            `db:"enabled" json:"enabled"`
	Abilities           *ModelAbilities `db:"abilities" json:"abilities,omitempty"`
	ContextWindowTokens *int            `db:"context_window_tokens" json:"contextWindowTokens,omitempty"`
	Pricing             *ModelPricing   `db:"pricing" json:"pricing,omitempty"`
	ReleasedAt          *string         `db:"released_at" json:"releasedAt,omitempty"`
}

// ToModel expands a list item into a full record owned by userID under providerID.
func (i ProviderModelListItem) ToModel(userID, providerID string) AiModel {
	m := AiModel{
		ID:                  i.ID,
		ProviderID:          providerID,
		UserID:              userID,
		DisplayName:         i.DisplayName,
		Description:         i.Description,
		Type:                i.Type,
		Source:              i.Source,
		Enabled:             i.Enabled,
		Abilities:           i.Abilities,
		ContextWindowTokens: i.ContextWindowTokens,
		Pricing:             i.Pricing,
		ReleasedAt:          i.ReleasedAt,
	}
	m.Normalize()
	return m
}

// ToggleModelParams enables or disables one model of a provider. Source is
// used when the model has no row yet.
type ToggleModelParams struct {
	ID         string       `json:"id"`
	ProviderID string       `json:"providerId,omitempty"`
	Enabled    bool         `json:"enabled"`
	Source     *ModelSource `json:"source,omitempty"`
}

// CreateAiModelParams defines a user-curated model.
type CreateAiModelParams struct {
	ID                  string          `json:"id"`
	DisplayName         *string         `json:"displayName,omitempty"`
	Description         *string         `json:"description,omitempty"`
	Type                ModelType       `json:"type,omitempty"`
	ContextWindowTokens *int            `json:"contextWindowTokens,omitempty"`
	MaxOutput           *int            `json:"maxOutput,omitempty"`
	MaxDimension        *int            `json:"maxDimension,omitempty"`
	DeploymentName      *string         `json:"deploymentName,omitempty"`
	Abilities           *ModelAbilities `json:"abilities,omitempty"`
	Pricing             *ModelPricing   `json:"pricing,omitempty"`
	Resolutions         []string        `json:"resolutions,omitempty"`
	ReleasedAt          *string         `json:"releasedAt,omitempty"`
}
