package models

import (
	"time"
)

// ProviderSource tells whether a provider comes from the builtin catalog or
// was defined by the user.
type ProviderSource string

const (
	ProviderSourceBuiltin ProviderSource = "builtin"
	ProviderSourceCustom  ProviderSource = "custom"
)

// Provider is one configured LLM vendor connection of a user (ai_providers table).
type Provider struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"userId"`
	Name          *string        `db:"name" json:"name,omitempty"`
	Description   *string        `db:"description" json:"description,omitempty"`
	Logo          *string        `db:"logo" json:"logo,omitempty"`
	Source        ProviderSource `db:"source" json:"source"`
	Enabled       bool           `db:"enabled" json:"enabled"`
	Sort          *int           `db:"sort" json:"sort,omitempty"`
	CheckModel    *string        `db:"check_model" json:"checkModel,omitempty"`
	FetchOnClient *bool          `db:"fetch_on_client" json:"fetchOnClient,omitempty"`
	Config        JSONB          `db:"config" json:"config,omitempty"`
	// KeyVaults holds the sealed secret bundle exactly as stored.
	KeyVaults *string   `db:"key_vaults" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ProviderListItem is the list projection of a provider. It never carries secrets.
type ProviderListItem struct {
	ID          string         `db:"id" json:"id"`
	Name        *string        `db:"name" json:"name,omitempty"`
	Description *string        `db:"description" json:"description,omitempty"`
	Logo        *string        `db:"logo" json:"logo,omitempty"`
	Enabled     bool           `db:"enabled" json:"enabled"`
	Source      ProviderSource `db:"source" json:"source"`
}

// ProviderDetail is a provider with its key vaults opened.
type ProviderDetail struct {
	ID            string         `json:"id"`
	Name          *string        `json:"name,omitempty"`
	Source        ProviderSource `json:"source"`
	Enabled       bool           `json:"enabled"`
	CheckModel    *string        `json:"checkModel,omitempty"`
	FetchOnClient *bool          `json:"fetchOnClient,omitempty"`
	Config        JSONB          `json:"config,omitempty"`
	KeyVaults     KeyVaults      `json:"keyVaults"`
}

// CreateProviderParams holds the fields accepted when creating a provider.
// Enabled is not part of it: new providers always start enabled.
type CreateProviderParams struct {
	ID            string         `json:"id"`
	Name          *string        `json:"name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Logo          *string        `json:"logo,omitempty"`
	Source        ProviderSource `json:"source,omitempty"`
	Sort          *int           `json:"sort,omitempty"`
	CheckModel    *string        `json:"checkModel,omitempty"`
	FetchOnClient *bool          `json:"fetchOnClient,omitempty"`
	Config        JSONB          `json:"config,omitempty"`
	KeyVaults     KeyVaults      `json:"keyVaults,omitempty"`
}

// UpdateProviderParams is a partial patch; nil fields are left untouched.
type UpdateProviderParams struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Logo        *string `json:"logo,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
	Sort        *int    `json:"sort,omitempty"`
	Config      JSONB   `json:"config,omitempty"`
}

// UpdateProviderConfigParams patches the configuration part of a provider.
// KeyVaults, when present, replaces the stored bundle and is sealed again.
type UpdateProviderConfigParams struct {
	Config        JSONB     `json:"config,omitempty"`
	KeyVaults     KeyVaults `json:"keyVaults,omitempty"`
	CheckModel    *string   `json:"checkModel,omitempty"`
	FetchOnClient *bool     `json:"fetchOnClient,omitempty"`
}

// SortMapEntry is one instruction of a reorder operation.
type SortMapEntry struct {
	ID   string `json:"id"`
	Sort int    `json:"sort"`
}
