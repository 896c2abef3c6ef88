package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aiinfra/internal/cache"
	"aiinfra/internal/logging"
	"aiinfra/internal/models"
	"aiinfra/internal/utils"
)

const (
	discoveryTimeout   = 30 * time.Second
	maxDiscoveryBody   = 8 << 20
	releasedDateLayout = "2006-01-02"
)

var (
	// ErrDiscoveryUnsupported is returned when no API root is known for a provider.
	ErrDiscoveryUnsupported = errors.New("model discovery is not supported for this provider")
)

// RemoteModel is one entry of a vendor's live model catalog.
type RemoteModel struct {
	ID                  string  `json:"id"`
	DisplayName         *string `json:"displayName,omitempty"`
	Description         *string `json:"description,omitempty"`
	ContextWindowTokens *int    `json:"contextWindowTokens,omitempty"`
	Files               *bool   `json:"files,omitempty"`
	FunctionCall        *bool   `json:"functionCall,omitempty"`
	Vision              *bool   `json:"vision,omitempty"`
	Enabled             *bool   `json:"enabled,omitempty"`
	ReleasedAt          *string `json:"releasedAt,omitempty"`
}

// Discoverer lists the chat models a provider currently exposes.
// An empty result means "nothing new", never "clear the list".
type Discoverer interface {
	GetChatModels(ctx context.Context, providerID string) ([]RemoteModel, error)
}

// VaultLookup returns the opened key vaults of a provider for the current user.
type VaultLookup func(ctx context.Context, providerID string) (models.KeyVaults, error)

// DiscoveryConfig configures an HTTPDiscoverer.
type DiscoveryConfig struct {
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// HTTPDiscoverer queries the OpenAI-compatible GET {baseURL}/models endpoint.
type HTTPDiscoverer struct {
	client *http.Client
	vaults VaultLookup
	cache  *cache.LRUCache[[]RemoteModel]
}

// NewHTTPDiscoverer creates a discoverer. Results are cached per provider,
// base URL and credential.
func NewHTTPDiscoverer(vaults VaultLookup, cfg DiscoveryConfig) *HTTPDiscoverer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = discoveryTimeout
	}

	var c *cache.LRUCache[[]RemoteModel]
	if cfg.CacheSize > 0 && cfg.CacheTTL > 0 {
		c = cache.NewLRUCache[[]RemoteModel](cfg.CacheSize, cfg.CacheTTL)
	}

	return &HTTPDiscoverer{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		vaults: vaults,
		cache:  c,
	}
}

type listModelsResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Created       int64  `json:"created"`
		DisplayName   string `json:"display_name"`
		Name          string `json:"name"`
		Description   string `json:"description"`
		ContextLength int    `json:"context_length"`
	} `json:"data"`
}

// GetChatModels fetches the provider's model list. The user configured
// baseURL (or endpoint) wins over the catalog default.
func (d *HTTPDiscoverer) GetChatModels(ctx context.Context, providerID string) ([]RemoteModel, error) {
	vaults, err := d.vaults(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load key vaults: %w", err)
	}

	card, _ := Card(providerID)
	baseURL := firstNonEmpty(vaults.BaseURL(), vaults.Endpoint(), card.DefaultBaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrDiscoveryUnsupported, providerID)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cacheKey := utils.HashKey(providerID, baseURL, vaults.APIKey())
	if d.cache != nil {
		if cached, ok := d.cache.Get(cacheKey); ok {
			logging.Debugf("Model discovery cache hit for provider %s", providerID)
			return cached, nil
		}
	}

	var auth Authenticator = noAuth{}
	if vaults.APIKey() != "" {
		auth = NewSimpleAPIKeyAuth(vaults.APIKey(), card.AuthHeader, card.AuthPrefix)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	authCtx, err := auth.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if err := authCtx.ApplyToRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to apply auth: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiscoveryBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model listing for %s failed with status %d: %s",
			providerID, resp.StatusCode, truncate(string(body), 256))
	}

	var parsed listModelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	out := make([]RemoteModel, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if m.ID == "" {
			continue
		}
		rm := RemoteModel{ID: m.ID}
		if name := firstNonEmpty(m.DisplayName, m.Name); name != "" {
			rm.DisplayName = &name
		}
		if m.Description != "" {
			desc := m.Description
			rm.Description = &desc
		}
		if m.ContextLength > 0 {
			tokens := m.ContextLength
			rm.ContextWindowTokens = &tokens
		}
		if m.Created > 0 {
			released := time.Unix(m.Created, 0).UTC().Format(releasedDateLayout)
			rm.ReleasedAt = &released
		}
		out = append(out, rm)
	}

	logging.Infof("Discovered %d models for provider %s", len(out), providerID)

	if d.cache != nil {
		d.cache.Set(cacheKey, out)
	}
	return out, nil
}

// WithVaults returns a discoverer reading credentials through vaults. It
// shares the HTTP client and the cache with d.
func (d *HTTPDiscoverer) WithVaults(vaults VaultLookup) *HTTPDiscoverer {
	view := *d
	view.vaults = vaults
	return &view
}

// Invalidate drops every cached model list.
func (d *HTTPDiscoverer) Invalidate() {
	if d.cache != nil {
		d.cache.Clear()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
