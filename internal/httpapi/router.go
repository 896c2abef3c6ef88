package httpapi

import (
	"context"
	"net/http"

	"aiinfra/internal/config"
	"aiinfra/internal/coordinator"
	"aiinfra/internal/events"
	"aiinfra/internal/keyvault"
	"aiinfra/internal/middleware"
	"aiinfra/internal/models"
	"aiinfra/internal/providers"
	"aiinfra/internal/resolver"
	"aiinfra/internal/storage"
)

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	DB    *storage.DB
	Codec keyvault.Codec
	// Bus carries refresh signals between replicas. Optional.
	Bus events.Bus
	// Discoverer lists vendor models. Optional; without it model fetching
	// answers 501.
	Discoverer *providers.HTTPDiscoverer
	Rules      resolver.Rules
	Sessions   *coordinator.Manager
	// Audit records settings writes. Optional.
	Audit middleware.AuditRecorder
}

// NewDependencies wires the per-user session manager on top of db.
func NewDependencies(cfg *config.Config, db *storage.DB, codec keyvault.Codec, bus events.Bus, discoverer *providers.HTTPDiscoverer) *Dependencies {
	deps := &Dependencies{
		DB:         db,
		Codec:      codec,
		Bus:        bus,
		Discoverer: discoverer,
		Rules:      resolver.DefaultRules(),
	}
	deps.Sessions = coordinator.NewManager(deps.newSession, cfg.Sessions.CacheSize, cfg.Sessions.TTL)
	return deps
}

func (d *Dependencies) providerRepo(userID string) *storage.ProviderRepository {
	return d.DB.NewProviderRepository(userID, d.Codec)
}

func (d *Dependencies) modelRepo(userID string) *storage.ModelRepository {
	return d.DB.NewModelRepository(userID)
}

func (d *Dependencies) newSession(userID string) *coordinator.Session {
	providerRepo := d.providerRepo(userID)

	opts := []coordinator.Option{coordinator.WithRules(d.Rules)}
	if d.Bus != nil {
		opts = append(opts, coordinator.WithNotifier(d.Bus))
	}
	if d.Discoverer != nil {
		opts = append(opts, coordinator.WithDiscoverer(d.Discoverer.WithVaults(vaultLookup(providerRepo))))
	}
	return coordinator.New(userID, providerRepo, d.modelRepo(userID), opts...)
}

// vaultLookup reads discovery credentials from the user's stored provider.
func vaultLookup(repo *storage.ProviderRepository) providers.VaultLookup {
	return func(ctx context.Context, providerID string) (models.KeyVaults, error) {
		detail, err := repo.GetDetailByID(ctx, providerID)
		if err != nil {
			return nil, err
		}
		return detail.KeyVaults, nil
	}
}

// NewRouter creates the HTTP handler with all routes registered.
func NewRouter(cfg *config.Config, deps *Dependencies) http.Handler {
	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg)
	return middleware.RequestID(mux)
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies, cfg *config.Config) {
	// Public
	mux.HandleFunc("GET /healthz", deps.handleHealth)
	mux.HandleFunc("GET /api/catalog", handleCatalog)

	ph := NewProvidersHandler(deps)
	mh := NewModelsHandler(deps)
	sh := NewSessionHandler(deps)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/providers", ph.List)
	api.HandleFunc("POST /api/providers", ph.Create)
	api.HandleFunc("DELETE /api/providers", ph.DeleteAll)
	api.HandleFunc("PUT /api/providers/order", ph.UpdateOrder)
	api.HandleFunc("GET /api/providers/{id}", ph.Get)
	api.HandleFunc("PATCH /api/providers/{id}", ph.Update)
	api.HandleFunc("DELETE /api/providers/{id}", ph.Delete)
	api.HandleFunc("PUT /api/providers/{id}/config", ph.UpdateConfig)
	api.HandleFunc("PUT /api/providers/{id}/enabled", ph.ToggleEnabled)
	api.HandleFunc("GET /api/providers/{id}/fetch-on-client", ph.FetchOnClient)
	api.HandleFunc("GET /api/keyvaults", ph.KeyVaults)

	api.HandleFunc("GET /api/providers/{id}/models", mh.List)
	api.HandleFunc("POST /api/providers/{id}/models", mh.Create)
	api.HandleFunc("PUT /api/providers/{id}/models", mh.BatchUpdate)
	api.HandleFunc("DELETE /api/providers/{id}/models", mh.Clear)
	api.HandleFunc("PUT /api/providers/{id}/models/enabled", mh.ToggleEnabled)
	api.HandleFunc("PUT /api/providers/{id}/models/order", mh.UpdateOrder)
	api.HandleFunc("POST /api/providers/{id}/models/fetch", mh.Fetch)
	// Model ids may contain slashes, e.g. "anthropic/claude-3.5-sonnet".
	api.HandleFunc("DELETE /api/providers/{id}/models/{modelID...}", mh.Delete)

	api.HandleFunc("GET /api/session", sh.Get)
	api.HandleFunc("PUT /api/session/active-provider", sh.SetActiveProvider)
	api.HandleFunc("PUT /api/session/models", sh.BatchUpdate)
	api.HandleFunc("PUT /api/session/models/enabled", sh.ToggleModel)

	var handler http.Handler = api
	if deps.Audit != nil {
		handler = middleware.Audit(deps.Audit)(handler)
	}
	mux.Handle("/api/", middleware.UserJWTMiddleware(cfg)(handler))
}
