// Package coordinator keeps a per-user session cache of providers and models
// in sync with storage and with the vendors' live model catalogs.
//
// The cached lists are only ever assigned by the Refresh* methods. Mutating
// calls persist first and refresh afterwards, so a read after a successful
// call reflects at least that call.
package coordinator

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"aiinfra/internal/events"
	"aiinfra/internal/logging"
	"aiinfra/internal/models"
	"aiinfra/internal/providers"
	"aiinfra/internal/resolver"
)

var (
	// ErrNoDiscoverer is returned by FetchRemoteModelList when the session
	// was built without a model discovery client.
	ErrNoDiscoverer = errors.New("model discovery is not configured")
)

// ProviderService persists provider records. storage.ProviderRepository
// implements it.
type ProviderService interface {
	Create(ctx context.Context, params models.CreateProviderParams) (*models.Provider, error)
	Update(ctx context.Context, id string, params models.UpdateProviderParams) error
	Delete(ctx context.Context, id string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	GetListView(ctx context.Context) ([]models.ProviderListItem, error)
	GetDetailByID(ctx context.Context, id string) (*models.ProviderDetail, error)
	GetAllKeyVaults(ctx context.Context) (map[string]models.KeyVaults, error)
	ToggleEnabled(ctx context.Context, id string, enabled bool) error
	UpdateOrder(ctx context.Context, sortMap []models.SortMapEntry) error
	UpdateConfig(ctx context.Context, id string, params models.UpdateProviderConfigParams) error
}

// ModelService persists model records. storage.ModelRepository implements it.
type ModelService interface {
	Create(ctx context.Context, providerID string, params models.CreateAiModelParams) (*models.AiModel, error)
	Delete(ctx context.Context, providerID, id string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	GetProviderModelList(ctx context.Context, providerID string) ([]models.ProviderModelListItem, error)
	BatchUpsert(ctx context.Context, providerID string, items []models.ProviderModelListItem) error
	ClearRemoteModels(ctx context.Context, providerID string) (int64, error)
	ToggleEnabled(ctx context.Context, params models.ToggleModelParams) error
	UpdateOrder(ctx context.Context, providerID string, sortMap []models.SortMapEntry) error
}

// Option configures a Session.
type Option func(*Session)

// WithDiscoverer sets the client used by FetchRemoteModelList.
func WithDiscoverer(d providers.Discoverer) Option {
	return func(s *Session) { s.discoverer = d }
}

// WithRules overrides the fetch-on-client rules.
func WithRules(rules resolver.Rules) Option {
	return func(s *Session) { s.rules = rules }
}

// WithNotifier publishes a refresh signal on bus after every successful write.
func WithNotifier(bus events.Bus) Option {
	return func(s *Session) { s.notifier = bus }
}

// Session is the cache of one user's provider settings.
type Session struct {
	id         string
	userID     string
	providers  ProviderService
	models     ModelService
	discoverer providers.Discoverer
	rules      resolver.Rules
	notifier   events.Bus

	// Refreshes of one list run one at a time so a slow, older read never
	// overwrites a newer one.
	modelRefresh    sync.Mutex
	providerRefresh sync.Mutex

	mu                 sync.RWMutex
	activeProvider     string
	providerDetail     *models.ProviderDetail
	providerList       []models.ProviderListItem
	providerListInit   bool
	modelList          []models.ProviderModelListItem
	modelListInit      bool
	modelListVersion   uint64
	keyVaults          map[string]models.KeyVaults
	providerLoadingIDs map[string]int
	modelLoadingIDs    map[string]int
}

// New creates a session for userID.
func New(userID string, providerService ProviderService, modelService ModelService, opts ...Option) *Session {
	s := &Session{
		id:                 uuid.NewString(),
		userID:             userID,
		providers:          providerService,
		models:             modelService,
		rules:              resolver.DefaultRules(),
		keyVaults:          make(map[string]models.KeyVaults),
		providerLoadingIDs: make(map[string]int),
		modelLoadingIDs:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserID returns the owner of the session.
func (s *Session) UserID() string {
	return s.userID
}

// SetActiveProvider loads the provider's detail and model list and makes it
// the target of model operations. On error the previous provider stays active.
func (s *Session) SetActiveProvider(ctx context.Context, providerID string) error {
	detail, err := s.providers.GetDetailByID(ctx, providerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.activeProvider != providerID {
		s.modelList = nil
		s.modelListInit = false
	}
	s.activeProvider = providerID
	s.providerDetail = detail
	s.mu.Unlock()

	return s.RefreshModelList(ctx)
}

// clearActiveProvider forgets the active provider and its cached models.
func (s *Session) clearActiveProvider() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeProvider = ""
	s.providerDetail = nil
	s.modelList = nil
	s.modelListInit = false
}

// ActiveProvider returns the active provider id, empty when none is set.
func (s *Session) ActiveProvider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeProvider
}

// ProviderDetail returns a copy of the active provider's detail.
func (s *Session) ProviderDetail() *models.ProviderDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDetail(s.providerDetail)
}

// ModelList returns a copy of the cached model list of the active provider.
func (s *Session) ModelList() []models.ProviderModelListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.modelList)
}

// IsModelListInit reports whether the model list has been loaded.
func (s *Session) IsModelListInit() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelListInit
}

// ModelListVersion increases every time the cached model list is replaced.
func (s *Session) ModelListVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelListVersion
}

// IsModelLoading reports whether a toggle of the model is in flight.
func (s *Session) IsModelLoading(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelLoadingIDs[id] > 0
}

// ModelLoadingIDs returns the models with a toggle in flight, sorted.
func (s *Session) ModelLoadingIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.modelLoadingIDs)
}

func (s *Session) setModelLoading(id string, loading bool) {
	setLoading(&s.mu, s.modelLoadingIDs, id, loading)
}

func (s *Session) setProviderLoading(id string, loading bool) {
	setLoading(&s.mu, s.providerLoadingIDs, id, loading)
}

// setLoading keeps a counter per id so overlapping calls for the same id
// clear the flag only when the last one settles.
func setLoading(mu *sync.RWMutex, ids map[string]int, id string, loading bool) {
	mu.Lock()
	defer mu.Unlock()

	if loading {
		ids[id]++
		return
	}
	if ids[id] <= 1 {
		delete(ids, id)
		return
	}
	ids[id]--
}

func (s *Session) notify(ctx context.Context, topic events.Topic, providerID string) {
	if s.notifier == nil {
		return
	}

	event := events.NewEvent(s.userID, topic, providerID)
	event.Origin = s.id
	if err := s.notifier.Publish(ctx, event); err != nil {
		logging.Warningf("Failed to publish %s refresh for user %s: %v", topic, s.userID, err)
	}
}

func cloneDetail(d *models.ProviderDetail) *models.ProviderDetail {
	if d == nil {
		return nil
	}
	out := *d
	out.KeyVaults = d.KeyVaults.Clone()
	return &out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
