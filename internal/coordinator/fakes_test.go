package coordinator

import (
	"context"
	"errors"
	"slices"
	"sync"

	"aiinfra/internal/events"
	"aiinfra/internal/models"
	"aiinfra/internal/providers"
)

var errBoom = errors.New("boom")

type fakeProviders struct {
	mu         sync.Mutex
	list       []models.ProviderListItem
	details    map[string]*models.ProviderDetail
	vaults     map[string]models.KeyVaults
	listCalls  int
	listErr    error
	toggleErr  error
	configured []string
}

func newFakeProviders() *fakeProviders {
	return &fakeProviders{
		list: []models.ProviderListItem{
			{ID: "openai", Enabled: true, Source: models.ProviderSourceBuiltin},
			{ID: "ollama", Enabled: false, Source: models.ProviderSourceBuiltin},
		},
		details: map[string]*models.ProviderDetail{
			"openai": {ID: "openai", Source: models.ProviderSourceBuiltin, Enabled: true},
			"ollama": {ID: "ollama", Source: models.ProviderSourceBuiltin},
		},
		vaults: map[string]models.KeyVaults{},
	}
}

func (f *fakeProviders) Create(ctx context.Context, params models.CreateProviderParams) (*models.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.details[params.ID]; ok {
		return nil, errors.New("provider exists")
	}
	f.list = append(f.list, models.ProviderListItem{ID: params.ID, Name: params.Name, Enabled: true, Source: params.Source})
	f.details[params.ID] = &models.ProviderDetail{ID: params.ID, Name: params.Name, Source: params.Source, Enabled: true}
	if params.KeyVaults != nil {
		f.vaults[params.ID] = params.KeyVaults.Clone()
	}
	return &models.Provider{ID: params.ID, Name: params.Name, Source: params.Source, Enabled: true}, nil
}

func (f *fakeProviders) Update(ctx context.Context, id string, params models.UpdateProviderParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.list {
		if f.list[i].ID == id && params.Name != nil {
			f.list[i].Name = params.Name
		}
	}
	if d, ok := f.details[id]; ok && params.Name != nil {
		d.Name = params.Name
	}
	return nil
}

func (f *fakeProviders) Delete(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.details[id]; !ok {
		return 0, nil
	}
	f.list = slices.DeleteFunc(f.list, func(p models.ProviderListItem) bool { return p.ID == id })
	delete(f.details, id)
	delete(f.vaults, id)
	return 1, nil
}

func (f *fakeProviders) DeleteAll(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.list))
	f.list = nil
	f.details = map[string]*models.ProviderDetail{}
	f.vaults = map[string]models.KeyVaults{}
	return n, nil
}

func (f *fakeProviders) GetListView(ctx context.Context) ([]models.ProviderListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.list), nil
}

func (f *fakeProviders) GetDetailByID(ctx context.Context, id string) (*models.ProviderDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[id]
	if !ok {
		return nil, errors.New("provider not found")
	}
	out := *d
	out.KeyVaults = f.vaults[id].Clone()
	return &out, nil
}

func (f *fakeProviders) GetAllKeyVaults(ctx context.Context) (map[string]models.KeyVaults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.KeyVaults, len(f.vaults))
	for id, kv := range f.vaults {
		out[id] = kv.Clone()
	}
	return out, nil
}

func (f *fakeProviders) ToggleEnabled(ctx context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toggleErr != nil {
		return f.toggleErr
	}
	for i := range f.list {
		if f.list[i].ID == id {
			f.list[i].Enabled = enabled
		}
	}
	return nil
}

func (f *fakeProviders) UpdateOrder(ctx context.Context, sortMap []models.SortMapEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := make(map[string]int, len(sortMap))
	for _, e := range sortMap {
		order[e.ID] = e.Sort
	}
	slices.SortStableFunc(f.list, func(a, b models.ProviderListItem) int {
		return order[a.ID] - order[b.ID]
	})
	return nil
}

func (f *fakeProviders) UpdateConfig(ctx context.Context, id string, params models.UpdateProviderConfigParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configured = append(f.configured, id)
	if params.KeyVaults != nil {
		f.vaults[id] = params.KeyVaults.Clone()
	}
	if d, ok := f.details[id]; ok && params.FetchOnClient != nil {
		d.FetchOnClient = params.FetchOnClient
	}
	return nil
}

type fakeModels struct {
	mu        sync.Mutex
	lists     map[string][]models.ProviderModelListItem
	listCalls int
	upserts   int
	toggleErr error
	listErr   error
}

func newFakeModels() *fakeModels {
	return &fakeModels{lists: map[string][]models.ProviderModelListItem{}}
}

func (f *fakeModels) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeModels) Create(ctx context.Context, providerID string, params models.CreateAiModelParams) (*models.AiModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := models.ProviderModelListItem{ID: params.ID, DisplayName: params.DisplayName, Type: models.ModelTypeChat, Source: models.ModelSourceCustom, Enabled: true}
	f.lists[providerID] = append(f.lists[providerID], item)
	m := item.ToModel("user-1", providerID)
	return &m, nil
}

func (f *fakeModels) Delete(ctx context.Context, providerID, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	before := len(f.lists[providerID])
	f.lists[providerID] = slices.DeleteFunc(f.lists[providerID], func(m models.ProviderModelListItem) bool { return m.ID == id })
	return int64(before - len(f.lists[providerID])), nil
}

func (f *fakeModels) DeleteAll(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, list := range f.lists {
		n += int64(len(list))
	}
	f.lists = map[string][]models.ProviderModelListItem{}
	return n, nil
}

func (f *fakeModels) GetProviderModelList(ctx context.Context, providerID string) ([]models.ProviderModelListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.lists[providerID]), nil
}

func (f *fakeModels) BatchUpsert(ctx context.Context, providerID string, items []models.ProviderModelListItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.lists[providerID] = append(f.lists[providerID], items...)
	return nil
}

func (f *fakeModels) ClearRemoteModels(ctx context.Context, providerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.ProviderModelListItem
	var n int64
	for _, m := range f.lists[providerID] {
		if m.Source == models.ModelSourceRemote {
			n++
			continue
		}
		kept = append(kept, m)
	}
	f.lists[providerID] = kept
	return n, nil
}

func (f *fakeModels) ToggleEnabled(ctx context.Context, params models.ToggleModelParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toggleErr != nil {
		return f.toggleErr
	}
	list := f.lists[params.ProviderID]
	for i := range list {
		if list[i].ID == params.ID {
			list[i].Enabled = params.Enabled
			return nil
		}
	}
	f.lists[params.ProviderID] = append(list, models.ProviderModelListItem{
		ID: params.ID, Type: models.ModelTypeChat, Source: models.ModelSourceBuiltin, Enabled: params.Enabled,
	})
	return nil
}

func (f *fakeModels) UpdateOrder(ctx context.Context, providerID string, sortMap []models.SortMapEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := make(map[string]int, len(sortMap))
	for _, e := range sortMap {
		order[e.ID] = e.Sort
	}
	slices.SortStableFunc(f.lists[providerID], func(a, b models.ProviderModelListItem) int {
		return order[a.ID] - order[b.ID]
	})
	return nil
}

type fakeDiscoverer struct {
	models []providers.RemoteModel
	err    error
}

func (f *fakeDiscoverer) GetChatModels(ctx context.Context, providerID string) ([]providers.RemoteModel, error) {
	return f.models, f.err
}

// signalBus closes subscribed once the first subscription is in place.
type signalBus struct {
	events.Bus
	once       sync.Once
	subscribed chan struct{}
}

func newSignalBus(bus events.Bus) *signalBus {
	return &signalBus{Bus: bus, subscribed: make(chan struct{})}
}

func (b *signalBus) Subscribe(ctx context.Context) (<-chan events.Event, error) {
	ch, err := b.Bus.Subscribe(ctx)
	b.once.Do(func() { close(b.subscribed) })
	return ch, err
}
