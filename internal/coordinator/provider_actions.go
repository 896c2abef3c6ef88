package coordinator

import (
	"context"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"aiinfra/internal/events"
	"aiinfra/internal/models"
	"aiinfra/internal/resolver"
)

// RefreshProviderList reloads the provider list. An unchanged list is not
// reassigned once the cache is initialized.
func (s *Session) RefreshProviderList(ctx context.Context) error {
	s.providerRefresh.Lock()
	defer s.providerRefresh.Unlock()

	list, err := s.providers.GetListView(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.providerListInit && cmp.Equal(list, s.providerList, cmpopts.EquateEmpty()) {
		return nil
	}
	s.providerList = list
	s.providerListInit = true
	return nil
}

// RefreshProviderDetail reloads the active provider's detail.
func (s *Session) RefreshProviderDetail(ctx context.Context) error {
	providerID := s.ActiveProvider()
	if providerID == "" {
		return nil
	}

	detail, err := s.providers.GetDetailByID(ctx, providerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeProvider == providerID {
		s.providerDetail = detail
	}
	return nil
}

// RefreshKeyVaults reloads the opened key vaults of every provider.
func (s *Session) RefreshKeyVaults(ctx context.Context) error {
	vaults, err := s.providers.GetAllKeyVaults(ctx)
	if err != nil {
		return err
	}
	if vaults == nil {
		vaults = make(map[string]models.KeyVaults)
	}

	s.mu.Lock()
	s.keyVaults = vaults
	s.mu.Unlock()
	return nil
}

// ToggleProviderEnabled enables or disables a provider and refreshes the list.
func (s *Session) ToggleProviderEnabled(ctx context.Context, providerID string, enabled bool) error {
	s.setProviderLoading(providerID, true)
	defer s.setProviderLoading(providerID, false)

	if err := s.providers.ToggleEnabled(ctx, providerID, enabled); err != nil {
		return err
	}
	s.notify(ctx, events.TopicProviders, providerID)
	return s.RefreshProviderList(ctx)
}

// CreateProvider stores a new provider and refreshes the list and key vaults.
func (s *Session) CreateProvider(ctx context.Context, params models.CreateProviderParams) (*models.Provider, error) {
	provider, err := s.providers.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, events.TopicProviders, provider.ID)
	return provider, s.refreshProviders(ctx)
}

// UpdateProvider patches a provider and refreshes the list, and the detail
// when providerID is active.
func (s *Session) UpdateProvider(ctx context.Context, providerID string, params models.UpdateProviderParams) error {
	if err := s.providers.Update(ctx, providerID, params); err != nil {
		return err
	}
	s.notify(ctx, events.TopicProviders, providerID)
	if err := s.RefreshProviderList(ctx); err != nil {
		return err
	}
	if s.ActiveProvider() == providerID {
		return s.RefreshProviderDetail(ctx)
	}
	return nil
}

// DeleteProvider removes a provider. A deleted active provider stops being
// active.
func (s *Session) DeleteProvider(ctx context.Context, providerID string) error {
	if _, err := s.providers.Delete(ctx, providerID); err != nil {
		return err
	}
	if s.ActiveProvider() == providerID {
		s.clearActiveProvider()
	}
	s.notify(ctx, events.TopicProviders, providerID)
	return s.refreshProviders(ctx)
}

// ResetProviders deletes every provider and model of the user and returns
// how many of each were removed.
func (s *Session) ResetProviders(ctx context.Context) (providersDeleted, modelsDeleted int64, err error) {
	providersDeleted, err = s.providers.DeleteAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	modelsDeleted, err = s.models.DeleteAll(ctx)
	if err != nil {
		return providersDeleted, 0, err
	}

	s.clearActiveProvider()
	s.notify(ctx, events.TopicProviders, "")
	s.notify(ctx, events.TopicModels, "")
	return providersDeleted, modelsDeleted, s.refreshProviders(ctx)
}

func (s *Session) refreshProviders(ctx context.Context) error {
	if err := s.RefreshProviderList(ctx); err != nil {
		return err
	}
	return s.RefreshKeyVaults(ctx)
}

// UpdateProviderSort stores a new provider order and refreshes the list.
func (s *Session) UpdateProviderSort(ctx context.Context, items []models.SortMapEntry) error {
	if err := s.providers.UpdateOrder(ctx, items); err != nil {
		return err
	}
	s.notify(ctx, events.TopicProviders, "")
	return s.RefreshProviderList(ctx)
}

// UpdateProviderConfig patches a provider's configuration, then reloads the
// key vaults and, for the active provider, its detail.
func (s *Session) UpdateProviderConfig(ctx context.Context, providerID string, params models.UpdateProviderConfigParams) error {
	s.setProviderLoading(providerID, true)
	defer s.setProviderLoading(providerID, false)

	if err := s.providers.UpdateConfig(ctx, providerID, params); err != nil {
		return err
	}
	s.notify(ctx, events.TopicProviders, providerID)

	if err := s.RefreshKeyVaults(ctx); err != nil {
		return err
	}
	if s.ActiveProvider() == providerID {
		return s.RefreshProviderDetail(ctx)
	}
	return nil
}

// ProviderList returns a copy of the cached provider list.
func (s *Session) ProviderList() []models.ProviderListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.providerList)
}

// IsProviderListInit reports whether the provider list has been loaded.
func (s *Session) IsProviderListInit() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providerListInit
}

// EnabledProviders returns the enabled providers in list order.
func (s *Session) EnabledProviders() []models.ProviderListItem {
	return s.filterProviders(true)
}

// DisabledProviders returns the disabled providers in list order.
func (s *Session) DisabledProviders() []models.ProviderListItem {
	return s.filterProviders(false)
}

func (s *Session) filterProviders(enabled bool) []models.ProviderListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProviderListItem, 0, len(s.providerList))
	for _, p := range s.providerList {
		if p.Enabled == enabled {
			out = append(out, p)
		}
	}
	return out
}

// IsProviderEnabled reports whether the cached list has providerID enabled.
func (s *Session) IsProviderEnabled(providerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.providerList {
		if p.ID == providerID {
			return p.Enabled
		}
	}
	return false
}

// IsProviderLoading reports whether a toggle or config update of the provider
// is in flight.
func (s *Session) IsProviderLoading(providerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providerLoadingIDs[providerID] > 0
}

// IsProviderConfigLoading is true until providerID is the active provider.
func (s *Session) IsProviderConfigLoading(providerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeProvider != providerID
}

// KeyVaults returns a copy of every cached key vault.
func (s *Session) KeyVaults() map[string]models.KeyVaults {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.KeyVaults, len(s.keyVaults))
	for id, kv := range s.keyVaults {
		out[id] = kv.Clone()
	}
	return out
}

// ProviderKeyVaults returns the cached vaults of providerID.
func (s *Session) ProviderKeyVaults(providerID string) (models.KeyVaults, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kv, ok := s.keyVaults[providerID]
	return kv.Clone(), ok
}

// IsProviderFetchOnClient resolves whether model requests of providerID go
// directly from the client. The active provider is resolved from its full
// detail; other providers only from their cached key vaults, so their stored
// preference is not known.
func (s *Session) IsProviderFetchOnClient(providerID string) bool {
	s.mu.RLock()
	var detail *models.ProviderDetail
	switch {
	case s.providerDetail != nil && s.providerDetail.ID == providerID:
		detail = s.providerDetail
	default:
		if kv, ok := s.keyVaults[providerID]; ok {
			detail = &models.ProviderDetail{ID: providerID, KeyVaults: kv}
		}
	}
	rules := s.rules
	s.mu.RUnlock()

	return resolver.IsProviderFetchOnClient(providerID, detail, rules)
}
