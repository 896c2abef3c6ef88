package coordinator

import (
	"context"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"aiinfra/internal/events"
	"aiinfra/internal/logging"
	"aiinfra/internal/models"
	"aiinfra/internal/providers"
)

// RefreshModelList refetches the active provider's models. When the result
// equals the cached list of an initialized cache the assignment is skipped.
func (s *Session) RefreshModelList(ctx context.Context) error {
	providerID := s.ActiveProvider()
	if providerID == "" {
		return nil
	}

	s.modelRefresh.Lock()
	defer s.modelRefresh.Unlock()

	list, err := s.models.GetProviderModelList(ctx, providerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The active provider changed while the list was loading.
	if s.activeProvider != providerID {
		return nil
	}
	if s.modelListInit && cmp.Equal(list, s.modelList, cmpopts.EquateEmpty()) {
		return nil
	}

	s.modelList = list
	s.modelListInit = true
	s.modelListVersion++
	return nil
}

// FetchRemoteModelList pulls the provider's live model catalog and stores it
// as remote models of providerID. An empty catalog changes nothing. The
// model list is refreshed exactly once either way. Discovery errors are
// returned as is and leave the stored list untouched.
func (s *Session) FetchRemoteModelList(ctx context.Context, providerID string) error {
	if s.discoverer == nil {
		return ErrNoDiscoverer
	}

	remote, err := s.discoverer.GetChatModels(ctx, providerID)
	if err != nil {
		return err
	}

	if len(remote) == 0 {
		logging.Debugf("No remote models for provider %s", providerID)
		return s.RefreshModelList(ctx)
	}

	items := make([]models.ProviderModelListItem, 0, len(remote))
	for _, m := range remote {
		items = append(items, remoteToListItem(m))
	}

	return s.UpsertModels(ctx, providerID, items)
}

func remoteToListItem(m providers.RemoteModel) models.ProviderModelListItem {
	return models.ProviderModelListItem{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Type:        models.ModelTypeChat,
		Source:      models.ModelSourceRemote,
		Enabled:     m.Enabled != nil && *m.Enabled,
		Abilities: &models.ModelAbilities{
			Files:        m.Files,
			FunctionCall: m.FunctionCall,
			Vision:       m.Vision,
		},
		ContextWindowTokens: m.ContextWindowTokens,
		ReleasedAt:          m.ReleasedAt,
	}
}

// BatchUpdateAiModels writes items under the active provider and refreshes.
// Without an active provider it does nothing.
func (s *Session) BatchUpdateAiModels(ctx context.Context, items []models.ProviderModelListItem) error {
	providerID := s.ActiveProvider()
	if providerID == "" {
		return nil
	}
	return s.UpsertModels(ctx, providerID, items)
}

// UpsertModels writes items under providerID and refreshes.
func (s *Session) UpsertModels(ctx context.Context, providerID string, items []models.ProviderModelListItem) error {
	if err := s.models.BatchUpsert(ctx, providerID, items); err != nil {
		return err
	}
	s.notify(ctx, events.TopicModels, providerID)
	return s.RefreshModelList(ctx)
}

// CreateModel stores a user-curated model under providerID and refreshes.
func (s *Session) CreateModel(ctx context.Context, providerID string, params models.CreateAiModelParams) (*models.AiModel, error) {
	model, err := s.models.Create(ctx, providerID, params)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, events.TopicModels, providerID)
	return model, s.RefreshModelList(ctx)
}

// DeleteModel removes one model of providerID and refreshes. Deleting a
// missing model succeeds.
func (s *Session) DeleteModel(ctx context.Context, providerID, modelID string) error {
	if _, err := s.models.Delete(ctx, providerID, modelID); err != nil {
		return err
	}
	s.notify(ctx, events.TopicModels, providerID)
	return s.RefreshModelList(ctx)
}

// ClearRemoteModels deletes the discovered models of providerID and refreshes.
func (s *Session) ClearRemoteModels(ctx context.Context, providerID string) error {
	if _, err := s.models.ClearRemoteModels(ctx, providerID); err != nil {
		return err
	}
	s.notify(ctx, events.TopicModels, providerID)
	return s.RefreshModelList(ctx)
}

// ToggleModelEnabled enables or disables a model of the active provider. The
// model is marked loading for the duration of the call, including when the
// call fails.
func (s *Session) ToggleModelEnabled(ctx context.Context, params models.ToggleModelParams) error {
	providerID := s.ActiveProvider()
	if providerID == "" {
		return nil
	}
	return s.ToggleProviderModel(ctx, providerID, params)
}

// ToggleProviderModel is ToggleModelEnabled for an explicit provider.
func (s *Session) ToggleProviderModel(ctx context.Context, providerID string, params models.ToggleModelParams) error {
	s.setModelLoading(params.ID, true)
	defer s.setModelLoading(params.ID, false)

	params.ProviderID = providerID
	if err := s.models.ToggleEnabled(ctx, params); err != nil {
		return err
	}
	s.notify(ctx, events.TopicModels, providerID)
	return s.RefreshModelList(ctx)
}

// UpdateAiModelsSort stores a new model order for providerID and refreshes.
func (s *Session) UpdateAiModelsSort(ctx context.Context, providerID string, items []models.SortMapEntry) error {
	if err := s.models.UpdateOrder(ctx, providerID, items); err != nil {
		return err
	}
	s.notify(ctx, events.TopicModels, providerID)
	return s.RefreshModelList(ctx)
}
