package coordinator

import (
	"context"

	"aiinfra/internal/events"
	"aiinfra/internal/logging"
)

// handleEventIfRelevant refreshes the session after another session of the
// same user changed provider settings. Manager.Run delivers the events. Other
// users' events and the session's own are skipped.
func (s *Session) handleEventIfRelevant(ctx context.Context, event events.Event) {
	if event.UserID != s.userID || event.Origin == s.id {
		return
	}

	active := s.ActiveProvider()

	switch event.Topic {
	case events.TopicModels:
		if event.ProviderID != "" && event.ProviderID != active {
			return
		}
		if err := s.RefreshModelList(ctx); err != nil {
			logging.Warningf("Failed to refresh models after event %s: %v", event.ID, err)
		}
	case events.TopicProviders:
		if err := s.RefreshProviderList(ctx); err != nil {
			logging.Warningf("Failed to refresh providers after event %s: %v", event.ID, err)
		}
		if err := s.RefreshKeyVaults(ctx); err != nil {
			logging.Warningf("Failed to refresh key vaults after event %s: %v", event.ID, err)
		}
		if event.ProviderID == "" || event.ProviderID == active {
			if err := s.RefreshProviderDetail(ctx); err != nil {
				logging.Warningf("Failed to refresh provider %s after event %s: %v", active, event.ID, err)
			}
		}
	default:
		logging.Debugf("Ignoring event %s with topic %q", event.ID, event.Topic)
	}
}
