package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiinfra/internal/events"
	"aiinfra/internal/models"
	"aiinfra/internal/utils"
)

// drainEvents collects the events published so far.
func drainEvents(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		case <-time.After(200 * time.Millisecond):
			return out
		}
	}
}

func hasEvent(list []events.Event, topic events.Topic, providerID string) bool {
	for _, e := range list {
		if e.Topic == topic && e.ProviderID == providerID {
			return true
		}
	}
	return false
}

func TestModelWrites_RefreshActiveSessionAndNotify(t *testing.T) {
	s := newTestServer(t, nil)
	const user = "user-1"
	base := "/api/providers/openrouter/models"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.deps.Bus.Subscribe(ctx)
	require.NoError(t, err)

	w := s.do(t, http.MethodPut, "/api/session/active-provider", ActiveProviderRequest{ID: "openrouter"}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state := decode[SessionState](t, w)
	assert.Equal(t, "openrouter", state.ActiveProvider)
	assert.True(t, state.ModelListInit)
	assert.Empty(t, state.Models)

	w = s.do(t, http.MethodPost, base, models.CreateAiModelParams{ID: "m1"}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, base, models.CreateAiModelParams{ID: "m2"}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodDelete, base+"/m1", nil, user)
	require.Equal(t, http.StatusNoContent, w.Code)

	session := s.deps.Sessions.Get(user)
	assert.Equal(t, []string{"m2"}, modelIDs(session.ModelList()))

	w = s.do(t, http.MethodGet, "/api/session", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"m2"}, modelIDs(decode[SessionState](t, w).Models))

	w = s.do(t, http.MethodGet, base, nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"m2"}, modelIDs(decode[[]models.ProviderModelListItem](t, w)))

	published := drainEvents(ch)
	assert.True(t, hasEvent(published, events.TopicModels, "openrouter"))
	for _, e := range published {
		assert.Equal(t, user, e.UserID)
	}
}

func TestProviderWrites_NotifyOtherSessions(t *testing.T) {
	s := newTestServer(t, nil)
	const user = "user-1"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.deps.Bus.Subscribe(ctx)
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/api/providers", models.CreateProviderParams{ID: "my-proxy", Source: models.ProviderSourceCustom}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPatch, "/api/providers/my-proxy", models.UpdateProviderParams{Name: utils.StringPtr("Proxy")}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodDelete, "/api/providers/my-proxy", nil, user)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, "/api/providers", nil, user)
	require.Equal(t, http.StatusOK, w.Code)

	published := drainEvents(ch)
	assert.True(t, hasEvent(published, events.TopicProviders, "my-proxy"))
	assert.True(t, hasEvent(published, events.TopicProviders, ""))
	assert.True(t, hasEvent(published, events.TopicModels, ""))
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	const user = "user-1"

	// Nothing is active yet.
	w := s.do(t, http.MethodPut, "/api/session/models", BatchUpdateRequest{Models: []models.ProviderModelListItem{{ID: "x"}}}, user)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = s.do(t, http.MethodGet, "/api/session", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[SessionState](t, w).ActiveProvider)

	w = s.do(t, http.MethodPut, "/api/session/active-provider", ActiveProviderRequest{ID: "no-such-custom"}, user)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPut, "/api/session/active-provider", ActiveProviderRequest{}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/session/active-provider", ActiveProviderRequest{ID: "ollama"}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/session/models", BatchUpdateRequest{Models: []models.ProviderModelListItem{
		{ID: "llama3", Source: models.ModelSourceRemote},
		{ID: "qwen2"},
	}}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state := decode[SessionState](t, w)
	assert.ElementsMatch(t, []string{"llama3", "qwen2"}, modelIDs(state.Models))
	assert.Empty(t, state.ModelLoadingIDs)

	w = s.do(t, http.MethodPut, "/api/session/models/enabled", ToggleModelRequest{ID: "llama3", Enabled: utils.BoolPtr(true)}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, m := range decode[SessionState](t, w).Models {
		if m.ID == "llama3" {
			assert.True(t, m.Enabled)
		}
	}

	// Stored under the active provider.
	w = s.do(t, http.MethodGet, "/api/providers/ollama/models", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ProviderModelListItem](t, w), 2)

	w = s.do(t, http.MethodPut, "/api/session/models", BatchUpdateRequest{Models: []models.ProviderModelListItem{{ID: "bad", Type: "video2text"}}}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetchOnClient_ActiveProviderFromSession(t *testing.T) {
	s := newTestServer(t, nil)
	const user = "user-1"

	w := s.do(t, http.MethodPut, "/api/providers/my-ollama/config", models.UpdateProviderConfigParams{}, user)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/providers", models.CreateProviderParams{
		ID:        "my-ollama",
		Source:    models.ProviderSourceCustom,
		KeyVaults: models.KeyVaults{models.KeyVaultBaseURL: "http://127.0.0.1:11434/v1"},
	}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/session/active-provider", ActiveProviderRequest{ID: "my-ollama"}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	// Endpoint without a key: requests go from the client.
	assert.True(t, decode[SessionState](t, w).FetchOnClient)

	w = s.do(t, http.MethodGet, "/api/providers/my-ollama/fetch-on-client", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[FetchOnClientResponse](t, w).FetchOnClient)
}
