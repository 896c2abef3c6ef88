package httpapi

import (
	"net/http"

	"aiinfra/internal/coordinator"
	"aiinfra/internal/models"
	"aiinfra/internal/utils"
)

// SessionHandler exposes the caller's settings session: the active provider
// and its cached model list.
type SessionHandler struct {
	deps *Dependencies
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(deps *Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// ActiveProviderRequest is the body of PUT /api/session/active-provider.
type ActiveProviderRequest struct {
	ID string `json:"id"`
}

// SessionState is the session snapshot returned by every session endpoint.
type SessionState struct {
	ActiveProvider  string                         `json:"activeProvider"`
	Provider        *models.ProviderDetail         `json:"provider,omitempty"`
	FetchOnClient   bool                           `json:"fetchOnClient"`
	Models          []models.ProviderModelListItem `json:"models"`
	ModelListInit   bool                           `json:"modelListInit"`
	ModelLoadingIDs []string                       `json:"modelLoadingIds"`
}

func sessionState(s *coordinator.Session) SessionState {
	state := SessionState{
		ActiveProvider:  s.ActiveProvider(),
		Provider:        s.ProviderDetail(),
		Models:          s.ModelList(),
		ModelListInit:   s.IsModelListInit(),
		ModelLoadingIDs: s.ModelLoadingIDs(),
	}
	if state.ActiveProvider != "" {
		state.FetchOnClient = s.IsProviderFetchOnClient(state.ActiveProvider)
	}
	if state.Models == nil {
		state.Models = []models.ProviderModelListItem{}
	}
	return state
}

// activeSession returns the caller's session, answering 409 when no provider
// is active.
func (h *SessionHandler) activeSession(w http.ResponseWriter, r *http.Request) (*coordinator.Session, bool) {
	user, ok := userID(w, r)
	if !ok {
		return nil, false
	}
	session := h.deps.Sessions.Get(user)
	if session.ActiveProvider() == "" {
		utils.RespondWithError(w, http.StatusConflict, "No active provider")
		return nil, false
	}
	return session, true
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	session := h.deps.Sessions.Get(user)
	if err := session.RefreshModelList(r.Context()); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sessionState(session))
}

// SetActiveProvider handles PUT /api/session/active-provider.
func (h *SessionHandler) SetActiveProvider(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req ActiveProviderRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "id is required")
		return
	}

	session := h.deps.Sessions.Get(user)
	if err := session.SetActiveProvider(r.Context(), req.ID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if err := session.RefreshKeyVaults(r.Context()); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sessionState(session))
}

// BatchUpdate handles PUT /api/session/models: items are written under the
// active provider.
func (h *SessionHandler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	var req BatchUpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := normalizeBatch(req.Models); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := session.BatchUpdateAiModels(r.Context(), req.Models); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sessionState(session))
}

// ToggleModel handles PUT /api/session/models/enabled.
func (h *SessionHandler) ToggleModel(w http.ResponseWriter, r *http.Request) {
	session, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	var req ToggleModelRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" || req.Enabled == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "id and enabled are required")
		return
	}

	params := models.ToggleModelParams{ID: req.ID, Enabled: *req.Enabled, Source: req.Source}
	if err := session.ToggleModelEnabled(r.Context(), params); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sessionState(session))
}
