package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"aiinfra/internal/logging"
	"aiinfra/internal/models"
	"aiinfra/internal/utils"
)

// ModelsHandler serves the model lists of the authenticated user's providers.
type ModelsHandler struct {
	deps *Dependencies
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(deps *Dependencies) *ModelsHandler {
	return &ModelsHandler{deps: deps}
}

// BatchUpdateRequest is the body of PUT /api/providers/{id}/models.
type BatchUpdateRequest struct {
	Models []models.ProviderModelListItem `json:"models"`
}

// ToggleModelRequest is the body of PUT /api/providers/{id}/models/enabled.
type ToggleModelRequest struct {
	ID      string              `json:"id"`
	Enabled *bool               `json:"enabled"`
	Source  *models.ModelSource `json:"source,omitempty"`
}

// respondWithList answers with the provider's models. The active provider's
// list comes from the session cache, which every write refreshes.
func (h *ModelsHandler) respondWithList(w http.ResponseWriter, r *http.Request, user, providerID string, code int) {
	var list []models.ProviderModelListItem
	if session := h.deps.Sessions.Get(user); session.ActiveProvider() == providerID {
		list = session.ModelList()
	} else {
		var err error
		list, err = h.deps.modelRepo(user).GetProviderModelList(r.Context(), providerID)
		if err != nil {
			respondWithServiceError(w, r, err)
			return
		}
	}
	if list == nil {
		list = []models.ProviderModelListItem{}
	}
	utils.RespondWithJSON(w, code, list)
}

// List handles GET /api/providers/{id}/models.
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	providerID := r.PathValue("id")

	if session := h.deps.Sessions.Get(user); session.ActiveProvider() == providerID {
		if err := session.RefreshModelList(r.Context()); err != nil {
			respondWithServiceError(w, r, err)
			return
		}
	}
	h.respondWithList(w, r, user, providerID, http.StatusOK)
}

// Create handles POST /api/providers/{id}/models: a user-curated model.
func (h *ModelsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req models.CreateAiModelParams
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	model, err := h.deps.Sessions.Get(user).CreateModel(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, model)
}

// BatchUpdate handles PUT /api/providers/{id}/models.
func (h *ModelsHandler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	providerID := r.PathValue("id")

	var req BatchUpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := normalizeBatch(req.Models); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.deps.Sessions.Get(user).UpsertModels(r.Context(), providerID, req.Models); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.respondWithList(w, r, user, providerID, http.StatusOK)
}

// normalizeBatch checks every item has an id and a known type, defaulting
// the type to chat.
func normalizeBatch(items []models.ProviderModelListItem) error {
	for i, m := range items {
		if m.ID == "" {
			return errors.New("every model needs an id")
		}
		if m.Type == "" {
			items[i].Type = models.ModelTypeChat
		} else if !m.Type.Valid() {
			return fmt.Errorf("unknown model type %s", m.Type)
		}
	}
	return nil
}

// Clear handles DELETE /api/providers/{id}/models?source=remote. Only
// discovered models can be cleared in bulk.
func (h *ModelsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	providerID := r.PathValue("id")

	if models.ModelSource(r.URL.Query().Get("source")) != models.ModelSourceRemote {
		utils.RespondWithError(w, http.StatusBadRequest, "source=remote is required")
		return
	}

	if err := h.deps.Sessions.Get(user).ClearRemoteModels(r.Context(), providerID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.respondWithList(w, r, user, providerID, http.StatusOK)
}

// Delete handles DELETE /api/providers/{id}/models/{modelID...}.
func (h *ModelsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	modelID := r.PathValue("modelID")
	if modelID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "model id is required")
		return
	}

	if err := h.deps.Sessions.Get(user).DeleteModel(r.Context(), r.PathValue("id"), modelID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleEnabled handles PUT /api/providers/{id}/models/enabled.
func (h *ModelsHandler) ToggleEnabled(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	providerID := r.PathValue("id")

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
	if err := h.deps.Sessions.Get(user).ToggleProviderModel(r.Context(), providerID, params); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.respondWithList(w, r, user, providerID, http.StatusOK)
}

// UpdateOrder handles PUT /api/providers/{id}/models/order.
func (h *ModelsHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	providerID := r.PathValue("id")

	var req SortRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.deps.Sessions.Get(user).UpdateAiModelsSort(r.Context(), providerID, req.SortMap); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.respondWithList(w, r, user, providerID, http.StatusOK)
}

// Fetch handles POST /api/providers/{id}/models/fetch: the vendor's live
// model list is merged into the stored list as remote models.
func (h *ModelsHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	providerID := r.PathValue("id")

	session := h.deps.Sessions.Get(user)
	if err := session.FetchRemoteModelList(r.Context(), providerID); err != nil {
		if isServiceError(err) {
			respondWithServiceError(w, r, err)
			return
		}
		logging.Warningf("Model discovery for %s failed: %v", providerID, err)
		utils.RespondWithError(w, http.StatusBadGateway, "Model discovery failed: "+err.Error())
		return
	}
	h.respondWithList(w, r, user, providerID, http.StatusOK)
}
