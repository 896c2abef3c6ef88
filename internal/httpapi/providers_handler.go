package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"aiinfra/internal/models"
	"aiinfra/internal/resolver"
	"aiinfra/internal/storage"
	"aiinfra/internal/utils"
)

// ProvidersHandler serves the provider settings of the authenticated user.
type ProvidersHandler struct {
	deps *Dependencies
}

// NewProvidersHandler creates a new providers handler
func NewProvidersHandler(deps *Dependencies) *ProvidersHandler {
	return &ProvidersHandler{deps: deps}
}

// ToggleRequest is the body of the enable/disable endpoints.
type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// SortRequest is the body of the reorder endpoints.
type SortRequest struct {
	SortMap []models.SortMapEntry `json:"sortMap"`
}

// FetchOnClientResponse reports where a provider's requests are sent from.
type FetchOnClientResponse struct {
	ID            string `json:"id"`
	FetchOnClient bool   `json:"fetchOnClient"`
}

// List handles GET /api/providers. ?enabled=true|false filters the list.
func (h *ProvidersHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	session := h.deps.Sessions.Get(user)
	if err := session.RefreshProviderList(r.Context()); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	var list []models.ProviderListItem
	switch r.URL.Query().Get("enabled") {
	case "":
		list = session.ProviderList()
	case "true":
		list = session.EnabledProviders()
	case "false":
		list = session.DisabledProviders()
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "enabled must be true or false")
		return
	}
	if list == nil {
		list = []models.ProviderListItem{}
	}

	utils.RespondWithJSON(w, http.StatusOK, list)
}

// Create handles POST /api/providers. A missing id creates a custom provider
// with a generated id.
func (h *ProvidersHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req models.CreateProviderParams
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
		req.Source = models.ProviderSourceCustom
	}
	if req.Source != "" && req.Source != models.ProviderSourceBuiltin && req.Source != models.ProviderSourceCustom {
		utils.RespondWithError(w, http.StatusBadRequest, "source must be builtin or custom")
		return
	}

	provider, err := h.deps.Sessions.Get(user).CreateProvider(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, provider)
}

// Get handles GET /api/providers/{id}. Builtin providers without a stored row
// are initialized on first access.
func (h *ProvidersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	detail, err := h.deps.providerRepo(user).GetDetailByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, detail)
}

// Update handles PATCH /api/providers/{id}.
func (h *ProvidersHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	var req models.UpdateProviderParams
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.deps.Sessions.Get(user).UpdateProvider(r.Context(), id, req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	provider, err := h.deps.providerRepo(user).FindByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if provider == nil {
		respondWithServiceError(w, r, storage.ErrProviderNotFound)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, provider)
}

// Delete handles DELETE /api/providers/{id}. Deleting a missing provider
// succeeds.
func (h *ProvidersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.deps.Sessions.Get(user).DeleteProvider(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /api/providers: it resets every provider and model
// of the user.
func (h *ProvidersHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	providersDeleted, modelsDeleted, err := h.deps.Sessions.Get(user).ResetProviders(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]int64{
		"providers": providersDeleted,
		"models":    modelsDeleted,
	})
}

// UpdateConfig handles PUT /api/providers/{id}/config.
func (h *ProvidersHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	var req models.UpdateProviderConfigParams
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	repo := h.deps.providerRepo(user)
	// Make sure builtin rows exist before the patch.
	if _, err := repo.GetDetailByID(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.deps.Sessions.Get(user).UpdateProviderConfig(r.Context(), id, req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	detail, err := repo.GetDetailByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, detail)
}

// ToggleEnabled handles PUT /api/providers/{id}/enabled.
func (h *ProvidersHandler) ToggleEnabled(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	var req ToggleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Enabled == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	session := h.deps.Sessions.Get(user)
	if err := session.ToggleProviderEnabled(r.Context(), id, *req.Enabled); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"enabled": session.IsProviderEnabled(id),
	})
}

// UpdateOrder handles PUT /api/providers/order.
func (h *ProvidersHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req SortRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := h.deps.Sessions.Get(user)
	if err := session.UpdateProviderSort(r.Context(), req.SortMap); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, session.ProviderList())
}

// FetchOnClient handles GET /api/providers/{id}/fetch-on-client.
func (h *ProvidersHandler) FetchOnClient(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	// The active provider resolves from the session's cached detail.
	session := h.deps.Sessions.Get(user)
	if session.ActiveProvider() == id {
		if err := session.RefreshProviderDetail(r.Context()); err != nil {
			respondWithServiceError(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, FetchOnClientResponse{
			ID:            id,
			FetchOnClient: session.IsProviderFetchOnClient(id),
		})
		return
	}

	detail, err := h.deps.providerRepo(user).GetDetailByID(r.Context(), id)
	if err != nil && !errors.Is(err, storage.ErrProviderNotFound) {
		respondWithServiceError(w, r, err)
		return
	}

	// An unknown custom provider resolves from an empty configuration.
	utils.RespondWithJSON(w, http.StatusOK, FetchOnClientResponse{
		ID:            id,
		FetchOnClient: resolver.IsProviderFetchOnClient(id, detail, h.deps.Rules),
	})
}

// KeyVaults handles GET /api/keyvaults: the opened vaults of every provider.
func (h *ProvidersHandler) KeyVaults(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	session := h.deps.Sessions.Get(user)
	if err := session.RefreshKeyVaults(r.Context()); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, session.KeyVaults())
}
