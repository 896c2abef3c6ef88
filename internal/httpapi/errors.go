package httpapi

import (
	"errors"
	"net/http"

	"aiinfra/internal/coordinator"
	"aiinfra/internal/keyvault"
	"aiinfra/internal/logging"
	"aiinfra/internal/middleware"
	"aiinfra/internal/providers"
	"aiinfra/internal/storage"
	"aiinfra/internal/utils"
)

// respondWithServiceError maps domain errors onto status codes. Unknown
// errors are logged and reported as 500 without their text.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrProviderNotFound), errors.Is(err, storage.ErrModelNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrProviderExists), errors.Is(err, storage.ErrModelExists):
		utils.RespondWithError(w, http.StatusConflict, rootMessage(err))
	case errors.Is(err, storage.ErrInvalidProvider), errors.Is(err, storage.ErrInvalidModel):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, providers.ErrDiscoveryUnsupported):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, coordinator.ErrNoDiscoverer):
		utils.RespondWithError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, keyvault.ErrDecrypt):
		logging.Errorf("Key vault decryption failed (request_id=%s): %v", middleware.GetRequestID(r.Context()), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Stored key vaults cannot be opened")
	default:
		logging.Errorf("Request %s %s failed (request_id=%s): %v", r.Method, r.URL.Path, middleware.GetRequestID(r.Context()), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

var serviceErrors = []error{
	storage.ErrProviderNotFound, storage.ErrModelNotFound,
	storage.ErrProviderExists, storage.ErrModelExists,
	storage.ErrInvalidProvider, storage.ErrInvalidModel,
	providers.ErrDiscoveryUnsupported, coordinator.ErrNoDiscoverer,
	keyvault.ErrDecrypt,
}

// isServiceError reports whether respondWithServiceError has a specific
// status for err.
func isServiceError(err error) bool {
	for _, target := range serviceErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// rootMessage hides driver details behind the sentinel's text.
func rootMessage(err error) string {
	for _, sentinel := range []error{storage.ErrProviderExists, storage.ErrModelExists} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// userID reads the authenticated user. The JWT middleware guarantees it for
// every /api route, so a miss is a wiring bug.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing user")
	}
	return id, ok
}
