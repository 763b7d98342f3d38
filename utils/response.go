package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("[Respond] encode failed")
	}
}

// RespondWithErr maps service errors onto status codes. Anything unknown is a
// 500 with a generic message; the detail goes to the log only.
func RespondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		RespondWithError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrBadRequest):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrSignatureMismatch):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrUpstream):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("[Respond] upstream failure")
		RespondWithError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("[Respond] internal error")
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

type M map[string]interface{}
