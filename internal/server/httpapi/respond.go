package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	msgInvalidCredentials = "invalid credentials"
	msgInvalidToken       = "invalid token"
	msgValidationFailed   = "validation failed"
	msgMalformedBody      = "malformed request body"
	msgNotFound           = "not found"
	msgInternal           = "internal error"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// envelope is the body of every API response.
type envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondSuccess(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, envelope{Status: statusSuccess, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	respondJSON(w, status, envelope{Status: statusError, Message: message, Errors: fields})
}

// respondServiceError maps the error taxonomy onto HTTP. Token failures
// collapse to one message, and nothing internal is ever echoed.
func (a *API) respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, msgValidationFailed, verr.Fields)
	case errors.Is(err, common.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, msgInvalidCredentials, nil)
	case errors.Is(err, common.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, msgInvalidToken, nil)
	case errors.Is(err, common.ErrNotFound):
		respondError(w, http.StatusNotFound, msgNotFound, nil)
	default:
		a.logger.Error(r.Context(), "request failed", "op", op, "error", err)
		respondError(w, http.StatusInternalServerError, msgInternal, nil)
	}
}
