package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lzjever/escn/internal/core"
)

// ErrorResponse represents an ESCN error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes an ESCN error response.
func WriteError(w http.ResponseWriter, err *core.AppError) {
	WriteJSON(w, err.Code.HTTPStatus(), ErrorResponse{
		Code:    string(err.Code),
		Message: err.Message,
	})
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// maxBodyBytes caps request bodies; every request type is a small object.
const maxBodyBytes = 4 << 10

// bodyError maps a request body read or decode failure to ESCN_BAD_REQUEST.
func bodyError(err error) *core.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return core.NewAppError(core.ErrBadRequest, "request body too large")
	}
	return core.NewAppError(core.ErrBadRequest, "invalid request body")
}
