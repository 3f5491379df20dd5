package httpapi

import (
	"encoding/json"
	"net/http"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

// APIResponse is the envelope of every REST response.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) APIResponse {
	return APIResponse{Success: true, Data: data}
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) APIResponse {
	return APIResponse{Success: false, Error: message}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps a service error to its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	status, msg := svcErr.HTTPStatus(err)
	writeJSON(w, status, NewErrorResponse(msg))
}
