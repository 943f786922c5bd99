package handlers

import (
	"encoding/json"
	"net/http"
)

// apiError is the uniform error envelope of every JSON endpoint: a stable
// machine-readable code plus a message fit for a banner.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse writes the error envelope with the given status.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, apiError{Error: errorCode, Message: message})
}

// WriteJSON encodes data as the JSON response body. A 200 status is left to
// the first write, so encoding failures can still change the status line.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
