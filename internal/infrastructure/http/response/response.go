package response

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse reports a server-side failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse reports a client-side failure
type MessageResponse struct {
	Message string `json:"message"`
}

const internalErrorText = "internal server error"

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Message sends {"message": msg}
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageResponse{Message: msg})
}

// Error sends {"error": err}. When hide is set the detail is replaced by a
// generic text.
func Error(w http.ResponseWriter, status int, err error, hide bool) {
	detail := err.Error()
	if hide {
		detail = internalErrorText
	}
	JSON(w, status, ErrorResponse{Error: detail})
}
