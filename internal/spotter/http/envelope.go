package http

import (
	"net/http"

	"github.com/carspotters/spotter/pkg/httpx"
)

// Every response uses the same envelope so clients branch on one field.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeData(w http.ResponseWriter, code int, data any) {
	httpx.WriteJSON(w, code, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	httpx.WriteJSON(w, code, envelope{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, code int, message string) {
	httpx.WriteJSON(w, code, envelope{Success: false, Message: message})
}
