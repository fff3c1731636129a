package response

import (
	"encoding/json"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope es el formato común de todas las respuestas.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type Collection struct {
	Items any `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func Success(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Status: StatusSuccess, Data: data})
}

func Message(w http.ResponseWriter, status int, msg string, data any) {
	write(w, status, Envelope{Status: StatusSuccess, Message: msg, Data: data})
}

func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, Envelope{Status: StatusError, Message: msg})
}

func Paginated(w http.ResponseWriter, items any, total, page, limit, pages int) {
	Success(w, http.StatusOK, Collection{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	})
}

func write(w http.ResponseWriter, status int, v Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
