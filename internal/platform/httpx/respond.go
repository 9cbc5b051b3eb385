// Package httpx carries the JSON plumbing shared by every HTTP handler:
// response encoding, request decoding, and RFC 7807 error payloads.
package httpx

import (
	"encoding/json"
	"net/http"
)

// problem is the RFC 7807 wire shape for error responses.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem writes an RFC 7807 error body. Detail may be empty when the
// title already says enough.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, problem{Title: title, Status: status, Detail: detail})
}

// DecodeJSON reads the request body into target.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
