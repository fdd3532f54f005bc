// Package dto holds the JSON shapes of the HTTP API.
package dto

// ErrorResponse is the body of every non-2xx answer. Code is the domain
// error code when one applies.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
