// Package protocol defines the JSON request/response envelopes exchanged
// over the request-framing layer: a single JSON document per connection
// in, a single JSON document out.
package protocol

import (
	"encoding/json"

	"github.com/nocturnewell/mnemo/internal/engine"
)

// Endpoint names, matching the wire protocol's "endpoint" field exactly.
const (
	EndpointAdd              = "/add"
	EndpointSearch           = "/search"
	EndpointUpdate           = "/update"
	EndpointRemove           = "/remove"
	EndpointUpdatePreference = "/update_preference"
	EndpointGetPreference    = "/get_preference"
)

// Request is the envelope read from the wire: an endpoint name and its
// params, decoded twice — once generically to dispatch on Endpoint, once
// into the endpoint-specific params type.
type Request struct {
	Endpoint string          `json:"endpoint"`
	Params   json.RawMessage `json:"params"`
}

// AddParams is the body of an /add request.
type AddParams struct {
	Content  string `json:"content"`
	Category string `json:"category"`
	ID       string `json:"id"`
}

// AddResponse is the success body of /add.
type AddResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// SearchParams is the body of a /search request.
type SearchParams struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// SearchResponse is the success body of /search.
type SearchResponse struct {
	Success bool                  `json:"success"`
	Results []engine.SearchResult `json:"results"`
}

// UpdateParams is the body of an /update request.
type UpdateParams struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// RemoveParams is the body of a /remove request.
type RemoveParams struct {
	ID string `json:"id"`
}

// UpdatePreferenceParams is the body of an /update_preference request.
type UpdatePreferenceParams struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetPreferenceParams is the body of a /get_preference request.
type GetPreferenceParams struct {
	Key string `json:"key"`
}

// GetPreferenceResponse is the success body of /get_preference.
type GetPreferenceResponse struct {
	Success bool   `json:"success"`
	Value   string `json:"value"`
}

// OKResponse is the success body shared by /update, /remove, and
// /update_preference — they carry no payload beyond success itself.
type OKResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the shape of every failed request, regardless of
// endpoint: the error value never crosses the wire, only its message.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewErrorResponse builds the wire error body for err.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Success: false, Error: err.Error()}
}
