package types

// ------------------------------
// Response Types
// ------------------------------

// ExchangeResponse is the backend's answer to a successful exchange.
type ExchangeResponse struct {
	SessionToken string `json:"sessionToken"`
}

// Page wraps one page of a collection endpoint.
//
// HasMore is a pointer because older backend builds omit the flag; when
// absent the caller falls back to the full-page heuristic.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	HasMore *bool `json:"hasMore,omitempty"`
}
