package types

import "trip-agent/rag"

// CollectRequest triggers a collection action for a session.
type CollectRequest struct {
	Query      string `json:"query" binding:"required"`
	MaxResults int    `json:"max_results"`
	IncludeWeb bool   `json:"include_web"`
}

// CollectResponse reports the collected candidate items.
type CollectResponse struct {
	SessionID string                 `json:"session_id"`
	Items     []rag.SearchResultItem `json:"items"`
}

// RetrieveRequest runs retrieval over a session's collected batch.
type RetrieveRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// RetrieveResponse is the contract the itinerary-generation stage consumes:
// ranked context blocks plus the deduplicated sources behind them. An empty
// result means "insufficient context" and must be handled, not treated as an
// error.
type RetrieveResponse struct {
	ContextBlocks []string        `json:"context_blocks"`
	Sources       []rag.SourceRef `json:"sources"`
	Warning       string          `json:"warning,omitempty"`
}

// SessionResponse reports a created session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}
