package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes the agent can report to its caller.
// They terminate a query cycle; none of them is retried by the core.
var (
	// ErrEmptyDocument is returned when indexing is requested with no content.
	ErrEmptyDocument = errors.New("document is empty")
	// ErrNoIndex is returned when the RAG path is selected but no index
	// exists for the session.
	ErrNoIndex = errors.New("no index exists for session")
	// ErrUnroutableQuery is returned when the router finds no viable
	// fulfillment path.
	ErrUnroutableQuery = errors.New("query matches no fulfillment path")
	// ErrLocationNotFound is returned when the weather path cannot extract a
	// location from the query.
	ErrLocationNotFound = errors.New("no location found in query")
	// ErrDimensionMismatch is returned when a query vector's dimension does
	// not match the dimension the index was built with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// UpstreamError wraps a failure from an external collaborator (embedder,
// vector store, weather provider, or completion capability) so callers can
// tell infrastructure failures apart from domain-level ones.
type UpstreamError struct {
	Capability string
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Capability, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps err with the name of the capability that failed.
func NewUpstreamError(capability string, err error) *UpstreamError {
	return &UpstreamError{Capability: capability, Err: err}
}
