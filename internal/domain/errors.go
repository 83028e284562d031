package domain

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared by the retrieval core. Components wrap them with
// goerr.Wrap so callers can classify failures with errors.Is.
var (
	// ErrConfiguration is fatal and not retryable until configuration changes.
	ErrConfiguration = goerr.New("invalid configuration")
	// ErrLoad reports an unreadable or unparseable corpus source.
	ErrLoad = goerr.New("failed to load corpus")
	// ErrEmbedding reports an embedding backend failure.
	ErrEmbedding = goerr.New("embedding failed")
	// ErrIndex reports an index misuse such as a dimension mismatch.
	ErrIndex = goerr.New("vector index error")
	// ErrInvalidQuery reports a malformed similarity query.
	ErrInvalidQuery = goerr.New("invalid similarity query")
)
