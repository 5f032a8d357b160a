package rewrite

import (
	"errors"
	"fmt"
)

var errEmptyAfterCleaning = errors.New("backend output empty after cleaning")

// AllChunksFailedError means the backend rejected every chunk of the
// document, so no rewritten text exists at all.
type AllChunksFailedError struct {
	Provider string
	Chunks   int
}

func (e *AllChunksFailedError) Error() string {
	return fmt.Sprintf("provider %s failed on all %d chunks", e.Provider, e.Chunks)
}

// ValidationError reports unusable request input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
