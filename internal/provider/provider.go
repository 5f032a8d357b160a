// Package provider contains the model backends that rewrite text. Each
// backend implements Rewriter; the rest of the service never needs to
// know whether the words come from a hosted chat model or a local
// paraphrase service.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Style selects the tone of the rewritten text.
type Style string

const (
	StyleScientific Style = "scientific"
	StyleMeme       Style = "meme"
	StyleCasual     Style = "casual"
)

// ParseStyle validates a user-supplied style tag.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleScientific:
		return StyleScientific, nil
	case StyleMeme:
		return StyleMeme, nil
	case StyleCasual:
		return StyleCasual, nil
	case "":
		return StyleCasual, nil
	}
	return "", fmt.Errorf("unknown style %q", s)
}

// Rewriter produces a restyled version of the input text.
type Rewriter interface {
	// Name identifies the backend in logs and rate limit buckets.
	Name() string
	// InputLimit is the maximum input size in runes a single call
	// accepts. Longer documents are split upstream.
	InputLimit() int
	Rewrite(ctx context.Context, text string, style Style) (string, error)
}

// FailureKind classifies why a backend call failed.
type FailureKind string

const (
	FailTimeout     FailureKind = "timeout"
	FailUnreachable FailureKind = "unreachable"
	FailRejected    FailureKind = "rejected"
	FailMalformed   FailureKind = "malformed_response"
)

// Error is a backend failure with enough context to log and to decide
// whether retrying could help.
type Error struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classify wraps a transport-level error with a failure kind.
func classify(provider string, err error) *Error {
	kind := FailUnreachable
	var nerr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = FailTimeout
	case errors.As(err, &nerr) && nerr.Timeout():
		kind = FailTimeout
	}
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// rejected marks an error the backend returned deliberately, such as a
// non-2xx status.
func rejected(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: FailRejected, Err: err}
}

// malformed marks a response the backend produced but we cannot use.
func malformed(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: FailMalformed, Err: err}
}

// ErrUnknown is returned by New for a provider tag it does not know.
var ErrUnknown = errors.New("unknown provider")

// Config carries the credentials and endpoints for every backend. Only
// the fields of the chosen backend are read.
type Config struct {
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	QwenModel         string

	YandexAPIKey   string
	YandexFolderID string

	MLServiceURL    string
	MLServiceAPIKey string

	GeminiAPIKey string
	GeminiModel  string
}

// New builds the backend for a provider tag.
func New(tag string, cfg Config) (Rewriter, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "qwen", "":
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.QwenModel), nil
	case "yandex":
		return NewYandex(cfg.YandexAPIKey, cfg.YandexFolderID), nil
	case "rut5":
		return NewParaphraser("rut5", NewMLClient(cfg.MLServiceURL, cfg.MLServiceAPIKey)), nil
	case "flant5":
		return NewParaphraser("flant5", NewMLClient(cfg.MLServiceURL, cfg.MLServiceAPIKey)), nil
	case "gemini":
		return NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, tag)
}

// Known reports whether tag names a supported backend.
func Known(tag string) bool {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "qwen", "yandex", "rut5", "flant5", "gemini":
		return true
	}
	return false
}
