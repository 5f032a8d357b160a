// Package rewrite runs a document through a model backend chunk by
// chunk and assembles the restyled result.
package rewrite

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phoenixlab/rewriter/internal/chunk"
	"github.com/phoenixlab/rewriter/internal/logger"
	"github.com/phoenixlab/rewriter/internal/provider"
	"github.com/phoenixlab/rewriter/internal/sanitize"
	"github.com/phoenixlab/rewriter/internal/trim"
)

const (
	// summarizeThreshold is the document size in runes beyond which the
	// text is compressed before rewriting.
	summarizeThreshold = 6000
	// summarizeTarget is the length the summarizer aims for.
	summarizeTarget = 600

	defaultChunkTimeout = 3 * time.Minute
)

// Summarizer compresses a document before it is rewritten. Optional.
type Summarizer interface {
	Summarize(ctx context.Context, text string, targetLength int) (string, error)
}

// Request describes one rewrite job.
type Request struct {
	Text   string
	Style  provider.Style
	MaxLen int // 0 means no length target
}

// Document is the outcome of a rewrite job.
type Document struct {
	Text     string
	Style    provider.Style
	Provider string
	// Degraded is set when at least one chunk kept its original
	// wording because the backend failed on it.
	Degraded bool
	// FailedChunks counts the chunks that fell back to the original.
	FailedChunks int
	TotalChunks  int
}

// Pipeline drives chunking, backend calls and reassembly.
type Pipeline struct {
	backend      provider.Rewriter
	summarizer   Summarizer
	chunkTimeout time.Duration
}

func New(backend provider.Rewriter, summarizer Summarizer) *Pipeline {
	return &Pipeline{
		backend:      backend,
		summarizer:   summarizer,
		chunkTimeout: defaultChunkTimeout,
	}
}

// Run rewrites the request text. A backend failure on one chunk keeps
// that chunk's original wording; the call as a whole fails only when
// every chunk does.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Document, error) {
	text := strings.TrimSpace(req.Text)

	if p.summarizer != nil && utf8.RuneCountInString(text) > summarizeThreshold {
		summary, err := p.summarizer.Summarize(ctx, text, summarizeTarget)
		if err != nil {
			logger.Warn("summarization failed, rewriting full text", "error", err)
		} else if strings.TrimSpace(summary) != "" {
			text = strings.TrimSpace(summary)
		}
	}

	chunks := chunk.Split(text, p.backend.InputLimit())
	parts := make([]string, 0, len(chunks))
	failed := 0

	for _, c := range chunks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out, err := p.rewriteChunk(ctx, c.Content, req.Style)
		if err != nil {
			logger.Warn("chunk rewrite failed, keeping original wording",
				"provider", p.backend.Name(), "ordinal", c.Ordinal, "error", err)
			failed++
			out = c.Content
		}
		parts = append(parts, strings.TrimSpace(out))
	}

	if len(chunks) > 0 && failed == len(chunks) {
		return nil, &AllChunksFailedError{Provider: p.backend.Name(), Chunks: failed}
	}

	result := strings.TrimSpace(strings.Join(parts, " "))
	result = sanitize.Clean(result)
	result = trim.ToSentence(result, req.MaxLen)

	return &Document{
		Text:         result,
		Style:        req.Style,
		Provider:     p.backend.Name(),
		Degraded:     failed > 0,
		FailedChunks: failed,
		TotalChunks:  len(chunks),
	}, nil
}

func (p *Pipeline) rewriteChunk(ctx context.Context, text string, style provider.Style) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.chunkTimeout)
	defer cancel()

	out, err := p.backend.Rewrite(ctx, text, style)
	if err != nil {
		return "", err
	}
	cleaned := sanitize.Clean(out)
	if strings.TrimSpace(cleaned) == "" {
		return "", &provider.Error{
			Provider: p.backend.Name(),
			Kind:     provider.FailMalformed,
			Err:      errEmptyAfterCleaning,
		}
	}
	return cleaned, nil
}
