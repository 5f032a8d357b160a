package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/phoenixlab/rewriter/internal/provider"
)

// fakeBackend upper-cases its input and fails on chunks listed in
// failOn, keyed by a substring of the chunk text.
type fakeBackend struct {
	limit  int
	failOn []string
	calls  int
}

func (f *fakeBackend) Name() string    { return "fake" }
func (f *fakeBackend) InputLimit() int { return f.limit }

func (f *fakeBackend) Rewrite(_ context.Context, text string, _ provider.Style) (string, error) {
	f.calls++
	for _, marker := range f.failOn {
		if strings.Contains(text, marker) {
			return "", &provider.Error{Provider: "fake", Kind: provider.FailTimeout, Err: context.DeadlineExceeded}
		}
	}
	return strings.ToUpper(text), nil
}

func TestRunSingleChunk(t *testing.T) {
	backend := &fakeBackend{limit: 12000}
	p := New(backend, nil)

	doc, err := p.Run(context.Background(), Request{Text: "Hello world.", Style: provider.StyleCasual})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if doc.Text != "HELLO WORLD." {
		t.Errorf("text = %q", doc.Text)
	}
	if doc.Degraded {
		t.Error("unexpected degraded flag")
	}
	if backend.calls != 1 {
		t.Errorf("calls = %d, want 1", backend.calls)
	}
}

func TestRunFailedChunkKeepsOriginal(t *testing.T) {
	// Three sentences, each about 60 runes, chunk limit 70: every
	// sentence becomes its own chunk and the middle one fails.
	s1 := "First sentence about the city budget and its planning rules. "
	s2 := "Second sentence mentions UNIQMARK and the library repairs. "
	s3 := "Third sentence closes the report with a short conclusion."
	backend := &fakeBackend{limit: 70, failOn: []string{"UNIQMARK"}}
	p := New(backend, nil)

	doc, err := p.Run(context.Background(), Request{Text: s1 + s2 + s3, Style: provider.StyleCasual})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !doc.Degraded {
		t.Error("expected degraded flag")
	}
	if doc.FailedChunks != 1 || doc.TotalChunks != 3 {
		t.Errorf("failed/total = %d/%d, want 1/3", doc.FailedChunks, doc.TotalChunks)
	}
	// Failed chunk survives in original wording, the rest is rewritten.
	if !strings.Contains(doc.Text, "UNIQMARK and the library repairs") {
		t.Errorf("original wording of the failed chunk missing: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "FIRST SENTENCE") || !strings.Contains(doc.Text, "THIRD SENTENCE") {
		t.Errorf("successful chunks not rewritten: %q", doc.Text)
	}
}

func TestRunAllChunksFailed(t *testing.T) {
	backend := &fakeBackend{limit: 12000, failOn: []string{""}}
	p := New(backend, nil)

	_, err := p.Run(context.Background(), Request{Text: "Какой-то текст.", Style: provider.StyleCasual})
	var aerr *AllChunksFailedError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AllChunksFailedError, got %v", err)
	}
	if aerr.Chunks != 1 {
		t.Errorf("chunks = %d", aerr.Chunks)
	}
}

func TestRunCleansBackendOutput(t *testing.T) {
	backend := &prefixBackend{}
	p := New(backend, nil)

	doc, err := p.Run(context.Background(), Request{Text: "Новости дня.", Style: provider.StyleCasual})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(doc.Text, "Вот переписанный текст") {
		t.Errorf("boilerplate survived: %q", doc.Text)
	}
}

type prefixBackend struct{}

func (p *prefixBackend) Name() string    { return "prefix" }
func (p *prefixBackend) InputLimit() int { return 12000 }

func (p *prefixBackend) Rewrite(_ context.Context, text string, _ provider.Style) (string, error) {
	return "Вот переписанный текст: Сегодня случились важные события в городе.", nil
}

func TestRunAppliesLengthTarget(t *testing.T) {
	backend := &fakeBackend{limit: 12000}
	p := New(backend, nil)

	doc, err := p.Run(context.Background(), Request{
		Text:   "Hello world. Second sentence here that is long",
		Style:  provider.StyleCasual,
		MaxLen: 20,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if doc.Text != "HELLO WORLD." {
		t.Errorf("text = %q", doc.Text)
	}
}

type fakeSummarizer struct {
	called bool
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string, _ int) (string, error) {
	f.called = true
	return "Краткое содержание длинного текста.", nil
}

func TestRunSummarizesLongInput(t *testing.T) {
	long := strings.Repeat("Очень длинное предложение о событиях в городе и стране. ", 150)
	backend := &fakeBackend{limit: 12000}
	sum := &fakeSummarizer{}
	p := New(backend, sum)

	doc, err := p.Run(context.Background(), Request{Text: long, Style: provider.StyleCasual})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.called {
		t.Error("summarizer was not called for a long document")
	}
	if !strings.Contains(doc.Text, "КРАТКОЕ СОДЕРЖАНИЕ") {
		t.Errorf("summary was not rewritten: %q", doc.Text)
	}
}

func TestRunShortInputSkipsSummarizer(t *testing.T) {
	backend := &fakeBackend{limit: 12000}
	sum := &fakeSummarizer{}
	p := New(backend, sum)

	if _, err := p.Run(context.Background(), Request{Text: "Короткий текст.", Style: provider.StyleCasual}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.called {
		t.Error("summarizer called for a short document")
	}
}
