package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	texts := []string{
		"",
		"Привет.",
		"One sentence without terminator",
		"Two sentences. Still short!",
	}
	for _, text := range texts {
		chunks := Split(text, 200)
		if len(chunks) != 1 {
			t.Errorf("Split(%q) = %d chunks, want 1", text, len(chunks))
			continue
		}
		if chunks[0].Content != text {
			t.Errorf("single chunk content = %q, want %q", chunks[0].Content, text)
		}
	}
}

func TestSplit_ConcatenationReconstructsInput(t *testing.T) {
	texts := []string{
		strings.Repeat("Это первое предложение. ", 20),
		"First sentence here. Second one follows! Third asks a question? Fourth ends.\n\nNew paragraph starts. " + strings.Repeat("More text goes on. ", 30),
		"No terminators at all just words " + strings.Repeat("again and again ", 40),
		"Ends without space after dot.Weird. But still fine. " + strings.Repeat("Tail sentence. ", 25),
	}
	for _, text := range texts {
		chunks := Split(text, 200)
		var b strings.Builder
		for i, c := range chunks {
			if c.Ordinal != i {
				t.Errorf("chunk %d has ordinal %d", i, c.Ordinal)
			}
			if c.Content != text[c.Start:c.End] {
				t.Errorf("chunk %d content does not match its span", i)
			}
			b.WriteString(c.Content)
		}
		if b.String() != text {
			t.Errorf("concatenated chunks do not reconstruct input (len %d vs %d)", b.Len(), len(text))
		}
	}
}

func TestSplit_BoundariesAtSentenceEnds(t *testing.T) {
	text := strings.Repeat("Sentence number one goes here. ", 30)
	chunks := Split(text, 200)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if utf8.RuneCountInString(c.Content) > 200 {
			t.Errorf("chunk %d exceeds max size: %d runes", i, utf8.RuneCountInString(c.Content))
		}
		if i == len(chunks)-1 {
			continue
		}
		trimmed := strings.TrimRight(c.Content, " \n\t")
		if !strings.HasSuffix(trimmed, ".") && !strings.HasSuffix(trimmed, "!") && !strings.HasSuffix(trimmed, "?") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", i, trimmed[len(trimmed)-10:])
		}
	}
}

func TestSplit_450CharsAt200Threshold(t *testing.T) {
	// Three sentences of ~150 chars each: no two fit a 200-char chunk.
	s := strings.Repeat("abcde ", 24) + "end. " // 149 chars
	text := strings.TrimRight(s+s+s, " ")
	if len(text) != 446 {
		t.Fatalf("fixture length = %d", len(text))
	}
	chunks := Split(text, 200)
	if len(chunks) != 3 {
		t.Fatalf("Split = %d chunks, want 3", len(chunks))
	}
}

func TestSplit_OversizedSentenceKeptWhole(t *testing.T) {
	long := strings.Repeat("word ", 60) + "end."
	text := "Short lead. " + long + " Short tail."
	chunks := Split(text, 100)
	found := false
	for _, c := range chunks {
		if strings.Contains(c.Content, long) {
			found = true
		}
		if strings.Contains(c.Content, "word word") && !strings.Contains(c.Content, "end.") {
			t.Errorf("oversized sentence was cut mid-way: %q", c.Content)
		}
	}
	if !found {
		t.Errorf("oversized sentence not kept whole across chunks")
	}
}
