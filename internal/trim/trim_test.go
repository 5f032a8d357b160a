package trim

import (
	"strings"
	"testing"
)

func TestToSentenceCutsAtBoundary(t *testing.T) {
	got := ToSentence("Hello world. Second sentence here that is long", 20)
	if got != "Hello world." {
		t.Errorf("got %q, want %q", got, "Hello world.")
	}
}

func TestToSentenceKeepsCompleteText(t *testing.T) {
	text := "Короткий законченный текст."
	if got := ToSentence(text, 100); got != text {
		t.Errorf("got %q, want unchanged", got)
	}
}

func TestToSentenceLookahead(t *testing.T) {
	// The only terminator sits a little past the limit; the lookahead
	// window should still find it.
	text := strings.Repeat("слово ", 18) + "конец. хвост без точки"
	got := ToSentence(text, 100)
	if !strings.HasSuffix(got, "конец.") {
		t.Errorf("expected cut after %q, got %q", "конец.", got)
	}
	if strings.Contains(got, "хвост") {
		t.Errorf("tail after the boundary survived: %q", got)
	}
}

func TestToSentenceEarlyBoundaryIgnored(t *testing.T) {
	// A terminator in the first half is too early; expect a hard cut
	// with a short backward search instead.
	text := "Да. " + strings.Repeat("x", 300)
	got := ToSentence(text, 200)
	if len([]rune(got)) > 200 {
		t.Errorf("result longer than limit: %d runes", len([]rune(got)))
	}
	if got == "Да." {
		t.Errorf("cut collapsed to the early boundary")
	}
}

func TestToSentenceHardCutBacktracks(t *testing.T) {
	text := strings.Repeat("y", 100) + "!" + strings.Repeat("z", 200)
	got := ToSentence(text, 200)
	if !strings.HasSuffix(got, "!") {
		t.Errorf("expected backtrack to the terminator, got %q", got)
	}
}

func TestToSentenceUnsetLimit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drops trailing fragment past midpoint",
			in:   "Первое предложение готово. Второе тоже готово. А третье обрыва",
			want: "Первое предложение готово. Второе тоже готово.",
		},
		{
			name: "keeps text when boundary is too early",
			in:   "Да. " + strings.Repeat("без точки ", 20),
			want: strings.TrimSpace("Да. " + strings.Repeat("без точки ", 20)),
		},
		{
			name: "complete text untouched",
			in:   "Всё уже закончено!",
			want: "Всё уже закончено!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToSentence(tt.in, 0); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToSentenceEmpty(t *testing.T) {
	if got := ToSentence("", 100); got != "" {
		t.Errorf("got %q for empty input", got)
	}
}
