package app

import (
	"errors"
	"strings"
	"testing"

	"github.com/phoenixlab/rewriter/internal/rewrite"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ProcessRequest
		wantErr bool
	}{
		{"url only", ProcessRequest{URL: "https://example.com", Provider: "qwen"}, false},
		{"text only", ProcessRequest{Text: "прямой текст", Provider: "yandex"}, false},
		{"empty provider is allowed", ProcessRequest{Text: "прямой текст"}, false},
		{"neither", ProcessRequest{}, true},
		{"both", ProcessRequest{URL: "https://example.com", Text: "текст"}, true},
		{"unknown provider", ProcessRequest{Text: "текст", Provider: "gpt9"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var validationErr *rewrite.ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("error should be a ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "qwen"},
		{"  Yandex ", "yandex"},
		{"rut5", "rut5"},
	}
	for _, tt := range tests {
		if got := normalizeTag(tt.in); got != tt.want {
			t.Errorf("normalizeTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("привет", 10); got != "привет" {
		t.Errorf("short text changed: %q", got)
	}
	got := truncateRunes(strings.Repeat("я", 200), 100)
	if len([]rune(got)) != 100 {
		t.Errorf("got %d runes, want 100", len([]rune(got)))
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<b>Заголовок</b> и <a href=\"x\">ссылка</a>", "Заголовок и ссылка"},
		{"без разметки", "без разметки"},
		{"сущности: &amp; &lt; &quot;", "сущности: & < \""},
		{"  лишние   пробелы  ", "лишние пробелы"},
	}
	for _, tt := range tests {
		if got := plainText(tt.in); got != tt.want {
			t.Errorf("plainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
