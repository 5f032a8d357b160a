package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{"scientific", StyleScientific, false},
		{"meme", StyleMeme, false},
		{"casual", StyleCasual, false},
		{" Casual ", StyleCasual, false},
		{"", StyleCasual, false},
		{"poetic", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStyle(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseStyle(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStyle(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStyle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewDispatch(t *testing.T) {
	cfg := Config{OpenRouterAPIKey: "k", YandexAPIKey: "k", MLServiceURL: "http://localhost:8001"}
	for _, tag := range []string{"qwen", "yandex", "rut5", "flant5", "gemini"} {
		r, err := New(tag, cfg)
		if err != nil {
			t.Fatalf("New(%q): %v", tag, err)
		}
		if r.InputLimit() <= 0 {
			t.Errorf("New(%q): non-positive input limit", tag)
		}
	}
	if _, err := New("llama", cfg); !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
}

func TestMLInputLimitIsSmall(t *testing.T) {
	p := NewParaphraser("rut5", NewMLClient("http://localhost:8001", "key"))
	if p.InputLimit() != 200 {
		t.Errorf("paraphraser limit = %d, want 200", p.InputLimit())
	}
	q := NewOpenRouter("key", "", "")
	if q.InputLimit() != 12000 {
		t.Errorf("chat limit = %d, want 12000", q.InputLimit())
	}
}

func TestYandexRewrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("bad auth header %q", got)
		}
		if got := r.Header.Get("x-folder-id"); got != "folder-1" {
			t.Errorf("bad folder header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output_text": "Переписанный текст статьи."}`))
	}))
	defer srv.Close()

	y := NewYandex("secret", "folder-1")
	y.baseURL = srv.URL

	got, err := y.Rewrite(context.Background(), "Исходный текст статьи.", StyleCasual)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got != "Переписанный текст статьи." {
		t.Errorf("got %q", got)
	}
}

func TestYandexRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	y := NewYandex("secret", "folder-1")
	y.baseURL = srv.URL

	_, err := y.Rewrite(context.Background(), "текст", StyleCasual)
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if perr.Kind != FailRejected {
		t.Errorf("kind = %s, want %s", perr.Kind, FailRejected)
	}
	if perr.Provider != "yandex" {
		t.Errorf("provider = %s", perr.Provider)
	}
}

func TestParaphraserRewrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/paraphrase" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "ml-key" {
			t.Errorf("bad api key header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"paraphrased": "Сегодня погода хорошая", "original": "x", "similarity_score": 0.9}`))
	}))
	defer srv.Close()

	p := NewParaphraser("rut5", NewMLClient(srv.URL, "ml-key"))
	got, err := p.Rewrite(context.Background(), "Сегодня хорошая погода", StyleCasual)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got != "Сегодня погода хорошая" {
		t.Errorf("got %q", got)
	}
}

func TestParaphraserUnreachable(t *testing.T) {
	// Port from a closed test server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewParaphraser("rut5", NewMLClient(url, "ml-key"))
	_, err := p.Rewrite(context.Background(), "текст", StyleCasual)
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if perr.Kind != FailUnreachable {
		t.Errorf("kind = %s, want %s", perr.Kind, FailUnreachable)
	}
}

func TestMLClientSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/summarize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"summary": "Краткий пересказ.", "original_length": 100, "summary_length": 17}`))
	}))
	defer srv.Close()

	c := NewMLClient(srv.URL, "ml-key")
	got, err := c.Summarize(context.Background(), "длинный текст", 600)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "Краткий пересказ." {
		t.Errorf("got %q", got)
	}
}
