package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTokenLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := NewTokenStore(path)

	token, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	// A pending token does not verify.
	if _, ok := s.Verify(token); ok {
		t.Error("pending token verified")
	}

	user := json.RawMessage(`{"username":"alice"}`)
	if !s.Authorize(token, user) {
		t.Fatal("Authorize returned false")
	}

	got, ok := s.Verify(token)
	if !ok {
		t.Fatal("authorized token did not verify")
	}
	if string(got) != `{"username":"alice"}` {
		t.Errorf("user data = %s", got)
	}
}

func TestTokenUnknownAndPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := NewTokenStore(path)

	if s.Authorize("nope", nil) {
		t.Error("authorized an unknown token")
	}

	token, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}
	s.Authorize(token, json.RawMessage(`{"username":"bob"}`))

	// A new store over the same file sees the authorized token.
	reopened := NewTokenStore(path)
	if _, ok := reopened.Verify(token); !ok {
		t.Error("authorized token lost after reload")
	}
}

func TestTokenDistinct(t *testing.T) {
	s := NewTokenStore(filepath.Join(t.TempDir(), "tokens.json"))
	a, _ := s.Generate()
	b, _ := s.Generate()
	if a == b {
		t.Error("two generated tokens collide")
	}
}

func TestLoadChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	content := `{"channels": ["@news_one", "@news_two"]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	channels := LoadChannels(path)
	if len(channels) != 2 || channels[0] != "@news_one" {
		t.Errorf("channels = %v", channels)
	}

	if got := LoadChannels(filepath.Join(t.TempDir(), "absent.json")); got != nil {
		t.Errorf("missing file: %v", got)
	}
}

func TestSeenCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	c := NewSeenCache(path, 24*time.Hour)
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	hash := c.Hash("Важная новость дня", "https://www.news.example/story/1")
	if c.Seen(hash) {
		t.Error("fresh cache reports seen")
	}

	c.Mark(hash, "Важная новость дня", "https://www.news.example/story/1", "news.example")
	if !c.Seen(hash) {
		t.Error("marked entry not seen")
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened := NewSeenCache(path, 24*time.Hour)
	if err := reopened.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reopened.Seen(hash) {
		t.Error("entry lost after reload")
	}
}

func TestSeenCacheHashNormalizes(t *testing.T) {
	c := NewSeenCache("", time.Hour)
	a := c.Hash("  Важная   Новость ", "https://www.site.example/a")
	b := c.Hash("важная новость", "http://site.example/b")
	if a != b {
		t.Error("hash should ignore case, spacing and path")
	}
	other := c.Hash("важная новость", "https://another.example/a")
	if a == other {
		t.Error("different domains should hash differently")
	}
}

func TestSeenCacheTTL(t *testing.T) {
	c := NewSeenCache("", time.Millisecond)
	hash := c.Hash("запись", "https://site.example")
	c.Mark(hash, "запись", "https://site.example", "site")
	time.Sleep(5 * time.Millisecond)
	if c.Seen(hash) {
		t.Error("expired entry still seen")
	}
	c.Cleanup()
	if len(c.items) != 0 {
		t.Errorf("cleanup left %d items", len(c.items))
	}
}
