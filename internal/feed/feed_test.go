package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Тестовая лента</title>
    <item>
      <title>Первая новость</title>
      <link>https://example.com/news/1</link>
    </item>
    <item>
      <title>Без ссылки</title>
    </item>
    <item>
      <title>Вторая новость</title>
      <link>https://example.com/news/2</link>
    </item>
  </channel>
</rss>`

func TestLoadFeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	content := "feeds:\n  - https://example.com/rss\n  - https://other.example.com/feed\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	urls, err := LoadFeeds(path)
	if err != nil {
		t.Fatalf("LoadFeeds: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2", len(urls))
	}
	if urls[0] != "https://example.com/rss" {
		t.Errorf("urls[0] = %q", urls[0])
	}
}

func TestLoadFeedsMissingFile(t *testing.T) {
	if _, err := LoadFeeds(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	items := FetchAll(context.Background(), []string{srv.URL})
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (entries without a link are skipped)", len(items))
	}
	if items[0].Title != "Первая новость" || items[0].Link != "https://example.com/news/1" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[0].Source != "Тестовая лента" {
		t.Errorf("source = %q", items[0].Source)
	}
}

func TestFetchAllSkipsBrokenFeed(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer good.Close()

	items := FetchAll(context.Background(), []string{broken.URL, good.URL})
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 from the healthy feed", len(items))
	}
}
