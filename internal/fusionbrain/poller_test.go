package fusionbrain

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phoenixlab/rewriter/internal/metrics"
)

// fakeAPI scripts the pipeline endpoints: a fixed pipeline list, a run
// that returns a uuid, and a sequence of status answers.
func fakeAPI(t *testing.T, statuses []string, files []string) *httptest.Server {
	t.Helper()
	call := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Key") != "Key api-key" || r.Header.Get("X-Secret") != "Secret secret-key" {
			t.Errorf("missing auth headers on %s", r.URL.Path)
		}
		switch {
		case r.URL.Path == "/key/api/v1/pipelines":
			w.Write([]byte(`[{"id":"pipe-1"}]`))
		case r.URL.Path == "/key/api/v1/pipeline/run":
			if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
				t.Errorf("run content type = %q", ct)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if got := r.FormValue("pipeline_id"); got != "pipe-1" {
				t.Errorf("pipeline_id = %q", got)
			}
			if params := r.FormValue("params"); !strings.Contains(params, `"GENERATE"`) {
				t.Errorf("params = %q", params)
			}
			w.Write([]byte(`{"uuid":"job-42"}`))
		case strings.HasPrefix(r.URL.Path, "/key/api/v1/pipeline/status/"):
			status := statuses[len(statuses)-1]
			if call < len(statuses) {
				status = statuses[call]
			}
			call++
			switch status {
			case "DONE":
				w.Write([]byte(`{"status":"DONE","result":{"files":["` + files[0] + `"]}}`))
			case "FAIL":
				w.Write([]byte(`{"status":"FAIL","errorDescription":"bad prompt"}`))
			default:
				w.Write([]byte(`{"status":"` + status + `"}`))
			}
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func newTestPoller(t *testing.T, srv *httptest.Server) *Poller {
	t.Helper()
	client := NewClient("api-key", "secret-key")
	client.baseURL = srv.URL + "/"

	store, err := NewArtifactStore(t.TempDir(), "http://localhost:5000")
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}

	p := NewPoller(client, store)
	p.delay = time.Millisecond
	return p
}

func TestGenerateDone(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("fake png bytes"))
	srv := fakeAPI(t, []string{"INITIAL", "PROCESSING", "DONE"}, []string{png})
	defer srv.Close()

	p := newTestPoller(t, srv)
	url, err := p.Generate(context.Background(), "Изображение на тему: запуск спутника")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:5000/uploads/kandinsky_") || !strings.HasSuffix(url, ".png") {
		t.Errorf("url = %q", url)
	}

	name := url[strings.LastIndex(url, "/")+1:]
	data, err := os.ReadFile(filepath.Join(p.artifacts.Dir(), name))
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if string(data) != "fake png bytes" {
		t.Errorf("artifact content = %q", data)
	}
}

func TestGenerateFail(t *testing.T) {
	srv := fakeAPI(t, []string{"PROCESSING", "FAIL"}, nil)
	defer srv.Close()

	p := newTestPoller(t, srv)
	_, err := p.Generate(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "bad prompt") {
		t.Errorf("expected failure with description, got %v", err)
	}
}

func TestGenerateTimesOut(t *testing.T) {
	srv := fakeAPI(t, []string{"PROCESSING"}, nil)
	defer srv.Close()

	p := newTestPoller(t, srv)
	p.maxAttempts = 3

	before := metrics.Global.GetStats()["generation_timeouts"].(int64)
	_, err := p.Generate(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout, got %v", err)
	}
	after := metrics.Global.GetStats()["generation_timeouts"].(int64)
	if after != before+1 {
		t.Errorf("generation_timeouts = %d, want %d", after, before+1)
	}
}

func TestGenerateHonorsContext(t *testing.T) {
	srv := fakeAPI(t, []string{"PROCESSING"}, nil)
	defer srv.Close()

	p := newTestPoller(t, srv)
	p.delay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
