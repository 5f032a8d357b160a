package fusionbrain

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ArtifactStore writes generated images to the uploads directory and
// maps them to public URLs.
type ArtifactStore struct {
	dir     string
	baseURL string
}

// NewArtifactStore creates the uploads directory if needed. baseURL is
// the external address the files are served under.
func NewArtifactStore(dir, baseURL string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &ArtifactStore{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the directory artifacts are written to.
func (s *ArtifactStore) Dir() string { return s.dir }

// Save writes image bytes under a collision-free name and returns the
// public URL.
func (s *ArtifactStore) Save(data []byte) (string, error) {
	name := fmt.Sprintf("kandinsky_%s_%d.png", uuid.NewString()[:8], time.Now().Unix())
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return s.baseURL + "/uploads/" + name, nil
}
