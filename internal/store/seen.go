package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// SeenItem is a feed entry the service already rewrote and published.
type SeenItem struct {
	Hash   string    `json:"hash"`
	Title  string    `json:"title"`
	Link   string    `json:"link"`
	Source string    `json:"source"`
	SeenAt time.Time `json:"seen_at"`
}

// SeenCache keeps feed deduplication state in a JSON file so restarts
// do not republish old entries.
type SeenCache struct {
	filePath string
	ttl      time.Duration
	mu       sync.RWMutex
	items    map[string]SeenItem
}

func NewSeenCache(filePath string, ttl time.Duration) *SeenCache {
	return &SeenCache{
		filePath: filePath,
		ttl:      ttl,
		items:    make(map[string]SeenItem),
	}
}

// Load reads existing state, dropping entries past the TTL.
func (c *SeenCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read seen cache: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var items []SeenItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to unmarshal seen cache: %w", err)
	}

	cutoff := time.Now().Add(-c.ttl)
	for _, item := range items {
		if item.SeenAt.After(cutoff) {
			c.items[item.Hash] = item
		}
	}
	return nil
}

// Save writes the current state back to disk.
func (c *SeenCache) Save() error {
	c.mu.RLock()
	items := make([]SeenItem, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item)
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal seen cache: %w", err)
	}
	if err := os.WriteFile(c.filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write seen cache: %w", err)
	}
	return nil
}

// Hash builds a stable key from the normalized title and the source
// domain, so the same story from mirrors still deduplicates.
func (c *SeenCache) Hash(title, link string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(title))), " ")
	h := sha256.New()
	h.Write([]byte(normalized + "|" + extractDomain(link)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Seen reports whether the entry was already processed within the TTL.
func (c *SeenCache) Seen(hash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[hash]
	if !exists {
		return false
	}
	return item.SeenAt.After(time.Now().Add(-c.ttl))
}

// Mark records an entry as processed.
func (c *SeenCache) Mark(hash, title, link, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[hash] = SeenItem{
		Hash:   hash,
		Title:  title,
		Link:   link,
		Source: source,
		SeenAt: time.Now(),
	}
}

// Cleanup drops expired entries from memory.
func (c *SeenCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.ttl)
	for hash, item := range c.items {
		if item.SeenAt.Before(cutoff) {
			delete(c.items, hash)
		}
	}
}

func extractDomain(link string) string {
	if link == "" {
		return "unknown"
	}
	link = strings.TrimPrefix(link, "http://")
	link = strings.TrimPrefix(link, "https://")
	domain := strings.SplitN(link, "/", 2)[0]
	return strings.ToLower(strings.TrimPrefix(domain, "www."))
}
