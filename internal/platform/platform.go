// Package platform fits text to destination network limits.
package platform

import (
	"fmt"
	"os"
	"sort"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// defaultLimits are the caption length caps of the supported networks,
// in runes.
var defaultLimits = map[string]int{
	"telegram":  4096,
	"vk":        10000,
	"instagram": 2200,
}

// Variant is text prepared for one destination.
type Variant struct {
	Text      string `json:"text"`
	Length    int    `json:"length"`
	Truncated bool   `json:"truncated"`
}

// Adapter truncates text per destination. Zero value uses the default
// limits.
type Adapter struct {
	limits map[string]int
}

func New() *Adapter {
	limits := make(map[string]int, len(defaultLimits))
	for k, v := range defaultLimits {
		limits[k] = v
	}
	return &Adapter{limits: limits}
}

type limitsFile struct {
	Platforms map[string]int `yaml:"platforms"`
}

// Load reads per-platform limit overrides from a YAML file. Unknown
// platforms are accepted, non-positive limits are rejected.
func Load(path string) (*Adapter, error) {
	a := New()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return a, nil
		}
		return nil, err
	}
	var parsed limitsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse platform limits: %w", err)
	}
	for name, limit := range parsed.Platforms {
		if limit <= 0 {
			return nil, fmt.Errorf("platform %s: limit must be positive, got %d", name, limit)
		}
		a.limits[name] = limit
	}
	return a, nil
}

// Known reports whether the destination has a configured limit.
func (a *Adapter) Known(dest string) bool {
	_, ok := a.limits[dest]
	return ok
}

// Destinations lists the configured platforms in stable order.
func (a *Adapter) Destinations() []string {
	out := make([]string, 0, len(a.limits))
	for name := range a.limits {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Adapt cuts text to the destination limit. The cut counts runes, not
// bytes, so multibyte text never splits mid-character.
func (a *Adapter) Adapt(text, dest string) (Variant, error) {
	limit, ok := a.limits[dest]
	if !ok {
		return Variant{}, fmt.Errorf("unknown platform %q", dest)
	}
	if utf8.RuneCountInString(text) <= limit {
		return Variant{Text: text, Length: utf8.RuneCountInString(text), Truncated: false}, nil
	}
	runes := []rune(text)
	cut := string(runes[:limit])
	return Variant{Text: cut, Length: limit, Truncated: true}, nil
}

// AdaptAll builds a variant for every configured destination.
func (a *Adapter) AdaptAll(text string) map[string]Variant {
	out := make(map[string]Variant, len(a.limits))
	for _, dest := range a.Destinations() {
		v, _ := a.Adapt(text, dest)
		out[dest] = v
	}
	return out
}
