package domain

import (
	"strings"
	"sync"
)

// LocationTable maps free-text destinations to a provider-specific code.
// Lookups are case-insensitive and also try each comma-separated part,
// so "Wilmington, NC" resolves through either "wilmington" or "nc".
type LocationTable struct {
	mu       sync.RWMutex
	codes    map[string]string
	fallback string
}

func NewLocationTable(codes map[string]string) *LocationTable {
	t := &LocationTable{codes: make(map[string]string, len(codes))}
	t.Merge(codes)
	return t
}

// WithFallback sets the code used when nothing matches. Empty means "no match".
func (t *LocationTable) WithFallback(code string) *LocationTable {
	t.mu.Lock()
	t.fallback = code
	t.mu.Unlock()
	return t
}

// Merge adds or overrides entries; later sources win.
func (t *LocationTable) Merge(codes map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range codes {
		k, v = normalizeAlias(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		t.codes[k] = v
	}
}

func (t *LocationTable) Resolve(destination string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if c, ok := t.codes[normalizeAlias(destination)]; ok {
		return c, true
	}
	for _, part := range strings.Split(destination, ",") {
		if c, ok := t.codes[normalizeAlias(part)]; ok {
			return c, true
		}
	}
	if t.fallback != "" {
		return t.fallback, true
	}
	return "", false
}

func (t *LocationTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.codes)
}

func normalizeAlias(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
