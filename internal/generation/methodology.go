// Package generation implements the idea generation pipeline: methodology
// prompt assembly, assistant invocation, response parsing and validation,
// and persistence with busy retry.
package generation

import (
	"fmt"
	"os"
	"sync"
)

// Methodology caches the generation methodology document. The file watcher
// calls Invalidate when the document changes on disk, so the next load
// re-reads it.
type Methodology struct {
	path string

	mu      sync.RWMutex
	content string
	loaded  bool
}

// NewMethodology creates a methodology cache for the document at path.
func NewMethodology(path string) *Methodology {
	return &Methodology{path: path}
}

// Path returns the document location.
func (m *Methodology) Path() string { return m.path }

// Load returns the methodology content, reading the file on first use or
// after invalidation. A missing document is a hard error: generation cannot
// proceed without it.
func (m *Methodology) Load() (string, error) {
	m.mu.RLock()
	if m.loaded {
		content := m.content
		m.mu.RUnlock()
		return content, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return m.content, nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return "", fmt.Errorf("failed to load methodology %s: %w", m.path, err)
	}
	m.content = string(data)
	m.loaded = true
	return m.content, nil
}

// Invalidate drops the cached copy.
func (m *Methodology) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = false
	m.content = ""
}
