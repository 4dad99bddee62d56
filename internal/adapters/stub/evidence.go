package stub

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

const memoryScheme = "memory://"

// MemoryEvidence keeps uploaded photos in process memory.
type MemoryEvidence struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryEvidence returns an empty store.
func NewMemoryEvidence() *MemoryEvidence {
	return &MemoryEvidence{objects: make(map[string][]byte)}
}

func (m *MemoryEvidence) Store(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read evidence: %w", err)
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return memoryScheme + key, nil
}

func (m *MemoryEvidence) Retrieve(_ context.Context, uri string) (io.ReadCloser, error) {
	key := strings.TrimPrefix(uri, memoryScheme)
	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("evidence %q not found", uri)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
