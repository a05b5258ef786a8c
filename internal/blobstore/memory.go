package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store. It counts remote mutations so callers can
// assert idempotency, and exposes a hook that runs before each Update to
// simulate a concurrent writer.
type Memory struct {
	mu      sync.Mutex
	docs    map[string]memoryEntry
	seq     int
	creates int
	updates int

	// BeforeUpdate, if set, runs (without the lock held) before every Update.
	BeforeUpdate func(path string)
}

type memoryEntry struct {
	content []byte
	version Version
	message string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memoryEntry)}
}

func (m *Memory) nextVersion() Version {
	m.seq++
	return Version(fmt.Sprintf("v%d", m.seq))
}

// Fetch implements Store
func (m *Memory) Fetch(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return &Document{Path: path, Content: append([]byte(nil), e.content...), Version: e.version}, nil
}

// Create implements Store
func (m *Memory) Create(ctx context.Context, path, message string, content []byte) (Version, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[path]; ok {
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	v := m.nextVersion()
	m.docs[path] = memoryEntry{content: append([]byte(nil), content...), version: v, message: message}
	m.creates++
	return v, nil
}

// Update implements Store
func (m *Memory) Update(ctx context.Context, path, message string, content []byte, version Version) (Version, error) {
	if hook := m.BeforeUpdate; hook != nil {
		hook(path)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.docs[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if e.version != version {
		return "", fmt.Errorf("%w: %s at %s, have %s", ErrVersionConflict, path, e.version, version)
	}
	v := m.nextVersion()
	m.docs[path] = memoryEntry{content: append([]byte(nil), content...), version: v, message: message}
	m.updates++
	return v, nil
}

// Put seeds a document without counting it as a mutation.
func (m *Memory) Put(path string, content string) Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.nextVersion()
	m.docs[path] = memoryEntry{content: []byte(content), version: v}
	return v
}

// Content returns the stored text of path, or "" if absent.
func (m *Memory) Content(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.docs[path].content)
}

// LastMessage returns the commit message of the last write to path.
func (m *Memory) LastMessage(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[path].message
}

// Mutations returns the number of successful Create and Update calls.
func (m *Memory) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates + m.updates
}
