package blob

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	info Info
	data []byte
	gen  uint64
}

// Memory implements Store backed by process memory. Intended for tests.
type Memory struct {
	mu   sync.Mutex
	objs map[string]*memoryEntry
}

// NewMemory returns an in-memory blob store.
func NewMemory() *Memory { return &Memory{objs: make(map[string]*memoryEntry)} }

// Driver returns the blob driver identifier.
func (s *Memory) Driver() Driver { return DriverMemory }

// Exists reports whether key has been written.
func (s *Memory) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	return ok, nil
}

// Read returns a copy of the stored content and its version info.
func (s *Memory) Read(_ context.Context, key string) ([]byte, Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objs[key]
	if !ok {
		return nil, Info{}, fmt.Errorf("read %s: %w", key, ErrNotFound)
	}
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	return dataCopy, obj.info, nil
}

// Write stores data under key, honoring conditional semantics.
func (s *Memory) Write(_ context.Context, key string, data []byte, opts WriteOptions) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, exists := s.objs[key]
	if opts.ExpectedVersion != nil {
		switch {
		case *opts.ExpectedVersion == "" && exists:
			return Info{}, fmt.Errorf("write %s: %w", key, ErrVersionConflict)
		case *opts.ExpectedVersion != "" && !exists:
			return Info{}, fmt.Errorf("write %s: %w", key, ErrVersionConflict)
		case *opts.ExpectedVersion != "" && exists && obj.info.Version != *opts.ExpectedVersion:
			return Info{}, fmt.Errorf("write %s: %w", key, ErrVersionConflict)
		}
	}
	var gen uint64 = 1
	if exists {
		gen = obj.gen + 1
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	info := Info{
		Key:          key,
		Size:         int64(len(stored)),
		ContentType:  opts.ContentType,
		Version:      strconv.FormatUint(gen, 10),
		LastModified: time.Now().UTC(),
	}
	s.objs[key] = &memoryEntry{info: info, data: stored, gen: gen}
	return info, nil
}
