package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process ObjectStore for tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	// ListErr and GetErr, when set, are returned instead of results.
	ListErr error
	GetErr  error
}

type memoryObject struct {
	data     []byte
	modified time.Time
}

var _ ObjectStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

// Put stores a copy of data under key.
func (m *Memory) Put(key string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), modified: modified}
}

func (m *Memory) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ObjectInfo
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
			ContentType:  "text/csv",
		})
	}
	// lexical order, like the real listings
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, wrap("memory", "Get", "memory", key, ErrNotFound, nil)
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *Memory) Close() error { return nil }
