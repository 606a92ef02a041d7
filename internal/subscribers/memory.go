package subscribers

import (
	"context"
	"sort"
	"sync"
)

// Memory is an ephemeral in-process store. It doubles as the test fake.
type Memory struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func NewMemory(seed ...int64) *Memory {
	m := &Memory{ids: make(map[int64]struct{}, len(seed))}
	for _, id := range seed {
		m.ids[id] = struct{}{}
	}
	return m
}

func (m *Memory) All(ctx context.Context) ([]int64, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *Memory) Add(ctx context.Context, chatID int64) (bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[chatID]; ok {
		return false, nil
	}
	m.ids[chatID] = struct{}{}
	return true, nil
}

func (m *Memory) Remove(ctx context.Context, chatID int64) (bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[chatID]; !ok {
		return false, nil
	}
	delete(m.ids, chatID)
	return true, nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids), nil
}

func (m *Memory) Close() error { return nil }
