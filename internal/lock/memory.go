package lock

import (
	"context"
	"sync"
)

// Memory is an in-process Locker. It only coordinates callers sharing the
// same instance.
type Memory struct {
	mu   sync.Mutex
	held map[string]uint64
	next uint64
}

// NewMemory constructs an empty in-process locker.
func NewMemory() *Memory {
	return &Memory{held: make(map[string]uint64)}
}

// TryAcquire implements Locker.
func (m *Memory) TryAcquire(ctx context.Context, key string) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = make(map[string]uint64)
	}
	if _, ok := m.held[key]; ok {
		return nil, ErrLockHeld
	}
	m.next++
	m.held[key] = m.next
	return &memoryLease{owner: m, key: key, token: m.next}, nil
}

// Held reports whether key is currently locked.
func (m *Memory) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}

type memoryLease struct {
	owner *Memory
	key   string
	token uint64
}

func (l *memoryLease) Release(context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	if l.owner.held[l.key] == l.token {
		delete(l.owner.held, l.key)
	}
	return nil
}
