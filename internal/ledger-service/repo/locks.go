package repo

import (
	"fmt"
	"sync"
)

type lockMode int

const (
	lockShared lockMode = iota + 1
	lockExclusive
)

// lockTable guarda um RWMutex por entidade ("user:1", "bet:7", "match:3").
// As travas vivem até o fim da unidade de trabalho que as adquiriu.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.RWMutex)}
}

func (l *lockTable) get(key string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[key] = m
	}
	return m
}

// heldLocks são as travas de uma unidade de trabalho
type heldLocks struct {
	table *lockTable
	held  map[string]lockMode
	order []string
}

func newHeldLocks(t *lockTable) *heldLocks {
	return &heldLocks{table: t, held: make(map[string]lockMode)}
}

// acquire bloqueia até obter a trava; reentrante dentro da mesma unidade
func (h *heldLocks) acquire(key string, mode lockMode) error {
	if cur, ok := h.held[key]; ok {
		if cur >= mode {
			return nil
		}
		return fmt.Errorf("lock upgrade not supported: %s", key)
	}
	m := h.table.get(key)
	if mode == lockExclusive {
		m.Lock()
	} else {
		m.RLock()
	}
	h.held[key] = mode
	h.order = append(h.order, key)
	return nil
}

func (h *heldLocks) holds(key string, mode lockMode) bool {
	cur, ok := h.held[key]
	return ok && cur >= mode
}

// releaseAll libera na ordem inversa da aquisição
func (h *heldLocks) releaseAll() {
	for i := len(h.order) - 1; i >= 0; i-- {
		key := h.order[i]
		m := h.table.get(key)
		if h.held[key] == lockExclusive {
			m.Unlock()
		} else {
			m.RUnlock()
		}
	}
	h.held = make(map[string]lockMode)
	h.order = nil
}

func userKey(id int64) string  { return fmt.Sprintf("user:%d", id) }
func betKey(id int64) string   { return fmt.Sprintf("bet:%d", id) }
func matchKey(id int64) string { return fmt.Sprintf("match:%d", id) }
