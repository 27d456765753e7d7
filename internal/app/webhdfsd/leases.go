package webhdfsd

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// lease разрешение на одно обращение к DataNode, выданное NameNode при редиректе.
type lease struct {
	op       string
	path     string
	issuedAt time.Time
}

type leaseTable struct {
	mu     sync.Mutex
	leases map[string]lease
}

func newLeaseTable() *leaseTable {
	return &leaseTable{leases: map[string]lease{}}
}

func (t *leaseTable) issue(op, p string) string {
	id := uuid.NewString()
	t.mu.Lock()
	t.leases[id] = lease{op: op, path: p, issuedAt: time.Now()}
	t.mu.Unlock()
	return id
}

// take забирает аренду; она годится только для той же операции над тем же путём.
func (t *leaseTable) take(id, op, p string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.leases[id]
	if !ok || l.op != op || l.path != p {
		return false
	}
	delete(t.leases, id)
	return true
}

// expire удаляет аренды старше ttl и возвращает их число.
func (t *leaseTable) expire(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, l := range t.leases {
		if l.issuedAt.Before(cutoff) {
			delete(t.leases, id)
			n++
		}
	}
	return n
}

func (t *leaseTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.leases)
}
