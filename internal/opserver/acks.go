package opserver

import (
	"maps"
	"sync"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
)

// ack is the outcome of one completed mutating request, kept with the
// request it answered.
type ack struct {
	op   string
	args map[string]string
	resp *opsv1.Response
}

// answers reports whether a is the recorded outcome of exactly this request.
func (a ack) answers(op string, args map[string]string) bool {
	return a.op == op && maps.Equal(a.args, args)
}

// ackTable remembers the responses of recently completed mutating requests
// by request id, so a redelivered request is answered without mutating twice.
// Oldest entries are evicted first.
type ackTable struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string]ack
}

func newAckTable(capacity int) *ackTable {
	if capacity <= 0 {
		capacity = 256
	}
	return &ackTable{
		capacity: capacity,
		entries:  make(map[string]ack, capacity),
	}
}

func (t *ackTable) lookup(id string) (ack, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.entries[id]
	return a, ok
}

func (t *ackTable) record(id, op string, args map[string]string, resp *opsv1.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; ok {
		return
	}
	if len(t.order) >= t.capacity {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.entries, oldest)
	}
	t.order = append(t.order, id)
	t.entries[id] = ack{op: op, args: maps.Clone(args), resp: resp}
}

func (t *ackTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
