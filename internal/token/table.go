package token

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Purpose is the mutation kind an edit token authorizes. Validation requires
// an exact match.
type Purpose string

const (
	PurposeAppendChild     Purpose = "append_child"
	PurposeUpsertChild     Purpose = "upsert_child"
	PurposeUpdateNode      Purpose = "update_node"
	PurposeAppendToSummary Purpose = "append_to_summary"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeAppendChild, PurposeUpsertChild, PurposeUpdateNode, PurposeAppendToSummary:
		return true
	}
	return false
}

// Pending is an unconsumed edit token: a one-time capability scoped to the
// node it was minted against.
type Pending struct {
	Value       string
	Scope       []int
	Purpose     Purpose
	Fingerprint string
	MintedAt    time.Time
}

const (
	DefaultTTL        = 15 * time.Minute
	DefaultMaxPending = 256
)

// Table is a thread-safe pending-token registry with TTL and max-size
// eviction. Each store instance owns one; tokens never outlive the process.
type Table struct {
	mu         sync.Mutex
	pending    map[string]*Pending
	ttl        time.Duration
	maxPending int
}

// NewTable creates a table. Non-positive ttl or maxPending fall back to the
// defaults.
func NewTable(ttl time.Duration, maxPending int) *Table {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Table{
		pending:    make(map[string]*Pending),
		ttl:        ttl,
		maxPending: maxPending,
	}
}

// Mint issues a fresh single-use token bound to scope, purpose and the node
// fingerprint captured by the caller. Expired entries are evicted first; if
// the table is still full, the oldest pending entry is dropped.
func (t *Table) Mint(scope []int, purpose Purpose, fingerprint string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.evictExpiredLocked()
	for len(t.pending) >= t.maxPending {
		t.evictOldestLocked()
	}

	value := uuid.NewString()
	t.pending[value] = &Pending{
		Value:       value,
		Scope:       append([]int{}, scope...),
		Purpose:     purpose,
		Fingerprint: fingerprint,
		MintedAt:    time.Now(),
	}
	return value
}

// Take removes and returns the pending entry for value. A token is spent by
// the first Take whatever the caller then decides; expired entries are
// treated as absent.
func (t *Table) Take(value string) (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pending[value]
	if !ok {
		return nil, false
	}
	delete(t.pending, value)
	if time.Since(p.MintedAt) > t.ttl {
		return nil, false
	}
	return p, true
}

// Reset drops every pending token. Called when the document is reinitialized:
// tokens minted against the prior generation must not validate.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = make(map[string]*Pending)
}

// Len returns the number of pending tokens.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Table) evictExpiredLocked() {
	now := time.Now()
	for value, p := range t.pending {
		if now.Sub(p.MintedAt) > t.ttl {
			delete(t.pending, value)
		}
	}
}

func (t *Table) evictOldestLocked() {
	var oldest *Pending
	for _, p := range t.pending {
		if oldest == nil || p.MintedAt.Before(oldest.MintedAt) {
			oldest = p
		}
	}
	if oldest != nil {
		delete(t.pending, oldest.Value)
	}
}
