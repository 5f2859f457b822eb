package auth

import "sync"

// LocalTokens is a process-wide registry of single-use grants that let trusted
// in-process code make self-directed requests without re-deriving credentials.
// Construct one per process and inject it; it is safe for concurrent use and
// grants for distinct subject IDs never interfere.
type LocalTokens struct {
	mu     sync.Mutex
	grants map[int64]struct{}
}

// NewLocalTokens constructs an empty grant registry.
func NewLocalTokens() *LocalTokens {
	return &LocalTokens{grants: make(map[int64]struct{})}
}

// Grant records a single-use grant for the subject ID. A still-unconsumed
// grant for the same subject is silently replaced: when two internal callers
// grant for one subject concurrently, the last grant wins and at most one
// Consume observes it. Grants carry no TTL; one that is never consumed stays
// until process exit.
func (t *LocalTokens) Grant(subjectID int64) {
	t.mu.Lock()
	t.grants[subjectID] = struct{}{}
	t.mu.Unlock()
}

// Consume atomically removes the grant for the subject ID and reports whether
// one was present. A grant is observable by exactly one Consume call.
func (t *LocalTokens) Consume(subjectID int64) bool {
	t.mu.Lock()
	_, ok := t.grants[subjectID]
	if ok {
		delete(t.grants, subjectID)
	}
	t.mu.Unlock()
	return ok
}

// Len reports the number of outstanding grants, for leak monitoring.
func (t *LocalTokens) Len() int {
	t.mu.Lock()
	n := len(t.grants)
	t.mu.Unlock()
	return n
}
