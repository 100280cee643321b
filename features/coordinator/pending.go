package coordinator

import "sync"

// PendingSet tracks providers with a manual test in flight. Membership is
// the sole mechanism preventing duplicate concurrent tests of the same
// provider; entries are removed in a deferred cleanup path regardless of
// outcome.
type PendingSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewPendingSet() *PendingSet {
	return &PendingSet{ids: make(map[string]struct{})}
}

// Add claims the id. It returns false when a test for the id is already
// pending.
func (p *PendingSet) Add(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.ids[id]; exists {
		return false
	}
	p.ids[id] = struct{}{}
	return true
}

func (p *PendingSet) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.ids, id)
}

func (p *PendingSet) Has(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, exists := p.ids[id]
	return exists
}

func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}
