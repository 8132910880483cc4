// Package store holds the authoritative in-memory poem collection.
//
// Many evaluations may be in flight concurrently, but every mutation of
// a poem's status flags is serialized through the store's mutex, so
// concurrent verdicts never produce interleaved partial writes.
package store

import (
	"strings"
	"sync"

	"versecull/internal/model"
)

// Filter holds query parameters for listing poems.
type Filter struct {
	Query  string // substring match on title or body, case-insensitive
	Status string // "accepted", "deleted", "pending", or "" for all
}

// Counts summarizes the collection by curation state.
type Counts struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Deleted  int `json:"deleted"`
	Edited   int `json:"edited"`
	Pending  int `json:"pending"`
}

// Store is the in-memory, ordered poem collection.
type Store struct {
	mu    sync.Mutex
	poems []model.Poem
	index map[int]int // poem id -> position in poems
}

// New creates an empty store.
func New() *Store {
	return &Store{index: make(map[int]int)}
}

// Load replaces the collection with the given poems, preserving input
// order. Non-positive or duplicate ids are repaired by assigning fresh
// ids above the current maximum.
func (s *Store) Load(poems []model.Poem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxID := 0
	seen := make(map[int]bool, len(poems))
	for _, p := range poems {
		if p.ID > maxID {
			maxID = p.ID
		}
	}

	s.poems = make([]model.Poem, 0, len(poems))
	s.index = make(map[int]int, len(poems))
	for _, p := range poems {
		if p.ID <= 0 || seen[p.ID] {
			maxID++
			p.ID = maxID
		}
		seen[p.ID] = true
		s.index[p.ID] = len(s.poems)
		s.poems = append(s.poems, p)
	}
}

// Accept sets accepted=true and deleted=false on the matching poem.
// It reports false when no poem has the given id. Idempotent.
func (s *Store) Accept(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.poems[i].Accept()
	return true
}

// Delete sets deleted=true and accepted=false on the matching poem.
// It reports false when no poem has the given id. Idempotent.
func (s *Store) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.poems[i].MarkDeleted()
	return true
}

// Edit overwrites the poem's title and body and marks it edited.
// It reports false when no poem has the given id.
func (s *Store) Edit(id int, title, body string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.poems[i].Edit(title, body)
	return true
}

// NextID returns max(existing ids, 0) + 1.
func (s *Store) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIDLocked()
}

func (s *Store) nextIDLocked() int {
	maxID := 0
	for id := range s.index {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// Add appends a poem to the collection. A non-positive or already-used
// id is replaced with the next unused id. The stored poem is returned.
func (s *Store) Add(p model.Poem) model.Poem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID <= 0 {
		p.ID = s.nextIDLocked()
	}
	if _, exists := s.index[p.ID]; exists {
		p.ID = s.nextIDLocked()
	}
	s.index[p.ID] = len(s.poems)
	s.poems = append(s.poems, p)
	return p
}

// Get returns a copy of the poem with the given id.
func (s *Store) Get(id int) (model.Poem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return model.Poem{}, false
	}
	return s.poems[i], true
}

// List returns copies of all poems matching the filter, in collection order.
func (s *Store) List(f Filter) []model.Poem {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(f.Query)
	out := make([]model.Poem, 0, len(s.poems))
	for _, p := range s.poems {
		if f.Status != "" && p.Status() != f.Status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Body), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Snapshot returns a copy of the full collection in order, suitable for
// export or for planning a bulk evaluation run.
func (s *Store) Snapshot() []model.Poem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Poem, len(s.poems))
	copy(out, s.poems)
	return out
}

// Len returns the number of poems in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.poems)
}

// Counts tallies the collection by curation state.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Counts{Total: len(s.poems)}
	for _, p := range s.poems {
		switch {
		case p.Deleted:
			c.Deleted++
		case p.Accepted:
			c.Accepted++
		default:
			c.Pending++
		}
		if p.Edited {
			c.Edited++
		}
	}
	return c
}
