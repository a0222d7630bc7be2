package trace

import (
	"fmt"
	"sync"
)

// Store supplies named traces to the integrator and chart layers.
type Store interface {
	Get(name string) (*Trace, error)
	Put(t *Trace) error
	Remove(name string) error
	Names() []string
	Fractions() *FractionSet
	ReplaceAll(traces []*Trace, fractions *FractionSet)
}

// MemoryStore keeps the imported run resident in memory. Reads are guarded
// for concurrent HTTP handlers; traces themselves are immutable.
type MemoryStore struct {
	mu        sync.RWMutex
	traces    map[string]*Trace
	order     []string
	fractions *FractionSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{traces: make(map[string]*Trace)}
}

func (s *MemoryStore) Get(name string) (*Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.traces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return t, nil
}

func (s *MemoryStore) Put(t *Trace) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("trace: cannot store unnamed trace")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.traces[t.Name]; !exists {
		s.order = append(s.order, t.Name)
	}
	s.traces[t.Name] = t
	return nil
}

func (s *MemoryStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.traces[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(s.traces, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Names returns variable names in import order.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *MemoryStore) Fractions() *FractionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fractions
}

// ReplaceAll swaps the whole run wholesale, the way a new import or a
// loaded session replaces the previous one.
func (s *MemoryStore) ReplaceAll(traces []*Trace, fractions *FractionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces = make(map[string]*Trace, len(traces))
	s.order = s.order[:0]
	for _, t := range traces {
		if t == nil || t.Name == "" {
			continue
		}
		if _, exists := s.traces[t.Name]; !exists {
			s.order = append(s.order, t.Name)
		}
		s.traces[t.Name] = t
	}
	s.fractions = fractions
}

var _ Store = (*MemoryStore)(nil)
