// Package importer turns instrument export files into trace sets. Two
// importers are provided: the ÄKTA/Unicorn text export and a configurable
// delimited format with per-variable column mappings.
package importer

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"chromalyzer/internal/trace"
)

// ErrNoData marks a file from which no variable could be extracted.
var ErrNoData = errors.New("importer: no data could be extracted")

// Result is one imported run.
type Result struct {
	Traces    []*trace.Trace
	Fractions *trace.FractionSet
	Source    string
}

// Importer parses one file format into a trace set.
type Importer interface {
	Import(r io.Reader, source string) (*Result, error)
}

// Registry maps mode names ("akta", "custom") to importers.
type Registry struct {
	mu        sync.RWMutex
	importers map[string]Importer
}

func NewRegistry() *Registry {
	return &Registry{importers: make(map[string]Importer)}
}

func (r *Registry) Register(mode string, imp Importer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.importers[mode] = imp
}

func (r *Registry) Get(mode string) (Importer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	imp, ok := r.importers[mode]
	if !ok {
		return nil, fmt.Errorf("importer: unknown import mode %q (have %v)", mode, r.modesLocked())
	}
	return imp, nil
}

func (r *Registry) Modes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modesLocked()
}

func (r *Registry) modesLocked() []string {
	out := make([]string, 0, len(r.importers))
	for mode := range r.importers {
		out = append(out, mode)
	}
	sort.Strings(out)
	return out
}
