// Package session snapshots a complete analysis: the imported traces, the
// view state and the integration setup. A session round-trips through a
// versioned JSON document so saved work reopens exactly as left.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chromalyzer/internal/integrate"
	"chromalyzer/internal/trace"
)

var (
	ErrNotFound = errors.New("session: not found")
	ErrInvalid  = errors.New("session: invalid document")
)

// XRange is an explicit plot window in mL. Nil means auto-fit.
type XRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Session is one saved analysis. Values are treated as immutable once
// stored; edits produce a new Session with the same ID and a bumped
// UpdatedAt.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Traces    []*trace.Trace     `json:"traces"`
	Fractions *trace.FractionSet `json:"fractions,omitempty"`

	Selected []string `json:"selected"`
	Primary  string   `json:"primary"`
	XRange   *XRange  `json:"x_range,omitempty"`

	Regions []integrate.Region `json:"regions,omitempty"`
	Params  integrate.Params   `json:"params"`
}

// New builds a fresh session around an import result.
func New(name, source string, traces []*trace.Trace, fractions *trace.FractionSet) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(source)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalid)
	}
	if len(traces) == 0 {
		return nil, fmt.Errorf("%w: at least one trace required", ErrInvalid)
	}
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
		Traces:    traces,
		Fractions: fractions,
		Primary:   traces[0].Name,
	}
	for _, t := range traces {
		s.Selected = append(s.Selected, t.Name)
	}
	return s, nil
}

// Trace returns the named trace.
func (s *Session) Trace(name string) (*trace.Trace, bool) {
	for _, t := range s.Traces {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Validate checks the cross-field invariants that the JSON schema cannot
// express.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalid)
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		return fmt.Errorf("%w: id is not a uuid: %v", ErrInvalid, err)
	}
	if len(s.Traces) == 0 {
		return fmt.Errorf("%w: no traces", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(s.Traces))
	for _, t := range s.Traces {
		if t == nil || t.Len() < 2 {
			return fmt.Errorf("%w: trace with fewer than two samples", ErrInvalid)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("%w: duplicate trace %q", ErrInvalid, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	if s.Primary != "" {
		if _, ok := s.Trace(s.Primary); !ok {
			return fmt.Errorf("%w: primary variable %q has no trace", ErrInvalid, s.Primary)
		}
	}
	for _, name := range s.Selected {
		if _, ok := s.Trace(name); !ok {
			return fmt.Errorf("%w: selected variable %q has no trace", ErrInvalid, name)
		}
	}
	if s.XRange != nil && s.XRange.End <= s.XRange.Start {
		return fmt.Errorf("%w: x_range end must exceed start", ErrInvalid)
	}
	for _, r := range s.Regions {
		if r.End <= r.Start {
			return fmt.Errorf("%w: region end must exceed start", ErrInvalid)
		}
		if _, ok := s.Trace(r.Variable); !ok {
			return fmt.Errorf("%w: region variable %q has no trace", ErrInvalid, r.Variable)
		}
	}
	return nil
}

// WithUpdate clones the session, applies fn and bumps UpdatedAt. The
// receiver is left untouched.
func (s *Session) WithUpdate(fn func(*Session)) *Session {
	next := *s
	next.Selected = append([]string(nil), s.Selected...)
	next.Regions = append([]integrate.Region(nil), s.Regions...)
	if s.XRange != nil {
		xr := *s.XRange
		next.XRange = &xr
	}
	if fn != nil {
		fn(&next)
	}
	next.UpdatedAt = time.Now().UTC()
	return &next
}
