package trace

import "sort"

// Mark is a labelled position on the elution axis, typically a fraction
// collector boundary.
type Mark struct {
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

// FractionSet is an ordered collection of fraction marks.
type FractionSet struct {
	Marks []Mark `json:"marks"`
}

// NewFractionSet copies and sorts marks by position.
func NewFractionSet(marks []Mark) *FractionSet {
	owned := make([]Mark, len(marks))
	copy(owned, marks)
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].X < owned[j].X })
	return &FractionSet{Marks: owned}
}

func (f *FractionSet) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Marks)
}

// Boundaries returns the mark positions, used to snap integration bounds
// to fraction edges.
func (f *FractionSet) Boundaries() []float64 {
	if f == nil {
		return nil
	}
	out := make([]float64, len(f.Marks))
	for i, m := range f.Marks {
		out[i] = m.X
	}
	return out
}

// Nearest returns the boundary closest to x, or false when the set is empty.
func (f *FractionSet) Nearest(x float64) (float64, bool) {
	if f.Len() == 0 {
		return 0, false
	}
	best := f.Marks[0].X
	for _, m := range f.Marks[1:] {
		if abs(m.X-x) < abs(best-x) {
			best = m.X
		}
	}
	return best, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
