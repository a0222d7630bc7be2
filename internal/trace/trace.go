// Package trace holds sampled chromatography curves: one named variable
// (UV, pH, conductivity, ...) per trace, ordered by elution volume.
package trace

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmpty marks a trace with too few samples to interpolate.
	ErrEmpty = errors.New("trace: not enough samples")
	// ErrOutOfDomain marks an x position outside the sampled range.
	ErrOutOfDomain = errors.New("trace: x outside sampled domain")
	// ErrNotFound marks a variable name missing from a store.
	ErrNotFound = errors.New("trace: variable not found")
)

// Sample is one measurement point. X is elution volume (or time) and is
// monotonically non-decreasing within a trace; Y is signal intensity.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trace is an immutable ordered sample sequence for one variable.
// Samples must not be mutated after construction.
type Trace struct {
	Name    string   `json:"name"`
	Unit    string   `json:"unit"`
	Samples []Sample `json:"samples"`
}

// New copies samples, sorts them by X and returns the trace.
func New(name, unit string, samples []Sample) (*Trace, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: %q has %d samples", ErrEmpty, name, len(samples))
	}
	owned := make([]Sample, len(samples))
	copy(owned, samples)
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].X < owned[j].X })
	return &Trace{Name: name, Unit: unit, Samples: owned}, nil
}

func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Samples)
}

// Domain returns the sampled x range.
func (t *Trace) Domain() (lo, hi float64, err error) {
	if t.Len() < 2 {
		return 0, 0, ErrEmpty
	}
	return t.Samples[0].X, t.Samples[len(t.Samples)-1].X, nil
}

// Contains reports whether x lies inside the sampled domain.
func (t *Trace) Contains(x float64) bool {
	lo, hi, err := t.Domain()
	if err != nil {
		return false
	}
	return x >= lo && x <= hi
}

// ValueAt linearly interpolates the signal at x. Interpolation only,
// never extrapolation: x outside the domain is an error.
func (t *Trace) ValueAt(x float64) (float64, error) {
	if t.Len() < 2 {
		return 0, ErrEmpty
	}
	lo, hi, _ := t.Domain()
	if x < lo || x > hi {
		return 0, fmt.Errorf("%w: x=%g domain=[%g, %g]", ErrOutOfDomain, x, lo, hi)
	}
	// First sample with X >= x.
	i := sort.Search(len(t.Samples), func(i int) bool { return t.Samples[i].X >= x })
	if i < len(t.Samples) && t.Samples[i].X == x {
		return t.Samples[i].Y, nil
	}
	left, right := t.Samples[i-1], t.Samples[i]
	dx := right.X - left.X
	if dx == 0 {
		return left.Y, nil
	}
	frac := (x - left.X) / dx
	return left.Y + frac*(right.Y-left.Y), nil
}

// Window returns the clipped subsequence over [start, end] with exact,
// interpolated boundary samples, so integration windows carry no
// truncation bias from the sampling grid.
func (t *Trace) Window(start, end float64) ([]Sample, error) {
	if t.Len() < 2 {
		return nil, ErrEmpty
	}
	if start > end {
		return nil, fmt.Errorf("%w: start=%g > end=%g", ErrOutOfDomain, start, end)
	}
	ys, err := t.ValueAt(start)
	if err != nil {
		return nil, err
	}
	ye, err := t.ValueAt(end)
	if err != nil {
		return nil, err
	}
	out := make([]Sample, 0, 16)
	out = append(out, Sample{X: start, Y: ys})
	for _, s := range t.Samples {
		if s.X > start && s.X < end {
			out = append(out, s)
		}
	}
	out = append(out, Sample{X: end, Y: ye})
	return out, nil
}

// Peak returns the sample with the maximum Y and its index.
func (t *Trace) Peak() (Sample, int, error) {
	if t.Len() == 0 {
		return Sample{}, -1, ErrEmpty
	}
	best := 0
	for i, s := range t.Samples {
		if s.Y > t.Samples[best].Y {
			best = i
		}
	}
	return t.Samples[best], best, nil
}

// Xs returns a copy of the x coordinates.
func (t *Trace) Xs() []float64 {
	out := make([]float64, t.Len())
	for i, s := range t.Samples {
		out[i] = s.X
	}
	return out
}

// Ys returns a copy of the y coordinates.
func (t *Trace) Ys() []float64 {
	out := make([]float64, t.Len())
	for i, s := range t.Samples {
		out[i] = s.Y
	}
	return out
}

// FromSeries zips parallel x/y slices into a trace.
func FromSeries(name, unit string, xs, ys []float64) (*Trace, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("trace: x/y length mismatch (%d vs %d)", len(xs), len(ys))
	}
	samples := make([]Sample, len(xs))
	for i := range xs {
		samples[i] = Sample{X: xs[i], Y: ys[i]}
	}
	return New(name, unit, samples)
}
