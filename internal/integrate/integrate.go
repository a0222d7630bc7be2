// Package integrate computes quantitative peak metrics over a bounded
// window of a chromatography trace: trapezoidal area, baseline-corrected
// net area, asymmetry factor, plate count / HETP and the Beer-Lambert
// protein amount.
package integrate

import (
	"errors"
	"fmt"
	"sort"

	"chromalyzer/internal/trace"
)

var (
	// ErrInvalidInterval marks start >= end or bounds outside the trace domain.
	ErrInvalidInterval = errors.New("integrate: invalid integration interval")
	// ErrMissingBaseline marks net-of-baseline requests without a baseline
	// trace covering the interval.
	ErrMissingBaseline = errors.New("integrate: baseline trace missing or not covering interval")
	// ErrBoundaryCrossingNotFound marks a fractional-height crossing that does
	// not exist inside the interval (peak touches a boundary).
	ErrBoundaryCrossingNotFound = errors.New("integrate: fractional-height crossing not found in interval")
	// ErrInvalidColumnLength marks a non-positive column length.
	ErrInvalidColumnLength = errors.New("integrate: column length must be positive")
	// ErrUnknownVariable marks a region referencing a variable the store
	// does not hold.
	ErrUnknownVariable = errors.New("integrate: unknown variable")
)

// Per-metric failure reasons carried on Metrics.Warnings. Optional metrics
// stay nil when their reason is present; Area remains valid regardless.
const (
	WarnBoundaryCrossingNotFound = "boundary_crossing_not_found"
	WarnInvalidColumnLength      = "invalid_column_length"
	WarnInvalidConcentration     = "invalid_concentration_params"
)

// MilliAbsorbanceScale converts a mAU-based area to the AU basis used by
// Beer-Lambert: amount_mg = area[mAU·mL] * MW / (ε * l * MilliAbsorbanceScale).
// ε is in M⁻¹cm⁻¹, l in cm, MW in g/mol. One convention, applied everywhere.
const MilliAbsorbanceScale = 1000.0

// Fractional heights for the width measurements.
const (
	asymmetryHeightFraction  = 0.10
	halfHeightFraction       = 0.50
	theoreticalPlateConstant = 5.54
)

// Region selects the integration window over one variable, optionally net
// of a baseline variable. Invariant: Start <= End, both inside the domain.
type Region struct {
	Variable         string  `json:"variable"`
	BaselineVariable string  `json:"baseline_variable,omitempty"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	NetOfBaseline    bool    `json:"net_of_baseline"`
}

// ConcentrationParams are the user-supplied Beer-Lambert constants.
type ConcentrationParams struct {
	ExtinctionCoeff float64 `json:"extinction_coeff"`
	PathLengthCm    float64 `json:"path_length_cm"`
	MolecularWeight float64 `json:"molecular_weight"`
}

// Params carries the column and concentration inputs that are independent
// of the trace data.
type Params struct {
	ColumnLengthCm float64              `json:"column_length_cm"`
	Concentration  *ConcentrationParams `json:"concentration,omitempty"`
}

// Metrics is the transient result of one integration. Optional metrics are
// nil pointers when they could not be computed; a nil is surfaced as "N/A",
// never as zero.
type Metrics struct {
	Area            float64      `json:"area"`
	Volume          float64      `json:"volume"`
	Apex            trace.Sample `json:"apex"`
	Asymmetry       *float64     `json:"asymmetry,omitempty"`
	HalfHeightWidth *float64     `json:"half_height_width,omitempty"`
	PlateCount      *float64     `json:"plate_count,omitempty"`
	HETP            *float64     `json:"hetp,omitempty"`
	AmountMg        *float64     `json:"amount_mg,omitempty"`
	NetOfBaseline   bool         `json:"net_of_baseline"`
	Warnings        []string     `json:"warnings,omitempty"`
}

// Compute derives all peak metrics for the region. Pure function over its
// inputs: the traces are never mutated and every call recomputes from
// scratch. Fatal input errors (interval, baseline) return an error; per-metric
// failures leave the metric nil and add a warning.
func Compute(signal, baseline *trace.Trace, region Region, params Params) (Metrics, error) {
	if signal == nil {
		return Metrics{}, fmt.Errorf("%w: no signal trace", ErrInvalidInterval)
	}
	if region.Start >= region.End {
		return Metrics{}, fmt.Errorf("%w: start=%g end=%g", ErrInvalidInterval, region.Start, region.End)
	}
	if !signal.Contains(region.Start) || !signal.Contains(region.End) {
		lo, hi, _ := signal.Domain()
		return Metrics{}, fmt.Errorf("%w: [%g, %g] outside domain [%g, %g]",
			ErrInvalidInterval, region.Start, region.End, lo, hi)
	}

	var window []trace.Sample
	var err error
	if region.NetOfBaseline {
		window, err = netWindow(signal, baseline, region.Start, region.End)
	} else {
		window, err = signal.Window(region.Start, region.End)
	}
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		Area:          Trapezoid(window),
		Volume:        region.End - region.Start,
		NetOfBaseline: region.NetOfBaseline,
	}
	m.Apex, _ = apex(window)

	m.deriveShape(window, params.ColumnLengthCm)
	m.deriveAmount(params.Concentration)
	return m, nil
}

// Trapezoid integrates y over x across consecutive sample pairs.
func Trapezoid(samples []trace.Sample) float64 {
	var area float64
	for i := 1; i < len(samples); i++ {
		dx := samples[i].X - samples[i-1].X
		area += 0.5 * (samples[i-1].Y + samples[i].Y) * dx
	}
	return area
}

// deriveShape fills asymmetry, half-height width, plate count and HETP.
// The window is already net of baseline when requested, so the local
// baseline is zero here.
func (m *Metrics) deriveShape(window []trace.Sample, columnLengthCm float64) {
	front10, tail10, err10 := CrossingsAt(window, asymmetryHeightFraction)
	if err10 != nil {
		m.warn(WarnBoundaryCrossingNotFound)
	} else if w := m.Apex.X - front10; w > 0 {
		as := (tail10 - m.Apex.X) / w
		m.Asymmetry = &as
	} else {
		m.warn(WarnBoundaryCrossingNotFound)
	}

	front50, tail50, err50 := CrossingsAt(window, halfHeightFraction)
	if err50 != nil {
		m.warn(WarnBoundaryCrossingNotFound)
		return
	}
	width := tail50 - front50
	if width <= 0 {
		m.warn(WarnBoundaryCrossingNotFound)
		return
	}
	m.HalfHeightWidth = &width

	ratio := m.Apex.X / width
	n := theoreticalPlateConstant * ratio * ratio
	m.PlateCount = &n

	if columnLengthCm <= 0 {
		m.warn(WarnInvalidColumnLength)
		return
	}
	if n > 0 {
		h := columnLengthCm / n
		m.HETP = &h
	}
}

// deriveAmount back-calculates the protein amount from the (net) area via
// Beer-Lambert. Nil params means the caller did not ask for it.
func (m *Metrics) deriveAmount(p *ConcentrationParams) {
	if p == nil {
		return
	}
	if p.ExtinctionCoeff <= 0 || p.PathLengthCm <= 0 {
		m.warn(WarnInvalidConcentration)
		return
	}
	amount := m.Area * p.MolecularWeight / (p.ExtinctionCoeff * p.PathLengthCm * MilliAbsorbanceScale)
	m.AmountMg = &amount
}

func (m *Metrics) warn(reason string) {
	for _, w := range m.Warnings {
		if w == reason {
			return
		}
	}
	m.Warnings = append(m.Warnings, reason)
}

// CrossingsAt locates the leading and trailing x positions where the curve
// crosses fraction*apexHeight, each interpolated between bracketing samples.
// Both crossings must exist inside the window.
func CrossingsAt(window []trace.Sample, fraction float64) (front, tail float64, err error) {
	if len(window) < 3 {
		return 0, 0, ErrBoundaryCrossingNotFound
	}
	peak, peakIdx := apex(window)
	if peak.Y <= 0 {
		return 0, 0, ErrBoundaryCrossingNotFound
	}
	h := fraction * peak.Y

	front, ok := crossingBackward(window, peakIdx, h)
	if !ok {
		return 0, 0, fmt.Errorf("%w: leading edge at %.0f%% height", ErrBoundaryCrossingNotFound, fraction*100)
	}
	tail, ok = crossingForward(window, peakIdx, h)
	if !ok {
		return 0, 0, fmt.Errorf("%w: trailing edge at %.0f%% height", ErrBoundaryCrossingNotFound, fraction*100)
	}
	return front, tail, nil
}

func apex(window []trace.Sample) (trace.Sample, int) {
	best := 0
	for i, s := range window {
		if s.Y > window[best].Y {
			best = i
		}
	}
	return window[best], best
}

// crossingBackward walks from the apex toward the window start looking for
// a pair of samples bracketing height h on the leading edge.
func crossingBackward(window []trace.Sample, peakIdx int, h float64) (float64, bool) {
	for i := peakIdx; i > 0; i-- {
		hi, lo := window[i], window[i-1]
		if hi.Y >= h && lo.Y < h {
			return interpolateX(lo, hi, h), true
		}
	}
	return 0, false
}

// crossingForward walks from the apex toward the window end for the
// trailing edge.
func crossingForward(window []trace.Sample, peakIdx int, h float64) (float64, bool) {
	for i := peakIdx; i < len(window)-1; i++ {
		hi, lo := window[i], window[i+1]
		if hi.Y >= h && lo.Y < h {
			return interpolateX(hi, lo, h), true
		}
	}
	return 0, false
}

func interpolateX(a, b trace.Sample, h float64) float64 {
	dy := b.Y - a.Y
	if dy == 0 {
		return a.X
	}
	return a.X + (h-a.Y)/dy*(b.X-a.X)
}

// netWindow aligns signal and baseline onto the union of their sampling
// grids inside [start, end] and subtracts the interpolated baseline at each
// position. Instrument channels do not share a grid, so alignment by
// interpolation is mandatory rather than an optimization.
func netWindow(signal, baseline *trace.Trace, start, end float64) ([]trace.Sample, error) {
	if baseline == nil {
		return nil, ErrMissingBaseline
	}
	blo, bhi, err := baseline.Domain()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingBaseline, err)
	}
	if blo > start || bhi < end {
		return nil, fmt.Errorf("%w: baseline [%g, %g] does not cover [%g, %g]",
			ErrMissingBaseline, blo, bhi, start, end)
	}
	sw, err := signal.Window(start, end)
	if err != nil {
		return nil, err
	}
	bw, err := baseline.Window(start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingBaseline, err)
	}
	xs := unionXs(sw, bw)
	out := make([]trace.Sample, len(xs))
	for i, x := range xs {
		sy, err := signal.ValueAt(x)
		if err != nil {
			return nil, err
		}
		by, err := baseline.ValueAt(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingBaseline, err)
		}
		out[i] = trace.Sample{X: x, Y: sy - by}
	}
	return out, nil
}

func unionXs(a, b []trace.Sample) []float64 {
	xs := make([]float64, 0, len(a)+len(b))
	for _, s := range a {
		xs = append(xs, s.X)
	}
	for _, s := range b {
		xs = append(xs, s.X)
	}
	sort.Float64s(xs)
	out := xs[:0]
	for i, x := range xs {
		if i == 0 || x != xs[i-1] {
			out = append(out, x)
		}
	}
	return out
}
