// Package peakfind suggests integration regions by locating local maxima
// on a smoothed trace.
package peakfind

import (
	"sort"

	"chromalyzer/internal/analysis/smooth"
	"chromalyzer/internal/trace"
)

// Candidate is one detected peak with a suggested integration window
// spanning the flanking local minima.
type Candidate struct {
	ApexX float64 `json:"apex_x"`
	ApexY float64 `json:"apex_y"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Options tune the detector.
type Options struct {
	// SmoothWindow is the SMA period applied before detection; 0 disables.
	SmoothWindow int `json:"smooth_window"`
	// MinProminence is the minimum apex height as a fraction of the global
	// maximum, in [0, 1]. Defaults to 0.05.
	MinProminence float64 `json:"min_prominence"`
	// MaxPeaks caps the result count, keeping the tallest. 0 means no cap.
	MaxPeaks int `json:"max_peaks"`
}

// Detect returns peak candidates ordered by elution position.
func Detect(t *trace.Trace, opts Options) ([]Candidate, error) {
	if t == nil || t.Len() < 3 {
		return nil, trace.ErrEmpty
	}
	work := t
	if opts.SmoothWindow >= 2 {
		var err error
		work, err = smooth.Apply(t, smooth.MethodSMA, opts.SmoothWindow)
		if err != nil {
			return nil, err
		}
	}
	minProm := opts.MinProminence
	if minProm <= 0 {
		minProm = 0.05
	}
	global, _, err := work.Peak()
	if err != nil {
		return nil, err
	}
	floor := global.Y * minProm

	samples := work.Samples
	var out []Candidate
	for i := 1; i < len(samples)-1; i++ {
		if !isLocalMax(samples, i) || samples[i].Y < floor {
			continue
		}
		start := descendLeft(samples, i)
		end := descendRight(samples, i)
		out = append(out, Candidate{
			ApexX: samples[i].X,
			ApexY: samples[i].Y,
			Start: samples[start].X,
			End:   samples[end].X,
		})
		i = end
	}
	if opts.MaxPeaks > 0 && len(out) > opts.MaxPeaks {
		sort.SliceStable(out, func(a, b int) bool { return out[a].ApexY > out[b].ApexY })
		out = out[:opts.MaxPeaks]
		sort.SliceStable(out, func(a, b int) bool { return out[a].ApexX < out[b].ApexX })
	}
	return out, nil
}

// isLocalMax tolerates plateaus: a sample is a local max when it is not
// lower than either neighbor and strictly higher than at least one.
func isLocalMax(s []trace.Sample, i int) bool {
	left, mid, right := s[i-1].Y, s[i].Y, s[i+1].Y
	if mid < left || mid < right {
		return false
	}
	return mid > left || mid > right
}

func descendLeft(s []trace.Sample, i int) int {
	for i > 0 && s[i-1].Y <= s[i].Y {
		i--
	}
	return i
}

func descendRight(s []trace.Sample, i int) int {
	for i < len(s)-1 && s[i+1].Y <= s[i].Y {
		i++
	}
	return i
}
