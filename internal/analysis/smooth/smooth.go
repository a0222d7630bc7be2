// Package smooth filters instrument noise out of a trace before peak
// detection. Detector channels on preparative systems are noisy enough
// that raw local maxima are useless without it.
package smooth

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"chromalyzer/internal/trace"
)

// Method selects the moving filter.
type Method string

const (
	MethodSMA Method = "sma"
	MethodEMA Method = "ema"
)

// Apply returns a smoothed copy of the trace; the input is never mutated.
// Window is the filter period in samples; values below 2 return the input
// unchanged.
func Apply(t *trace.Trace, method Method, window int) (*trace.Trace, error) {
	if t == nil || t.Len() == 0 {
		return nil, trace.ErrEmpty
	}
	if window < 2 {
		return t, nil
	}
	if window > t.Len() {
		window = t.Len()
	}
	ys := t.Ys()
	var filtered []float64
	switch method {
	case MethodSMA, "":
		filtered = talib.Sma(ys, window)
	case MethodEMA:
		filtered = talib.Ema(ys, window)
	default:
		return nil, fmt.Errorf("smooth: unknown method %q", method)
	}
	// talib leaves the warm-up prefix at zero; keep the raw samples there
	// so the trace does not grow a fake dip at the start.
	for i := 0; i < window-1 && i < len(filtered); i++ {
		filtered[i] = ys[i]
	}
	return trace.FromSeries(t.Name, t.Unit, t.Xs(), filtered)
}
