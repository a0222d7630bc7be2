// Package export serializes traces and metric reports for downstream use.
package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"chromalyzer/internal/trace"
)

// CSVOptions control metadata and precision of the trace CSV.
type CSVOptions struct {
	Precision int
}

const (
	// PrecisionAuto picks a precision from the signal magnitude.
	PrecisionAuto = math.MinInt32
	// PrecisionRaw keeps the shortest exact representation.
	PrecisionRaw = -1
)

// BuildTraceCSV renders one trace as CSV with a leading metadata comment
// line and a header row.
func BuildTraceCSV(t *trace.Trace, opts CSVOptions) string {
	if t == nil || t.Len() == 0 {
		return ""
	}
	precision := opts.Precision
	if precision == PrecisionAuto {
		precision = autoPrecision(t)
	}
	var b strings.Builder
	meta := []string{fmt.Sprintf("Variable=%s", t.Name)}
	if t.Unit != "" {
		meta = append(meta, fmt.Sprintf("Unit=%s", t.Unit))
	}
	if lo, hi, err := t.Domain(); err == nil {
		meta = append(meta, fmt.Sprintf("Domain=%s..%s", formatValue(lo, PrecisionRaw), formatValue(hi, PrecisionRaw)))
	}
	b.WriteString("# " + strings.Join(meta, " ") + "\n")
	b.WriteString("mL,value\n")
	for _, s := range t.Samples {
		b.WriteString(formatValue(s.X, PrecisionRaw))
		b.WriteByte(',')
		b.WriteString(formatValue(s.Y, precision))
		b.WriteByte('\n')
	}
	return b.String()
}

func autoPrecision(t *trace.Trace) int {
	maxVal := 0.0
	for _, s := range t.Samples {
		if abs := math.Abs(s.Y); abs > maxVal {
			maxVal = abs
		}
	}
	switch {
	case maxVal >= 1000:
		return 2
	case maxVal >= 1:
		return 4
	default:
		return PrecisionRaw
	}
}

func formatValue(v float64, precision int) string {
	if precision == PrecisionRaw {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}
