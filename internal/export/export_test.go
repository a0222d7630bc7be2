package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromalyzer/internal/integrate"
	"chromalyzer/internal/trace"
)

func TestBuildTraceCSV(t *testing.T) {
	tr, err := trace.New("UV", "mAU", []trace.Sample{{X: 0, Y: 1.23456}, {X: 1.5, Y: 2}})
	require.NoError(t, err)

	out := BuildTraceCSV(tr, CSVOptions{Precision: PrecisionAuto})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "# Variable=UV Unit=mAU Domain=0..1.5", lines[0])
	assert.Equal(t, "mL,value", lines[1])
	assert.Equal(t, "0,1.2346", lines[2])
	assert.Equal(t, "1.5,2.0000", lines[3])

	assert.Empty(t, BuildTraceCSV(nil, CSVOptions{}))
}

func TestBuildMetricsReport(t *testing.T) {
	as := 1.05
	m := integrate.Metrics{
		Area:      1234.5,
		Volume:    4,
		Apex:      trace.Sample{X: 10.2, Y: 80},
		Asymmetry: &as,
		Warnings:  []string{integrate.WarnInvalidColumnLength},
	}
	out := BuildMetricsReport(integrate.Region{Variable: "UV", Start: 8, End: 12}, m)

	assert.Contains(t, out, "Peak area:         1234.50 mL*mAU")
	assert.Contains(t, out, "Asymmetry (10%):   1.050")
	assert.Contains(t, out, "HETP:              N/A", "missing metrics render as N/A, not zero")
	assert.Contains(t, out, integrate.WarnInvalidColumnLength)
}
