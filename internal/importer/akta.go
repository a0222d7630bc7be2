package importer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"chromalyzer/internal/logger"
	"chromalyzer/internal/pkg/convert"
	"chromalyzer/internal/trace"
)

// AKTAImporter reads the tab-separated UTF-16 text export of the Unicorn
// software (tested against v7.0 exports). Layout:
//
//	line 0: run title
//	line 1: variable name over the first column of each (x, y) pair
//	line 2: axis units, "ml" under the x column, the signal unit under y
//	line 3+: numeric rows, pairs sampled on independent grids
type AKTAImporter struct{}

func NewAKTA() *AKTAImporter { return &AKTAImporter{} }

// aktaChannels maps Unicorn channel titles to display names. Channels not
// listed are imported under their file title.
var aktaChannels = map[string]string{
	"UV":              "UV",
	"pH":              "pH",
	"Cond":            "Conductivity",
	"Conc B":          "Gradient",
	"System pressure": "System Pressure",
	"PreC pressure":   "Pre-column Pressure",
	"System flow":     "Flow rate",
	"Injection":       "Injection",
	"Fraction":        "Fraction",
}

// Channels where negative readings are instrument artifacts and dropped.
// UV and pH keep negative values (baselines drift below zero).
var aktaDropNegative = map[string]bool{
	"Conductivity":        true,
	"Gradient":            true,
	"System Pressure":     true,
	"Pre-column Pressure": true,
	"Flow rate":           true,
	"Injection":           true,
}

type aktaPair struct {
	name string
	unit string
	xCol int
	yCol int
}

func (a *AKTAImporter) Import(r io.Reader, source string) (*Result, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(
		unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()))
	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var lines [][]string
	for scanner.Scan() {
		lines = append(lines, strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("importer: reading %s: %w", source, err)
	}
	if len(lines) < 4 {
		return nil, fmt.Errorf("%w: %s has %d lines", ErrNoData, source, len(lines))
	}

	pairs := aktaColumnPairs(lines[1], lines[2])
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no recognizable column pairs in %s", ErrNoData, source)
	}

	series := make(map[string][]trace.Sample, len(pairs))
	var fracMarks []trace.Mark
	for _, row := range lines[3:] {
		for _, p := range pairs {
			if p.yCol >= len(row) {
				continue
			}
			xs, ys := strings.TrimSpace(row[p.xCol]), strings.TrimSpace(row[p.yCol])
			if xs == "" || ys == "" {
				continue
			}
			x, okX := convert.ParseFloat(xs)
			if !okX {
				continue
			}
			if p.name == "Fraction" {
				fracMarks = append(fracMarks, trace.Mark{X: x, Label: ys})
				continue
			}
			y, okY := convert.ParseFloat(ys)
			if !okY {
				continue
			}
			if aktaDropNegative[p.name] && (x < 0 || y < 0) {
				continue
			}
			series[p.name] = append(series[p.name], trace.Sample{X: x, Y: y})
		}
	}

	res := &Result{Source: source}
	for _, p := range pairs {
		samples := series[p.name]
		if len(samples) == 0 {
			continue
		}
		t, err := trace.New(p.name, p.unit, samples)
		if err != nil {
			logger.Warnf("importer: skipping channel %s: %v", p.name, err)
			continue
		}
		res.Traces = append(res.Traces, t)
	}
	if len(fracMarks) > 0 {
		res.Fractions = buildFractionSet(fracMarks, res.Traces)
	}
	if len(res.Traces) == 0 && res.Fractions.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, source)
	}
	return res, nil
}

func aktaColumnPairs(names, units []string) []aktaPair {
	var pairs []aktaPair
	for c, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		// UV_CUT is the event channel of the UV cell, not a trace.
		if strings.Contains(name, "UV_CUT") {
			continue
		}
		display, ok := aktaChannels[name]
		if !ok {
			display = name
		}
		unit := ""
		if c+1 < len(units) {
			unit = strings.TrimSpace(units[c+1])
		}
		pairs = append(pairs, aktaPair{name: display, unit: unit, xCol: c, yCol: c + 1})
	}
	return pairs
}

// buildFractionSet brackets the collected marks with a synthetic start mark
// at 0 and a "Waste" mark at the end of the UV trace, matching how the
// collector reports its schedule.
func buildFractionSet(marks []trace.Mark, traces []*trace.Trace) *trace.FractionSet {
	out := make([]trace.Mark, 0, len(marks)+2)
	out = append(out, trace.Mark{X: 0, Label: "1"})
	out = append(out, marks...)
	for _, t := range traces {
		if t.Name != "UV" {
			continue
		}
		if _, hi, err := t.Domain(); err == nil {
			out = append(out, trace.Mark{X: hi, Label: "Waste"})
		}
		break
	}
	return trace.NewFractionSet(out)
}
