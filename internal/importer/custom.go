package importer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"chromalyzer/internal/pkg/convert"
	"chromalyzer/internal/trace"
)

// Delimiter names accepted by the custom importer.
const (
	DelimiterTab        = "tab"
	DelimiterComma      = "comma"
	DelimiterWhitespace = "space"
)

// ColumnMapping binds one variable to an x and a y column index (0-based).
type ColumnMapping struct {
	Name string `json:"name" yaml:"name"`
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`
	XCol int    `json:"x_col" yaml:"x_col"`
	YCol int    `json:"y_col" yaml:"y_col"`
}

// FractionMapping binds the fraction marks to a position and label column.
type FractionMapping struct {
	XCol     int `json:"x_col" yaml:"x_col"`
	LabelCol int `json:"label_col" yaml:"label_col"`
}

// CustomOptions describe how to slice an arbitrary delimited export.
type CustomOptions struct {
	Delimiter string           `json:"delimiter" yaml:"delimiter"`
	HeaderRow int              `json:"header_row" yaml:"header_row"`
	Mappings  []ColumnMapping  `json:"mappings" yaml:"mappings"`
	Fractions *FractionMapping `json:"fractions,omitempty" yaml:"fractions,omitempty"`
}

// CustomImporter parses delimited text per a user-defined column mapping.
type CustomImporter struct {
	opts CustomOptions
}

func NewCustom(opts CustomOptions) (*CustomImporter, error) {
	if len(opts.Mappings) == 0 && opts.Fractions == nil {
		return nil, fmt.Errorf("importer: custom import needs at least one column mapping")
	}
	switch opts.Delimiter {
	case DelimiterTab, DelimiterComma, DelimiterWhitespace, "":
	default:
		return nil, fmt.Errorf("importer: unknown delimiter %q", opts.Delimiter)
	}
	if opts.HeaderRow < 0 {
		return nil, fmt.Errorf("importer: header row must be >= 0")
	}
	return &CustomImporter{opts: opts}, nil
}

func (c *CustomImporter) Import(r io.Reader, source string) (*Result, error) {
	rows, err := c.readRows(r)
	if err != nil {
		return nil, fmt.Errorf("importer: reading %s: %w", source, err)
	}
	// Rows up to and including the header row are metadata.
	if len(rows) <= c.opts.HeaderRow+1 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrNoData, source)
	}
	data := rows[c.opts.HeaderRow+1:]

	res := &Result{Source: source}
	for _, m := range c.opts.Mappings {
		var samples []trace.Sample
		for _, row := range data {
			if m.XCol >= len(row) || m.YCol >= len(row) {
				continue
			}
			x, okX := convert.ParseFloat(row[m.XCol])
			y, okY := convert.ParseFloat(row[m.YCol])
			if !okX || !okY {
				continue
			}
			samples = append(samples, trace.Sample{X: x, Y: y})
		}
		t, err := trace.New(m.Name, m.Unit, samples)
		if err != nil {
			continue
		}
		res.Traces = append(res.Traces, t)
	}
	if fm := c.opts.Fractions; fm != nil {
		var marks []trace.Mark
		for _, row := range data {
			if fm.XCol >= len(row) || fm.LabelCol >= len(row) {
				continue
			}
			x, ok := convert.ParseFloat(row[fm.XCol])
			if !ok {
				continue
			}
			label := strings.TrimSpace(row[fm.LabelCol])
			if label == "" {
				continue
			}
			marks = append(marks, trace.Mark{X: x, Label: label})
		}
		if len(marks) > 0 {
			res.Fractions = trace.NewFractionSet(marks)
		}
	}
	if len(res.Traces) == 0 && res.Fractions.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, source)
	}
	return res, nil
}

func (c *CustomImporter) readRows(r io.Reader) ([][]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	if c.opts.Delimiter == DelimiterWhitespace {
		scanner := bufio.NewScanner(decoded)
		scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		var rows [][]string
		for scanner.Scan() {
			rows = append(rows, strings.Fields(scanner.Text()))
		}
		return rows, scanner.Err()
	}
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if c.opts.Delimiter == DelimiterTab {
		reader.Comma = '\t'
	}
	return reader.ReadAll()
}
