// Package chart renders chromatograms with go-echarts and screenshots them
// to PNG through headless Chrome. The HTTP layer only sees the Renderer
// interface, never the charting library.
package chart

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"chromalyzer/internal/config"
	"chromalyzer/internal/integrate"
	"chromalyzer/internal/trace"
)

// fallbackPalette colors traces that have no configured style.
var fallbackPalette = []string{
	"#1f77b4", "#2ca02c", "#d62728", "#9467bd", "#17becf",
	"#8c564b", "#e377c2", "#bcbd22", "#7f7f7f",
}

// Input describes one chromatogram to draw.
type Input struct {
	Title     string
	Traces    []*trace.Trace
	Fractions *trace.FractionSet
	Region    *integrate.Region
	Metrics   *integrate.Metrics
	Style     config.StyleSnapshot
}

// ImageResult is one rendered PNG.
type ImageResult struct {
	Bytes       []byte `json:"-"`
	Base64      string `json:"base64"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

func (r *ImageResult) DataURI() string {
	if r == nil {
		return ""
	}
	if r.Base64 == "" && len(r.Bytes) > 0 {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	if r.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + r.Base64
}

// Renderer turns traces and metrics into visual output.
type Renderer interface {
	RenderHTML(input Input) ([]byte, error)
	RenderPNG(ctx context.Context, input Input) (ImageResult, error)
}

// EChartsRenderer is the default Renderer.
type EChartsRenderer struct{}

func NewRenderer() *EChartsRenderer { return &EChartsRenderer{} }

// RenderHTML builds the standalone chart page.
func (r *EChartsRenderer) RenderHTML(input Input) ([]byte, error) {
	if len(input.Traces) == 0 {
		return nil, fmt.Errorf("chart: no traces selected")
	}
	line, err := buildChromatogram(input)
	if err != nil {
		return nil, err
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(line)
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPNG renders the page and screenshots it.
func (r *EChartsRenderer) RenderPNG(ctx context.Context, input Input) (ImageResult, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return ImageResult{}, err
	}
	html, err := r.RenderHTML(input)
	if err != nil {
		return ImageResult{}, err
	}
	width, height := pageSize(input.Style.Chart)
	png, err := renderHTMLToPNG(ctx, html, width, height)
	if err != nil {
		return ImageResult{}, err
	}
	name := strings.ToLower(strings.ReplaceAll(input.Title, " ", "_"))
	if name == "" {
		name = "chromatogram"
	}
	return ImageResult{
		Bytes:       png,
		Base64:      base64.StdEncoding.EncodeToString(png),
		Filename:    name + ".png",
		Description: describe(input),
	}, nil
}

func pageSize(c config.ChartConfig) (int, int) {
	width, height := c.WidthPx, c.HeightPx
	if width <= 0 {
		width = 1500
	}
	if height <= 0 {
		height = 560
	}
	return width, height
}

func buildChromatogram(input Input) (*charts.Line, error) {
	style := input.Style.Chart
	width, height := pageSize(style)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           fmt.Sprintf("%dpx", width),
			Height:          fmt.Sprintf("%dpx", height),
			BackgroundColor: style.Background,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      input.Title,
			Subtitle:   subtitle(input),
			Left:       "left",
			TitleStyle: &opts.TextStyle{FontSize: style.FontSizePx + 6},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value",
			Name: "Volume (mL)",
			AxisLabel: &opts.AxisLabel{
				FontSize: style.FontSizePx,
			},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "value",
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{FontSize: style.FontSizePx},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Opacity: opts.Float(0.25)}},
		}),
	)

	for i, t := range input.Traces {
		series := make([]opts.LineData, 0, t.Len())
		for _, s := range t.Samples {
			series = append(series, opts.LineData{Value: []any{s.X, s.Y}})
		}
		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: traceColor(input, t.Name, i), Width: 2}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: traceColor(input, t.Name, i)}),
		}
		if marks := regionMarkLines(input, t.Name); marks != nil {
			seriesOpts = append(seriesOpts, marks...)
		}
		line.AddSeries(legendLabel(t), series, seriesOpts...)
	}

	if input.Fractions.Len() > 0 {
		line.Overlap(fractionOverlay(input))
	}
	return line, nil
}

func legendLabel(t *trace.Trace) string {
	if t.Unit == "" {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.Unit)
}

func traceColor(input Input, name string, idx int) string {
	for _, v := range input.Style.Variables {
		if v.Name == name && v.Color != "" {
			return v.Color
		}
	}
	return fallbackPalette[idx%len(fallbackPalette)]
}

// regionMarkLines draws the integration bounds on the integrated series.
func regionMarkLines(input Input, traceName string) []charts.SeriesOpts {
	if input.Region == nil || input.Region.Variable != traceName {
		return nil
	}
	return []charts.SeriesOpts{
		charts.WithMarkLineNameXAxisItemOpts(
			opts.MarkLineNameXAxisItem{Name: "start", XAxis: input.Region.Start},
			opts.MarkLineNameXAxisItem{Name: "end", XAxis: input.Region.End},
		),
		charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
			Symbol: []string{"none", "none"},
			Label:  &opts.Label{Show: opts.Bool(true), Formatter: "{b}"},
		}),
	}
}

// fractionOverlay draws fraction boundaries as a labelled scatter row at
// the bottom of the plot.
func fractionOverlay(input Input) *charts.Scatter {
	scatter := charts.NewScatter()
	data := make([]opts.ScatterData, 0, input.Fractions.Len())
	for _, m := range input.Fractions.Marks {
		data = append(data, opts.ScatterData{
			Value:  []any{m.X, 0.0},
			Name:   m.Label,
			Symbol: "rect",
		})
	}
	scatter.AddSeries("Fractions", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "bottom", Formatter: "{b}"}),
	)
	return scatter
}

func subtitle(input Input) string {
	if input.Metrics == nil || input.Region == nil {
		return ""
	}
	parts := []string{
		fmt.Sprintf("Area %.2f", input.Metrics.Area),
		fmt.Sprintf("Range %.2f-%.2f mL", input.Region.Start, input.Region.End),
	}
	if input.Metrics.Asymmetry != nil {
		parts = append(parts, fmt.Sprintf("As %.2f", *input.Metrics.Asymmetry))
	}
	if input.Metrics.HETP != nil {
		parts = append(parts, fmt.Sprintf("HETP %.4f cm", *input.Metrics.HETP))
	}
	return strings.Join(parts, " | ")
}

func describe(input Input) string {
	names := make([]string, 0, len(input.Traces))
	for _, t := range input.Traces {
		names = append(names, t.Name)
	}
	desc := strings.Join(names, ", ")
	if sub := subtitle(input); sub != "" {
		desc += " | " + sub
	}
	return desc
}
