package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"chromalyzer/internal/integrate"
)

// notAvailable is what a failed optional metric renders as. Never zero.
const notAvailable = "N/A"

// BuildMetricsReport renders a fixed-precision plain-text block of one
// integration result, suitable for logs and clipboard export. decimal keeps
// the displayed rounding exact instead of drifting through float formatting.
func BuildMetricsReport(region integrate.Region, m integrate.Metrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Variable:          %s\n", region.Variable)
	if region.NetOfBaseline {
		fmt.Fprintf(&b, "Baseline:          %s\n", region.BaselineVariable)
	}
	fmt.Fprintf(&b, "Integration range: %s - %s mL\n", fixed(region.Start, 3), fixed(region.End, 3))
	fmt.Fprintf(&b, "Peak area:         %s mL*mAU\n", fixed(m.Area, 2))
	fmt.Fprintf(&b, "Peak volume:       %s mL\n", fixed(m.Volume, 2))
	fmt.Fprintf(&b, "Apex:              %s mL\n", fixed(m.Apex.X, 3))
	fmt.Fprintf(&b, "Asymmetry (10%%):   %s\n", optional(m.Asymmetry, 3))
	fmt.Fprintf(&b, "Width at 50%%:      %s mL\n", optional(m.HalfHeightWidth, 3))
	fmt.Fprintf(&b, "Plate count:       %s\n", optional(m.PlateCount, 1))
	fmt.Fprintf(&b, "HETP:              %s cm\n", optional(m.HETP, 4))
	fmt.Fprintf(&b, "Amount:            %s", amountLine(m.AmountMg))
	if len(m.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings:          %s", strings.Join(m.Warnings, ", "))
	}
	return b.String()
}

func amountLine(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return fixed(*v, 3) + " mg"
}

func optional(v *float64, places int32) string {
	if v == nil {
		return notAvailable
	}
	return fixed(*v, places)
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
