package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatVolume formats a monthly search volume in compact notation.
// e.g., 1234 → "1.2K", 2500000 → "2.5M". Values under a thousand are
// printed as-is.
func FormatVolume(v int) string {
	n := math.Abs(float64(v))
	sign := ""
	if v < 0 {
		sign = "-"
	}
	switch {
	case n >= 1e9:
		return sign + trimZero(fmt.Sprintf("%.1f", n/1e9)) + "B"
	case n >= 1e6:
		return sign + trimZero(fmt.Sprintf("%.1f", n/1e6)) + "M"
	case n >= 1e3:
		return sign + trimZero(fmt.Sprintf("%.1f", n/1e3)) + "K"
	default:
		return fmt.Sprintf("%d", v)
	}
}

// FormatPct formats a percent change with an explicit sign, one decimal.
// e.g., 12.5 → "+12.5%", -3.0 → "-3.0%".
func FormatPct(pct float64) string {
	return fmt.Sprintf("%+.1f%%", pct)
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
