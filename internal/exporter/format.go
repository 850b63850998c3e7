package exporter

import (
	"fmt"
)

// formatFloat formats a float64 value for tabular output with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an integer value for tabular output
func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}
