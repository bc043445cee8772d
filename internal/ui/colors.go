// Package ui holds the ANSI styling used by help output and run summaries.
package ui

const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan  = "\033[36m"
	ColorGreen = "\033[32m"
	ColorWhite = "\033[97m"
	ColorRed   = "\033[31m"
)

// Bold wraps s in bold styling.
func Bold(s string) string {
	return ColorBold + s + ColorReset
}

// Success renders s as a positive outcome marker.
func Success(s string) string {
	return ColorGreen + s + ColorReset
}

// Error renders s as a failure marker.
func Error(s string) string {
	return ColorRed + s + ColorReset
}
