package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
)

var (
	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess = colorFunc(ansi.Green)
	ColorError   = colorFunc(ansi.Red)
	ColorWarning = colorFunc(ansi.Yellow)
	ColorInfo    = colorFunc(ansi.Cyan)
	ColorBold    = colorFunc("default+b")
	ColorDim     = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// ColorEnabled reports whether terminal colors are in use
func ColorEnabled() bool {
	return supportsColor
}

// SetColor forces colors on or off, e.g. for --no-color
func SetColor(enabled bool) {
	supportsColor = enabled
}

// writeHeader draws a boxed title
func writeHeader(w io.Writer, title string) {
	width := 50
	if len(title)+4 > width {
		width = len(title) + 4
	}
	padding := (width - len(title) - 2) / 2

	fmt.Fprintln(w, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(w, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", width-2-padding-len(title)),
	)
	fmt.Fprintln(w, "+"+strings.Repeat("-", width-2)+"+")
}

// writeError prints an error with its cause and suggestion lines dimmed
func writeError(w io.Writer, err error) {
	message := err.Error()
	lines := strings.Split(message, "\n")

	fmt.Fprintf(w, "\n%s %s\n", ColorError("ERROR:"), lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(w, "  %s\n", ColorDim(line))
	}

	if suggestion := getSuggestion(message); suggestion != "" {
		fmt.Fprintf(w, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(suggestion))
	}
}

// getSuggestion returns helpful suggestions based on driver error messages
func getSuggestion(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "suggestions:"):
		// already carries its own suggestions
		return ""
	case strings.Contains(lower, "authentication failed"), strings.Contains(lower, "incorrect username or password"):
		return "Check warehouse.username and the stored password"
	case strings.Contains(lower, "connection refused"):
		return "Verify the warehouse account or host and network connectivity"
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "insufficient privileges"):
		return "Ensure the configured role can write the fact and dimension tables"
	case strings.Contains(lower, "database is locked"), strings.Contains(lower, "could not set lock"):
		return "Another run may hold the DuckDB file; wait for it to finish"
	default:
		return ""
	}
}
