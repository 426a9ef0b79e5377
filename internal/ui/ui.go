package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// UI writes human-readable command output
type UI struct {
	Out     io.Writer
	Verbose bool
	Quiet   bool
}

// NewUI creates a UI writing to stdout
func NewUI(verbose, quiet bool) *UI {
	return &UI{
		Out:     os.Stdout,
		Verbose: verbose,
		Quiet:   quiet,
	}
}

// IsVerbose returns true if verbose mode is enabled
func (u *UI) IsVerbose() bool {
	return u.Verbose
}

// IsQuiet returns true if quiet mode is enabled
func (u *UI) IsQuiet() bool {
	return u.Quiet
}

// Printf prints formatted output if not in quiet mode
func (u *UI) Printf(format string, args ...interface{}) {
	if !u.Quiet {
		fmt.Fprintf(u.Out, format, args...)
	}
}

// VerbosePrintf prints formatted output only in verbose mode
func (u *UI) VerbosePrintf(format string, args ...interface{}) {
	if u.Verbose && !u.Quiet {
		fmt.Fprintf(u.Out, format, args...)
	}
}

// Header displays a boxed header
func (u *UI) Header(title string) {
	if !u.Quiet {
		writeHeader(u.Out, title)
	}
}

// Section prints a section title
func (u *UI) Section(title string) {
	if !u.Quiet {
		fmt.Fprintf(u.Out, "\n%s\n%s\n", ColorBold(title), strings.Repeat("-", len(title)))
	}
}

// Success prints a success message
func (u *UI) Success(message string) {
	if !u.Quiet {
		fmt.Fprintf(u.Out, "%s %s\n", ColorSuccess("SUCCESS:"), message)
	}
}

// Warning prints a warning message
func (u *UI) Warning(message string) {
	if !u.Quiet {
		fmt.Fprintf(u.Out, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
	}
}

// Info prints an information message
func (u *UI) Info(message string) {
	if !u.Quiet {
		fmt.Fprintf(u.Out, "%s %s\n", ColorInfo("INFO:"), message)
	}
}

// Error prints an error. Errors are shown even in quiet mode.
func (u *UI) Error(err error) {
	writeError(u.Out, err)
}

// KeyValue prints an aligned key-value pair
func (u *UI) KeyValue(key string, value interface{}) {
	if !u.Quiet {
		fmt.Fprintf(u.Out, "  %-22s %v\n", ColorDim(key+":"), value)
	}
}
