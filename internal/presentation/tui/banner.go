package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the console banner followed by the flow being run.
func PrintBanner(w io.Writer, flowID string) {
	out := termenv.NewOutput(w)
	// Subtle gradient (Indigo/Violet)
	lines := []struct{ text, color string }{
		{" __        __   _      __ _               ", "#818cf8"},
		{" \\ \\      / /__| |__  / _| | _____      __", "#a78bfa"},
		{"  \\ \\ /\\ / / _ \\ '_ \\| |_| |/ _ \\ \\ /\\ / /", "#c084fc"},
		{"   \\ V  V /  __/ |_) |  _| | (_) \\ V  V / ", "#e879f9"},
		{"    \\_/\\_/ \\___|_.__/|_| |_|\\___/ \\_/\\_/  ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, Heading(w, "flow "+flowID))
}

// Heading styles a single line such as a state id.
func Heading(w io.Writer, text string) string {
	out := termenv.NewOutput(w)
	return out.String(text).Bold().Foreground(out.Color("#a78bfa")).String()
}
