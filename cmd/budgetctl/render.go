package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorOrange = lipgloss.Color("#DA702C")
	colorMuted  = lipgloss.Color("#6F6E69")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorOrange)
)

// kv is one label/value line of a text report.
type kv struct {
	label string
	value any
}

func renderTitle(out io.Writer, title string) {
	fmt.Fprintln(out, titleStyle.Render(title))
}

// renderPairs prints aligned label/value lines.
func renderPairs(out io.Writer, pairs []kv) {
	width := 0
	for _, p := range pairs {
		if len(p.label) > width {
			width = len(p.label)
		}
	}
	for _, p := range pairs {
		label := labelStyle.Render(fmt.Sprintf("%-*s", width, p.label))
		fmt.Fprintf(out, "  %s  %v\n", label, p.value)
	}
}

// renderTable prints a plain column table with a styled header.
func renderTable(out io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = fmt.Sprintf("%-*s", widths[i], h)
	}
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(strings.Join(cells, "  ")))

	for _, row := range rows {
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		fmt.Fprintf(out, "  %s\n", strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

// renderStatus prints a one-line verdict, green when ok.
func renderStatus(out io.Writer, ok bool, msg string) {
	style := warnStyle
	if ok {
		style = okStyle
	}
	fmt.Fprintf(out, "  %s\n", style.Render(msg))
}
