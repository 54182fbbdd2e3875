package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/corey/weft/internal/app"
	"github.com/olekukonko/tablewriter"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// useColor is resolved once per invocation in the root PersistentPreRun.
var useColor bool

// paint wraps s in an ANSI color when color output is enabled.
func paint(color, s string) string {
	if !useColor {
		return s
	}
	return color + s + colorReset
}

// formatStats renders the session summary.
//
//	⚡ weft session default │ weighted/fast
//	  corpus 12 │ solutions 0 │ current #3
//	  execs 480 (12.5/s) │ cycles 40 │ runs in cycle 0
//	  started 2026-01-02 15:04:05 (3h12m ago)
func formatStats(s app.Stats, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s │ %s/%s\n",
		paint(colorBold, "⚡ weft session "+s.SessionID), s.Scheduler, s.Strategy))

	current := paint(colorGray, "none")
	if s.Current >= 0 {
		current = fmt.Sprintf("#%d", s.Current)
	}
	sb.WriteString(fmt.Sprintf("  corpus %d │ solutions %d │ current %s\n", s.Corpus, s.Solutions, current))

	execs := fmt.Sprintf("%d", s.Executions)
	if s.ExecsPerSec > 0 {
		execs += fmt.Sprintf(" (%.1f/s)", s.ExecsPerSec)
	}
	sb.WriteString(fmt.Sprintf("  execs %s │ cycles %d │ runs in cycle %d\n", execs, s.QueueCycles, s.RunsInCycle))

	if !s.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("  started %s (%s ago)\n",
			s.StartedAt.Format("2006-01-02 15:04:05"), now.Sub(s.StartedAt).Round(time.Second)))
	}
	return sb.String()
}

// formatCorpus renders the corpus report as a table.
func formatCorpus(entries []app.Entry, weighted bool) string {
	if len(entries) == 0 {
		return "corpus is empty. Add seeds with: weft seed <dir>\n"
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)

	header := []string{"#", "File", "Depth", "Bucket", "Hits", "Level"}
	align := []int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	}
	if weighted {
		header = append(header, "Score")
		align = append(align, tablewriter.ALIGN_RIGHT)
	}
	header = append(header, "Share")
	align = append(align, tablewriter.ALIGN_RIGHT)

	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment(align)

	var hits uint64
	var levels uint64
	for _, e := range entries {
		idx := fmt.Sprintf("%d", e.Index)
		if e.Current {
			idx = "*" + idx
		}
		row := []string{
			idx,
			e.File,
			fmt.Sprintf("%d", e.Depth),
			fmt.Sprintf("%d", e.Bucket),
			fmt.Sprintf("%d", e.Hits),
			fmt.Sprintf("%d", e.FuzzLevel),
		}
		if weighted {
			row = append(row, formatScore(e.Score))
		}
		row = append(row, fmt.Sprintf("%.2f%%", e.Share*100))
		table.Append(row)

		hits += uint64(e.Hits)
		levels += e.FuzzLevel
	}

	footer := []string{"", fmt.Sprintf("Total %d", len(entries)), "", "", fmt.Sprintf("%d", hits), fmt.Sprintf("%d", levels)}
	if weighted {
		footer = append(footer, "")
	}
	footer = append(footer, "100%")
	table.SetFooter(footer)

	table.Render()
	return buf.String()
}

// formatScore prints floored scores compactly.
func formatScore(score float64) string {
	if score < 1 {
		return fmt.Sprintf("%.3g", score)
	}
	return fmt.Sprintf("%.1f", score)
}

// formatPicks renders scheduler picks one per line: "index<TAB>file".
// Plain text so output can be piped into a harness.
func formatPicks(picks []app.Pick) string {
	var sb strings.Builder
	for _, p := range picks {
		sb.WriteString(fmt.Sprintf("%d\t%s\n", p.Index, p.File))
	}
	return sb.String()
}
