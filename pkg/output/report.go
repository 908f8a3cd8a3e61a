package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/pokegraph/pkg/payload"
)

// barWidth is the length of the longest bar in the trigger chart.
const barWidth = 30

// ReportInfo carries the details of a refresh that are not part of the payload.
type ReportInfo struct {
	Source  string
	Skipped int
}

// PrintReport writes a colored summary of the evolution graph metrics.
func PrintReport(w io.Writer, p *payload.Payload, info ReportInfo) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	m := p.Metrics

	bold.Fprintln(w, "Pokémon Evolution Graph - Report")
	bold.Fprintln(w, "================================")
	if info.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", info.Source)
	}
	if p.DatasetVersion != "" {
		fmt.Fprintf(w, "Version: %s\n", p.DatasetVersion)
	}
	if p.Fallback {
		yellow.Fprintln(w, "⚠ Using demonstration data: no evolution rows could be loaded")
	}
	if info.Skipped > 0 {
		yellow.Fprintf(w, "Skipped %d malformed row(s)\n", info.Skipped)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Species:    %d\n", m.NodeCount)
	fmt.Fprintf(w, "Evolutions: %d\n", m.EdgeCount)
	if m.TopHub.Name == "" || m.NodeCount <= 1 {
		fmt.Fprintf(w, "Hub:        %s\n", m.TopHub.Name)
	} else {
		fmt.Fprint(w, "Hub:        ")
		cyan.Fprint(w, m.TopHub.Name)
		fmt.Fprintf(w, " (%d connection(s), centrality %.3f)\n", m.TopHub.Connections, m.TopHub.Centrality)
	}
	fmt.Fprintln(w)

	bold.Fprintln(w, "LONGEST EVOLUTION CHAIN")
	if m.LongestChain.Cyclic {
		red.Fprintln(w, "  N/A (cycle detected)")
	} else {
		green.Fprintf(w, "  %d stage(s)", m.LongestChain.Length)
		if len(m.LongestChain.Path) > 0 {
			fmt.Fprintf(w, ": %s", strings.Join(m.LongestChain.Path, " → "))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	bold.Fprintln(w, "MOST COMMON TRIGGERS")
	if len(m.TriggerFrequency) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}

	labelWidth := 0
	for _, lc := range m.TriggerFrequency {
		labelWidth = max(labelWidth, len([]rune(lc.Label)))
	}
	top := m.TriggerFrequency[0].Count
	for _, lc := range m.TriggerFrequency {
		fmt.Fprintf(w, "  %-*s ", labelWidth, lc.Label)
		cyan.Fprint(w, bar(lc.Count, top))
		fmt.Fprintf(w, " %d\n", lc.Count)
	}
}

// bar scales count against the largest count. Non-zero counts get at least one block.
func bar(count, top int) string {
	if top <= 0 || count <= 0 {
		return ""
	}
	n := max(count*barWidth/top, 1)
	return strings.Repeat("█", n)
}
