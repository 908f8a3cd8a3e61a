// Package output renders refresh results for people and for other tools:
// a colored console report, and JSON, YAML or Graphviz DOT exports.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ritzau/pokegraph/pkg/payload"
)

// Format is an export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatDOT  Format = "dot"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatDOT}

// ParseFormat validates a format name, case-insensitively. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatDOT:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want one of %v)", s, Formats)
	}
}

// ContentType is the media type of an export format.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatDOT:
		return "text/vnd.graphviz"
	default:
		return "application/json"
	}
}

// Export writes p in the given format.
func Export(w io.Writer, p *payload.Payload, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatDOT:
		_, err := io.WriteString(w, ToDOT(p))
		return err
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// ToDOT converts the payload to Graphviz DOT. The hub is filled and the
// edges of the longest chain are drawn bold.
func ToDOT(p *payload.Payload) string {
	var buf bytes.Buffer
	buf.WriteString("digraph evolutions {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("\n")

	hub := p.Metrics.TopHub.Name
	for _, n := range p.Nodes {
		attrs := []string{fmt.Sprintf("label=%q", n)}
		if n == hub {
			attrs = append(attrs, "fillcolor=gold")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n, strings.Join(attrs, ", "))
	}

	onChain := chainEdges(p.Metrics.LongestChain)
	buf.WriteString("\n")
	for _, e := range p.Edges {
		attrs := []string{fmt.Sprintf("label=%q", e.Label)}
		if onChain[[2]string{e.From, e.To}] {
			attrs = append(attrs, "penwidth=2.5", "color=firebrick")
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func chainEdges(c payload.Chain) map[[2]string]bool {
	edges := make(map[[2]string]bool)
	if c.Cyclic {
		return edges
	}
	for i := 1; i < len(c.Path); i++ {
		edges[[2]string{c.Path[i-1], c.Path[i]}] = true
	}
	return edges
}
