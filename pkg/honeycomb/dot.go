package honeycomb

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

var densityFill = map[Density]string{
	Single: "white",
	Double: "lightblue",
	Triple: "lightsalmon",
}

// ToDOT converts the ring-1 neighbour relation of t to an undirected
// Graphviz graph. Each declared string becomes a node filled by its density
// class; each unordered ring-1 pair becomes one edge. Output order follows
// ascending string numbers, so the result is deterministic.
func ToDOT(t *Topology) string {
	var buf bytes.Buffer
	buf.WriteString("graph honeycomb {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=hexagon, style=filled, fontsize=12];\n")
	buf.WriteString("\n")

	centers := t.Centers()
	for _, s := range centers {
		fmt.Fprintf(&buf, "  \"%d\" [fillcolor=%s];\n", s, densityFill[t.Density(s)])
	}

	buf.WriteString("\n")
	for _, s := range centers {
		for _, n := range t.Ring(s, 1) {
			if n > s || !t.IsRing(n, 1, s) {
				fmt.Fprintf(&buf, "  \"%d\" -- \"%d\";\n", s, n)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
