// Package render draws the subsplit DAG as a node-link diagram: a
// Graphviz DOT description and, through Graphviz, an SVG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/phylodag/phylodag/pkg/gpdag"
	"github.com/phylodag/phylodag/pkg/tree"
)

// Options configures DAG rendering.
type Options struct {
	// Detailed includes node ids and the raw bit-vector form in labels.
	// When false, leaves show their taxon name and internal nodes the
	// clade split in taxon names.
	Detailed bool
}

// ToDOT converts a subsplit DAG to Graphviz DOT. Edges point leafward;
// sorted edges are solid and rotated edges dashed. The resulting string
// can be rendered with [RenderSVG].
func ToDOT(d *gpdag.DAG, c *tree.Collection, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for id := 0; id < d.NodeCount(); id++ {
		n := d.Node(id)
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, c, opts.Detailed))}
		if n.IsLeaf() {
			attrs = append(attrs, "fillcolor=lightgrey")
		}
		fmt.Fprintf(&buf, "  %d [%s];\n", id, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for id := 0; id < d.NodeCount(); id++ {
		n := d.Node(id)
		for _, childID := range n.LeafwardSorted() {
			fmt.Fprintf(&buf, "  %d -> %d;\n", id, childID)
		}
		for _, childID := range n.LeafwardRotated() {
			fmt.Fprintf(&buf, "  %d -> %d [style=dashed];\n", id, childID)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n *gpdag.Node, c *tree.Collection, detailed bool) string {
	label := cladeNames(n, c)
	if detailed {
		label = fmt.Sprintf("%d\n%s\n%s", n.ID(), label, n.Subsplit())
	}
	return label
}

// cladeNames renders a subsplit as the taxon names of its two clades.
func cladeNames(n *gpdag.Node, c *tree.Collection) string {
	s := n.Subsplit()
	if n.IsLeaf() {
		if taxon, ok := s.SingletonTaxon(1); ok {
			return c.TaxonNames[taxon]
		}
	}
	side := func(i int) string {
		clade := s.Chunk(i)
		var names []string
		for t := 0; t < c.TaxonCount(); t++ {
			if clade.Test(uint(t)) {
				names = append(names, c.TaxonNames[t])
			}
		}
		return strings.Join(names, " ")
	}
	return side(0) + " | " + side(1)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
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
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
