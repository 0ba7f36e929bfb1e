package tree

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrNewickSyntax is returned for malformed Newick input.
var ErrNewickSyntax = errors.New("newick syntax error")

// rawNode is the name-labeled parse tree before taxon positions exist.
type rawNode struct {
	children []*rawNode
	name     string
}

// ParseNewickFile reads one Newick tree per non-empty line and returns the
// resulting collection. The first tree's taxon names, sorted
// alphabetically, define taxon positions; subsequent trees must use the
// same taxon set.
func ParseNewickFile(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open newick file: %w", err)
	}
	defer f.Close()
	c, err := ParseNewick(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseNewick reads Newick trees from r, one per non-empty line.
func ParseNewick(r io.Reader) (*Collection, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	collection := &Collection{Topologies: NewCounter()}
	var positions map[string]int
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		raw, err := parseNewickLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		names := leafNames(raw)
		if positions == nil {
			sorted := append([]string(nil), names...)
			sort.Strings(sorted)
			positions = make(map[string]int, len(sorted))
			for i, n := range sorted {
				if _, dup := positions[n]; dup {
					return nil, fmt.Errorf("line %d: duplicate taxon %q", line, n)
				}
				positions[n] = i
			}
			collection.TaxonNames = sorted
		} else if err := checkTaxa(positions, names); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		topo := &Topology{Root: toPositioned(raw, positions), TaxonCount: len(positions)}
		if err := topo.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		collection.Topologies.Add(topo)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read newick: %w", err)
	}
	if collection.Topologies.Len() == 0 {
		return nil, ErrEmptyCollection
	}
	return collection, nil
}

func checkTaxa(positions map[string]int, names []string) error {
	if len(names) != len(positions) {
		return fmt.Errorf("%w: got %d taxa, want %d", ErrTaxonMismatch, len(names), len(positions))
	}
	for _, n := range names {
		if _, ok := positions[n]; !ok {
			return fmt.Errorf("%w: unknown taxon %q", ErrTaxonMismatch, n)
		}
	}
	return nil
}

func leafNames(n *rawNode) []string {
	if len(n.children) == 0 {
		return []string{n.name}
	}
	var out []string
	for _, c := range n.children {
		out = append(out, leafNames(c)...)
	}
	return out
}

func toPositioned(n *rawNode, positions map[string]int) *Node {
	if len(n.children) == 0 {
		return Leaf(positions[n.name])
	}
	children := make([]*Node, len(n.children))
	for i, c := range n.children {
		children[i] = toPositioned(c, positions)
	}
	return Join(children...)
}

// parseNewickLine parses a single Newick string. Branch lengths and
// internal node labels are accepted and discarded; only the shape and the
// leaf names matter here.
func parseNewickLine(s string) (*rawNode, error) {
	p := &newickParser{input: s}
	node, err := p.parseSubtree()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == ';' {
		p.pos++
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("%w: trailing input at offset %d", ErrNewickSyntax, p.pos)
	}
	return node, nil
}

type newickParser struct {
	input string
	pos   int
}

func (p *newickParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *newickParser) parseSubtree() (*rawNode, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrNewickSyntax)
	}
	if p.input[p.pos] == '(' {
		p.pos++
		node := &rawNode{}
		for {
			child, err := p.parseSubtree()
			if err != nil {
				return nil, err
			}
			node.children = append(node.children, child)
			p.skipSpace()
			if p.pos >= len(p.input) {
				return nil, fmt.Errorf("%w: unbalanced parentheses", ErrNewickSyntax)
			}
			switch p.input[p.pos] {
			case ',':
				p.pos++
			case ')':
				p.pos++
				// Optional internal label and branch length.
				p.parseLabel()
				p.parseBranchLength()
				return node, nil
			default:
				return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrNewickSyntax, p.input[p.pos], p.pos)
			}
		}
	}
	name := p.parseLabel()
	if name == "" {
		return nil, fmt.Errorf("%w: empty leaf name at offset %d", ErrNewickSyntax, p.pos)
	}
	p.parseBranchLength()
	return &rawNode{name: name}, nil
}

func (p *newickParser) parseLabel() string {
	start := p.pos
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case '(', ')', ',', ':', ';':
			return p.input[start:p.pos]
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *newickParser) parseBranchLength() {
	if p.pos < len(p.input) && p.input[p.pos] == ':' {
		p.pos++
		for p.pos < len(p.input) {
			c := p.input[p.pos]
			if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
				p.pos++
				continue
			}
			break
		}
	}
}
