package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrFastaSyntax is returned when an alignment file cannot be parsed.
var ErrFastaSyntax = errors.New("engine: malformed fasta")

// ErrAlignmentShape is returned when sequences disagree on length or a
// name appears twice.
var ErrAlignmentShape = errors.New("engine: inconsistent alignment")

// States is the nucleotide alphabet size.
const States = 4

// gapCode marks a gap or ambiguity code; its partial vector is all ones.
const gapCode uint8 = States

// SitePattern is a column-compressed nucleotide alignment: identical
// alignment columns are collapsed into one pattern carrying the column
// multiplicity as its weight.
type SitePattern struct {
	names   []string
	rows    map[string][]uint8
	weights []float64
	sites   int
}

// ReadFastaFile loads and compresses a FASTA alignment from disk.
func ReadFastaFile(path string) (*SitePattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: open alignment: %w", err)
	}
	defer f.Close()
	sp, err := ReadFasta(f)
	if err != nil {
		return nil, fmt.Errorf("engine: %s: %w", path, err)
	}
	return sp, nil
}

// ReadFasta parses a FASTA alignment and compresses it into site
// patterns. Sequences may span multiple lines; blank lines are ignored.
func ReadFasta(r io.Reader) (*SitePattern, error) {
	var names []string
	var seqs []string
	var current strings.Builder

	flush := func() {
		if len(names) > len(seqs) {
			seqs = append(seqs, current.String())
			current.Reset()
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			name := strings.TrimSpace(strings.TrimPrefix(line, ">"))
			if name == "" {
				return nil, fmt.Errorf("%w: empty sequence name", ErrFastaSyntax)
			}
			names = append(names, name)
			continue
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: sequence data before first header", ErrFastaSyntax)
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no sequences", ErrFastaSyntax)
	}
	return NewSitePattern(names, seqs)
}

// NewSitePattern builds a compressed site pattern from parallel name and
// sequence slices.
func NewSitePattern(names, seqs []string) (*SitePattern, error) {
	if len(names) != len(seqs) {
		return nil, fmt.Errorf("%w: %d names, %d sequences", ErrAlignmentShape, len(names), len(seqs))
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("%w: no sequences", ErrAlignmentShape)
	}
	siteCount := len(seqs[0])
	coded := make([][]uint8, len(seqs))
	for i, seq := range seqs {
		if len(seq) != siteCount {
			return nil, fmt.Errorf("%w: sequence %q has length %d, want %d",
				ErrAlignmentShape, names[i], len(seq), siteCount)
		}
		row := make([]uint8, siteCount)
		for j := 0; j < siteCount; j++ {
			row[j] = symbolCode(seq[j])
		}
		coded[i] = row
	}

	// Collapse identical columns, preserving first-occurrence order.
	patternOf := make(map[string]int)
	var weights []float64
	var patternIdx []int
	col := make([]byte, len(seqs))
	for j := 0; j < siteCount; j++ {
		for i := range coded {
			col[i] = coded[i][j]
		}
		key := string(col)
		idx, ok := patternOf[key]
		if !ok {
			idx = len(weights)
			patternOf[key] = idx
			weights = append(weights, 0)
			patternIdx = append(patternIdx, j)
		}
		weights[idx]++
	}

	rows := make(map[string][]uint8, len(names))
	for i, name := range names {
		if _, dup := rows[name]; dup {
			return nil, fmt.Errorf("%w: duplicate sequence name %q", ErrAlignmentShape, name)
		}
		row := make([]uint8, len(weights))
		for p, j := range patternIdx {
			row[p] = coded[i][j]
		}
		rows[name] = row
	}
	return &SitePattern{
		names:   append([]string(nil), names...),
		rows:    rows,
		weights: weights,
		sites:   siteCount,
	}, nil
}

// symbolCode maps a nucleotide symbol to a state code. Anything outside
// ACGT (U reads as T) is treated as fully ambiguous.
func symbolCode(c byte) uint8 {
	switch c {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't', 'U', 'u':
		return 3
	}
	return gapCode
}

// Names returns the sequence names in file order.
func (sp *SitePattern) Names() []string { return sp.names }

// PatternCount returns the number of distinct alignment columns.
func (sp *SitePattern) PatternCount() int { return len(sp.weights) }

// SiteCount returns the uncompressed alignment length.
func (sp *SitePattern) SiteCount() int { return sp.sites }

// Weights returns the per-pattern column multiplicities.
func (sp *SitePattern) Weights() []float64 { return sp.weights }

// Row returns the pattern codes of a named sequence.
func (sp *SitePattern) Row(name string) ([]uint8, bool) {
	row, ok := sp.rows[name]
	return row, ok
}
