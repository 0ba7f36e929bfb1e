// Package subsplit implements the bit-vector algebra of subsplits: ordered
// pairs of disjoint taxon clades that generalize tree bipartitions.
//
// A clade is a bit vector of length T (the taxon count) where a set bit
// marks taxon membership. A Subsplit packs two disjoint clades into a
// single bit vector of length 2T; the order of the two halves is
// meaningful, and Rotate swaps them. Subsplits are the node identity of
// the generalized-pruning DAG, so they must work as map keys: Key returns
// a stable string encoding of the underlying words.
//
// All operations are pure. Violating a structural precondition (length
// mismatch, overlapping clades, out-of-range chunk) is a programming
// error, not a data condition, and panics.
package subsplit

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Subsplit is an ordered pair of disjoint clades over a fixed taxon set,
// stored as a single bit vector of length 2·TaxonCount. Chunk 0 occupies
// bits [0, T) and chunk 1 bits [T, 2T). The zero value is not usable.
type Subsplit struct {
	bits *bitset.BitSet
	taxa int
}

// New builds a subsplit from two clades in the given order. Both clades
// must have the same length and must be disjoint; violating either is a
// contract violation and panics.
func New(chunk0, chunk1 *bitset.BitSet) Subsplit {
	if chunk0.Len() != chunk1.Len() {
		panic(fmt.Sprintf("subsplit: clade length mismatch: %d vs %d", chunk0.Len(), chunk1.Len()))
	}
	if chunk0.IntersectionCardinality(chunk1) != 0 {
		panic("subsplit: clades overlap")
	}
	taxa := int(chunk0.Len())
	b := bitset.New(uint(2 * taxa))
	for i, ok := chunk0.NextSet(0); ok; i, ok = chunk0.NextSet(i + 1) {
		b.Set(i)
	}
	for i, ok := chunk1.NextSet(0); ok; i, ok = chunk1.NextSet(i + 1) {
		b.Set(uint(taxa) + i)
	}
	return Subsplit{bits: b, taxa: taxa}
}

// Canonical builds the subsplit of the unordered clade pair {x, y} in the
// canonical orientation: the clade containing the smallest taxon index of
// the union becomes chunk 0. Both clades must be non-empty.
func Canonical(x, y *bitset.BitSet) Subsplit {
	xi, xok := x.NextSet(0)
	yi, yok := y.NextSet(0)
	if !xok || !yok {
		panic("subsplit: canonical orientation requires non-empty clades")
	}
	if xi < yi {
		return New(x, y)
	}
	return New(y, x)
}

// Fake returns the degenerate subsplit that stands in for a leaf taxon:
// chunk 0 empty, chunk 1 the singleton {taxon}.
func Fake(taxonCount, taxon int) Subsplit {
	if taxon < 0 || taxon >= taxonCount {
		panic(fmt.Sprintf("subsplit: taxon %d out of range [0, %d)", taxon, taxonCount))
	}
	b := bitset.New(uint(2 * taxonCount))
	b.Set(uint(taxonCount + taxon))
	return Subsplit{bits: b, taxa: taxonCount}
}

// Root returns the full subsplit induced by a rootsplit clade: the clade
// itself as chunk 0 and its complement as chunk 1, partitioning the whole
// taxon set.
func Root(clade *bitset.BitSet) Subsplit {
	return New(clade, clade.Complement())
}

// TaxonCount returns T, the length of each clade half.
func (s Subsplit) TaxonCount() int { return s.taxa }

// Rotate returns the subsplit with the two clade halves swapped.
func (s Subsplit) Rotate() Subsplit {
	return New(s.Chunk(1), s.Chunk(0))
}

// Chunk extracts clade i (0 or 1) as a fresh bit vector of length T.
func (s Subsplit) Chunk(i int) *bitset.BitSet {
	if i != 0 && i != 1 {
		panic(fmt.Sprintf("subsplit: chunk index %d out of range", i))
	}
	out := bitset.New(uint(s.taxa))
	lo := uint(i * s.taxa)
	hi := lo + uint(s.taxa)
	for j, ok := s.bits.NextSet(lo); ok && j < hi; j, ok = s.bits.NextSet(j + 1) {
		out.Set(j - lo)
	}
	return out
}

// Any reports whether clade i has at least one member.
func (s Subsplit) Any(i int) bool {
	if i != 0 && i != 1 {
		panic(fmt.Sprintf("subsplit: chunk index %d out of range", i))
	}
	lo := uint(i * s.taxa)
	j, ok := s.bits.NextSet(lo)
	return ok && j < lo+uint(s.taxa)
}

// SingletonTaxon returns the sole member of clade i if the clade contains
// exactly one taxon, and ok=false otherwise.
func (s Subsplit) SingletonTaxon(i int) (taxon int, ok bool) {
	if i != 0 && i != 1 {
		panic(fmt.Sprintf("subsplit: chunk index %d out of range", i))
	}
	lo := uint(i * s.taxa)
	hi := lo + uint(s.taxa)
	first, found := s.bits.NextSet(lo)
	if !found || first >= hi {
		return 0, false
	}
	next, found := s.bits.NextSet(first + 1)
	if found && next < hi {
		return 0, false
	}
	return int(first - lo), true
}

// IsRoot reports whether the two clades together cover the entire taxon
// set, i.e. the subsplit is a rootsplit viewed as a node.
func (s Subsplit) IsRoot() bool {
	return int(s.bits.Count()) == s.taxa
}

// Equal reports structural equality.
func (s Subsplit) Equal(o Subsplit) bool {
	return s.taxa == o.taxa && s.bits.Equal(o.bits)
}

// Key returns a stable string encoding usable as a map key. Keys are only
// comparable between subsplits over the same taxon set.
func (s Subsplit) Key() string {
	return wordsKey(s.bits)
}

// PCSPKey returns the map key identifying the ordered (parent, child)
// subsplit pair, i.e. one directed edge of the DAG in a particular parent
// orientation.
func PCSPKey(parent, child Subsplit) string {
	return parent.Key() + "/" + child.Key()
}

// CladeKey returns a stable map key for a bare clade.
func CladeKey(clade *bitset.BitSet) string {
	return wordsKey(clade)
}

// String renders the subsplit as two binary clade strings separated by
// "|", taxon 0 leftmost.
func (s Subsplit) String() string {
	var b strings.Builder
	for i := 0; i < 2*s.taxa; i++ {
		if i == s.taxa {
			b.WriteByte('|')
		}
		if s.bits.Test(uint(i)) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func wordsKey(b *bitset.BitSet) string {
	words := b.Bytes()
	buf := make([]byte, 0, 8*len(words))
	for _, w := range words {
		for shift := 0; shift < 64; shift += 8 {
			buf = append(buf, byte(w>>shift))
		}
	}
	return string(buf)
}
