package subsplit

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
)

func clade(taxa int, members ...int) *bitset.BitSet {
	b := bitset.New(uint(taxa))
	for _, m := range members {
		b.Set(uint(m))
	}
	return b
}

func TestNew_Disjoint(t *testing.T) {
	s := New(clade(4, 0, 1), clade(4, 2, 3))
	if got, want := s.String(), "1100|0011"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if s.TaxonCount() != 4 {
		t.Errorf("TaxonCount() = %d, want 4", s.TaxonCount())
	}
}

func TestNew_OverlapPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New() with overlapping clades did not panic")
		}
	}()
	New(clade(4, 0, 1), clade(4, 1, 2))
}

func TestNew_LengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New() with mismatched lengths did not panic")
		}
	}()
	New(clade(4, 0), clade(5, 1))
}

func TestRotate(t *testing.T) {
	s := New(clade(3, 0), clade(3, 1, 2))
	r := s.Rotate()
	if got, want := r.String(), "011|100"; got != want {
		t.Errorf("Rotate().String() = %q, want %q", got, want)
	}
	if !r.Rotate().Equal(s) {
		t.Error("double rotation does not restore the original subsplit")
	}
}

func TestCanonical_SmallestTaxonFirst(t *testing.T) {
	x := clade(4, 2, 3)
	y := clade(4, 0, 1)
	s := Canonical(x, y)
	if got, want := s.String(), "1100|0011"; got != want {
		t.Errorf("Canonical().String() = %q, want %q", got, want)
	}
	// Argument order must not matter.
	if !Canonical(y, x).Equal(s) {
		t.Error("Canonical() depends on argument order")
	}
}

func TestFake(t *testing.T) {
	s := Fake(4, 2)
	if s.Any(0) {
		t.Error("fake subsplit has a non-empty first clade")
	}
	taxon, ok := s.SingletonTaxon(1)
	if !ok || taxon != 2 {
		t.Errorf("SingletonTaxon(1) = (%d, %v), want (2, true)", taxon, ok)
	}
}

func TestRoot(t *testing.T) {
	s := Root(clade(4, 0, 2))
	if !s.IsRoot() {
		t.Error("Root() subsplit does not report IsRoot")
	}
	if got, want := s.String(), "1010|0101"; got != want {
		t.Errorf("Root().String() = %q, want %q", got, want)
	}
}

func TestIsRoot_PartialSubsplit(t *testing.T) {
	s := New(clade(4, 0), clade(4, 1))
	if s.IsRoot() {
		t.Error("partial subsplit reports IsRoot")
	}
}

func TestSingletonTaxon(t *testing.T) {
	tests := []struct {
		name  string
		s     Subsplit
		chunk int
		taxon int
		ok    bool
	}{
		{"singleton second chunk", New(clade(4, 0, 1), clade(4, 3)), 1, 3, true},
		{"multi-member chunk", New(clade(4, 0, 1), clade(4, 2, 3)), 1, 0, false},
		{"empty chunk", Fake(4, 1), 0, 0, false},
		{"singleton first chunk", New(clade(4, 0), clade(4, 2, 3)), 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taxon, ok := tt.s.SingletonTaxon(tt.chunk)
			if ok != tt.ok || (ok && taxon != tt.taxon) {
				t.Errorf("SingletonTaxon(%d) = (%d, %v), want (%d, %v)",
					tt.chunk, taxon, ok, tt.taxon, tt.ok)
			}
		})
	}
}

func TestChunk_RoundTrip(t *testing.T) {
	c0 := clade(5, 0, 3)
	c1 := clade(5, 1, 4)
	s := New(c0, c1)
	if !s.Chunk(0).Equal(c0) {
		t.Error("Chunk(0) does not round-trip")
	}
	if !s.Chunk(1).Equal(c1) {
		t.Error("Chunk(1) does not round-trip")
	}
}

func TestKey_DistinguishesOrientation(t *testing.T) {
	s := New(clade(4, 0), clade(4, 1))
	r := s.Rotate()
	if s.Key() == r.Key() {
		t.Error("rotated subsplit shares a key with the original")
	}
	again := New(clade(4, 0), clade(4, 1))
	if s.Key() != again.Key() {
		t.Error("equal subsplits have different keys")
	}
}

func TestPCSPKey(t *testing.T) {
	parent := New(clade(4, 0, 1), clade(4, 2, 3))
	child := New(clade(4, 2), clade(4, 3))
	k1 := PCSPKey(parent, child)
	k2 := PCSPKey(parent.Rotate(), child)
	if k1 == k2 {
		t.Error("PCSP keys do not distinguish parent orientation")
	}
}
