package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestNewSitePatternCompression(t *testing.T) {
	sp, err := NewSitePattern([]string{"x", "y"}, []string{"AACG", "AACT"})
	if err != nil {
		t.Fatalf("NewSitePattern: %v", err)
	}
	if got, want := sp.PatternCount(), 3; got != want {
		t.Fatalf("PatternCount = %d, want %d", got, want)
	}
	if got, want := sp.SiteCount(), 4; got != want {
		t.Errorf("SiteCount = %d, want %d", got, want)
	}
	wantWeights := []float64{2, 1, 1}
	for i, w := range sp.Weights() {
		if w != wantWeights[i] {
			t.Errorf("weights = %v, want %v", sp.Weights(), wantWeights)
			break
		}
	}
	row, ok := sp.Row("y")
	if !ok {
		t.Fatal("Row(y) missing")
	}
	if row[0] != 0 || row[1] != 1 || row[2] != 3 {
		t.Errorf("row y = %v, want [0 1 3]", row)
	}
}

func TestNewSitePatternErrors(t *testing.T) {
	if _, err := NewSitePattern([]string{"x", "y"}, []string{"AA", "AAA"}); !errors.Is(err, ErrAlignmentShape) {
		t.Errorf("ragged alignment err = %v, want ErrAlignmentShape", err)
	}
	if _, err := NewSitePattern([]string{"x", "x"}, []string{"AA", "CC"}); !errors.Is(err, ErrAlignmentShape) {
		t.Errorf("duplicate name err = %v, want ErrAlignmentShape", err)
	}
}

func TestReadFasta(t *testing.T) {
	input := `>alpha
ACG
T
>beta
ACGA
`
	sp, err := ReadFasta(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadFasta: %v", err)
	}
	if got, want := len(sp.Names()), 2; got != want {
		t.Fatalf("names = %v, want 2 entries", sp.Names())
	}
	if sp.Names()[0] != "alpha" || sp.Names()[1] != "beta" {
		t.Errorf("names = %v, want [alpha beta]", sp.Names())
	}
	if got, want := sp.SiteCount(), 4; got != want {
		t.Errorf("SiteCount = %d, want %d", got, want)
	}
}

func TestReadFastaErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"data before header", "ACGT\n>x\nACGT\n"},
		{"empty name", ">\nACGT\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadFasta(strings.NewReader(tt.input)); !errors.Is(err, ErrFastaSyntax) {
				t.Errorf("err = %v, want ErrFastaSyntax", err)
			}
		})
	}
}

func TestSymbolCode(t *testing.T) {
	tests := []struct {
		in   byte
		want uint8
	}{
		{'A', 0}, {'a', 0}, {'C', 1}, {'g', 2}, {'T', 3}, {'U', 3},
		{'N', gapCode}, {'-', gapCode}, {'?', gapCode},
	}
	for _, tt := range tests {
		if got := symbolCode(tt.in); got != tt.want {
			t.Errorf("symbolCode(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
