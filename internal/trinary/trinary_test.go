package trinary

import (
	"bytes"
	"errors"
	"testing"
)

func TestTryteValue(t *testing.T) {
	tests := []struct {
		c    byte
		want int8
	}{
		{'9', 0},
		{'A', 1},
		{'M', 13},
		{'N', -13},
		{'Z', -1},
	}
	for _, tt := range tests {
		got, err := TryteValue(tt.c)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("TryteValue(%q) = %d, want %d", tt.c, got, tt.want)
		}
	}

	if _, err := TryteValue('a'); !errors.Is(err, ErrInvalidAlphabet) {
		t.Errorf("expected ErrInvalidAlphabet, got %v", err)
	}
}

func TestTrytesTritsRoundtrip(t *testing.T) {
	inputs := []Trytes{
		"9",
		"A",
		"Z",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ9",
		"RBTC9D9DCDQAEASBYBCCKBFA",
	}
	for _, in := range inputs {
		trits, err := TrytesToTrits(in)
		if err != nil {
			t.Fatal(err)
		}
		if len(trits) != len(in)*TritsPerTryte {
			t.Errorf("expected %d trits, got %d", len(in)*TritsPerTryte, len(trits))
		}
		out, err := TritsToTrytes(trits)
		if err != nil {
			t.Fatal(err)
		}
		if out != in {
			t.Errorf("roundtrip mismatch: %s -> %s", in, out)
		}
	}
}

func TestTrytesToTritsInvalid(t *testing.T) {
	if _, err := TrytesToTrits("AB c"); !errors.Is(err, ErrInvalidAlphabet) {
		t.Errorf("expected ErrInvalidAlphabet, got %v", err)
	}
}

func TestTritsToTrytesInvalidLength(t *testing.T) {
	if _, err := TritsToTrytes(Trits{1, 0}); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("expected ErrInvalidLength, got %v", err)
	}
}

func TestIntToTritsRoundtrip(t *testing.T) {
	values := []int64{0, 1, -1, 2, -2, 13, -13, 26, 27, 1000, -1000, 3812798742493, -3812798742493}
	for _, v := range values {
		trits := IntToTrits(v, 33)
		if got := TritsToInt(trits); got != v {
			t.Errorf("roundtrip(%d) = %d", v, got)
		}
	}
}

func TestAddTrits(t *testing.T) {
	for _, tt := range []struct{ a, b int64 }{
		{0, 0}, {1, 1}, {4, -2}, {13, 14}, {-40, 40}, {729, 1}, {100000, 999},
	} {
		got := TritsToInt(AddTrits(IntToTrits(tt.a, 27), IntToTrits(tt.b, 27)))
		if got != tt.a+tt.b {
			t.Errorf("AddTrits(%d, %d) = %d", tt.a, tt.b, got)
		}
	}
}

func TestBytesTrytesRoundtrip(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	enc := BytesToTrytes(all)
	if len(enc) != 512 {
		t.Fatalf("expected 512 trytes, got %d", len(enc))
	}
	if err := ValidTrytes(enc); err != nil {
		t.Fatal(err)
	}
	dec, err := TrytesToBytes(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, all) {
		t.Error("byte roundtrip mismatch")
	}
}

func TestTrytesToBytesOutOfRange(t *testing.T) {
	// 'Z' + 'Z' = 26 + 26*27 = 728, far past the byte range.
	if _, err := TrytesToBytes("ZZ"); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("expected ErrInvalidLength, got %v", err)
	}
	if _, err := TrytesToBytes("A"); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("expected ErrInvalidLength for odd input, got %v", err)
	}
}

func TestPad(t *testing.T) {
	if got := Pad("AB", 5); got != "AB999" {
		t.Errorf("Pad = %s", got)
	}
	if got := Pad("ABCDE", 3); got != "ABCDE" {
		t.Errorf("Pad should not truncate, got %s", got)
	}
}
