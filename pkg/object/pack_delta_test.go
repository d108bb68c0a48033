package object

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeltaVarintRoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 15, 16, 127, 128, 255, 1024, 65535, 1 << 20, 1 << 40}
	for _, want := range tests {
		enc := encodeDeltaVarint(want)
		got, err := decodeDeltaVarint(bytes.NewReader(enc))
		if err != nil {
			t.Fatalf("decode varint %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("varint round trip = %d, want %d", got, want)
		}
	}
}

func TestDecodeDeltaVarintTruncated(t *testing.T) {
	if _, err := decodeDeltaVarint(bytes.NewReader([]byte{0x80})); !errors.Is(err, ErrMalformedObject) {
		t.Fatalf("error = %v, want ErrMalformedObject", err)
	}
}

func TestOfsDeltaDistanceRoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 2, 10, 127, 128, 255, 1024, 65535, 1 << 20, (1 << 31) + 17}
	for _, want := range tests {
		enc := encodeOfsDeltaDistance(want)
		got, err := decodeOfsDeltaDistance(bytes.NewReader(enc))
		if err != nil {
			t.Fatalf("decode distance %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("distance round trip = %d, want %d", got, want)
		}
	}
}

func TestApplyDeltaCopyInstruction(t *testing.T) {
	base := []byte("Hello, world!")
	// base size 13, result size 13, then one copy: offset byte 0, size
	// byte 13.
	delta := []byte{13, 13, 0x91, 0, 13}

	got, err := ApplyDelta(base, delta)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if !bytes.Equal(got, base) {
		t.Fatalf("result = %q, want %q", got, base)
	}
}

func TestApplyDeltaInsertInstruction(t *testing.T) {
	payload := []byte("Hello, world!")
	delta := append([]byte{0, 13, 13}, payload...)

	got, err := ApplyDelta(nil, delta)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("result = %q, want %q", got, payload)
	}
}

func TestApplyDeltaMixedInstructions(t *testing.T) {
	base := []byte("hello world\n")
	// Copy "hello ", insert "there ", copy "world\n".
	delta := []byte{12, 18, 0x91, 0, 6}
	delta = append(delta, 6)
	delta = append(delta, []byte("there ")...)
	delta = append(delta, 0x91, 6, 6)

	got, err := ApplyDelta(base, delta)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if want := []byte("hello there world\n"); !bytes.Equal(got, want) {
		t.Fatalf("result = %q, want %q", got, want)
	}
}

func TestApplyDeltaRejectsZeroOpcode(t *testing.T) {
	delta := []byte{0, 1, 0x00}
	if _, err := ApplyDelta(nil, delta); !errors.Is(err, ErrMalformedObject) {
		t.Fatalf("error = %v, want ErrMalformedObject", err)
	}
}

func TestApplyDeltaRejectsBaseSizeMismatch(t *testing.T) {
	delta := []byte{5, 0}
	if _, err := ApplyDelta([]byte("four"), delta); !errors.Is(err, ErrMalformedObject) {
		t.Fatalf("error = %v, want ErrMalformedObject", err)
	}
}

func TestApplyDeltaRejectsCopyOutOfBounds(t *testing.T) {
	base := []byte("abc")
	delta := []byte{3, 5, 0x91, 2, 5}
	if _, err := ApplyDelta(base, delta); !errors.Is(err, ErrMalformedObject) {
		t.Fatalf("error = %v, want ErrMalformedObject", err)
	}
}

func TestApplyDeltaRejectsResultSizeMismatch(t *testing.T) {
	base := []byte("Hello, world!")
	// Header promises 20 result bytes but the copy only yields 13.
	delta := []byte{13, 20, 0x91, 0, 13}
	if _, err := ApplyDelta(base, delta); !errors.Is(err, ErrMalformedObject) {
		t.Fatalf("error = %v, want ErrMalformedObject", err)
	}
}

func TestBuildInsertOnlyDeltaAppliesToTarget(t *testing.T) {
	base := []byte("hello world\n")
	target := bytes.Repeat([]byte("hello there world\n"), 40)

	delta := BuildInsertOnlyDelta(base, target)
	got, err := ApplyDelta(base, delta)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Fatal("reconstructed target mismatch")
	}
}

func BenchmarkApplyDeltaInsertOnly(b *testing.B) {
	base := bytes.Repeat([]byte("base line\n"), 100)
	target := bytes.Repeat([]byte("target line\n"), 400)
	delta := BuildInsertOnlyDelta(base, target)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ApplyDelta(base, delta); err != nil {
			b.Fatal(err)
		}
	}
}
