package bitstream

import (
	"testing"
)

func TestReadBitsBigEndianBytes(t *testing.T) {
	r := NewReader([]byte{0xF0, 0x0F, 0xFF, 0x00}, true)

	for _, want := range []uint64{0xF0, 0x0F, 0xFF, 0x00} {
		if r.Done() {
			t.Fatalf("unexpected Done() before reading %#x", want)
		}
		got, err := r.ReadBits(8)
		if err != nil {
			t.Fatalf("ReadBits(8): %v", err)
		}
		if got != want {
			t.Errorf("ReadBits(8) = %#x, want %#x", got, want)
		}
	}
	if !r.Done() {
		t.Errorf("expected Done() after consuming all bytes")
	}
}

func TestReadBitsBigEndianOffsets(t *testing.T) {
	// 00000000 00111100 00001111 11110000 (little-endian uint32 layout,
	// i.e. bytes in stream order are 0xF0, 0x0F, 0x3C, 0x00)
	r := NewReader([]byte{0xF0, 0x0F, 0x3C, 0x00}, true)

	assertBits(t, r, 4, 0x00)
	assertBits(t, r, 8, 0xFF)
	assertBits(t, r, 6, 0x00)
	assertBits(t, r, 4, 0x0f)
	assertBits(t, r, 10, 0x00)
}

func TestReadBitsBigEndianLongOffset(t *testing.T) {
	// bytes in stream order: 0xFC, 0x7F, 0xF0, 0x39
	r := NewReader([]byte{0xFC, 0x7F, 0xF0, 0x39}, true)

	assertBits(t, r, 2, 0x00)
	assertBits(t, r, 13, 0x1FFF)
	assertBits(t, r, 5, 0x00)
	assertBits(t, r, 5, 0x1F)
	assertBits(t, r, 2, 0x00)
	assertBits(t, r, 3, 0x07)
	assertBits(t, r, 2, 0x00)
}

func TestReadBitsEndianness(t *testing.T) {
	big := NewReader([]byte{0x00, 0xFF}, true)
	assertBits(t, big, 16, 0x00FF)

	little := NewReader([]byte{0x00, 0xFF}, false)
	assertBits(t, little, 16, 0xFF00)
}

func TestReadBitsLittleEndian(t *testing.T) {
	// Stream order bytes for the bit string 11111 11000011 11110010 11100001 000,
	// plus a trailing 0xFF byte so the final 7-bit read has a byte to
	// draw from.
	r := NewReader([]byte{0x08, 0x97, 0x1F, 0xFE, 0xFF}, false)

	assertBits(t, r, 3, 0)
	assertBits(t, r, 16, 0xF2E1)
	assertBits(t, r, 13, 0x1FC3)
	assertBits(t, r, 7, 0x7F)
}

func TestReadBitsZero(t *testing.T) {
	r := NewReader([]byte{0xAB}, true)
	got, err := r.ReadBits(0)
	if err != nil || got != 0 {
		t.Fatalf("ReadBits(0) = (%v, %v), want (0, nil)", got, err)
	}
	// nothing consumed
	assertBits(t, r, 8, 0xAB)
}

func TestReadBitsTruncated(t *testing.T) {
	r := NewReader([]byte{0xAB}, true)
	if _, err := r.ReadBits(16); err == nil {
		t.Fatalf("expected ErrTruncated, got nil")
	}
}

func TestDoneStagesByteAsSideEffect(t *testing.T) {
	r := NewReader([]byte{0x42}, true)
	if r.Done() {
		t.Fatalf("expected not done with one byte remaining")
	}
	// Done() above must have staged 0x42; ReadBits must see it.
	assertBits(t, r, 8, 0x42)
	if !r.Done() {
		t.Fatalf("expected done after consuming the only byte")
	}
}

func TestByteAlignThenReadAlignedBytes(t *testing.T) {
	r := NewReader([]byte{0xFF, 0x11, 0x22, 0x33}, true)
	assertBits(t, r, 3, 0x07) // mid-byte position

	r.ByteAlign()
	got, err := r.ReadAlignedBytes(3)
	if err != nil {
		t.Fatalf("ReadAlignedBytes: %v", err)
	}
	want := []byte{0x11, 0x22, 0x33}
	if !bytesEqual(got, want) {
		t.Errorf("ReadAlignedBytes = %v, want %v", got, want)
	}
}

// ByteAlign is idempotent: aligning twice leaves the stream in the
// same place as aligning once.
func TestByteAlignIdempotent(t *testing.T) {
	r := NewReader([]byte{0xFF, 0x11}, true)
	assertBits(t, r, 3, 0x07) // mid-byte position

	r.ByteAlign()
	r.ByteAlign()
	got, err := r.ReadAlignedBytes(1)
	if err != nil {
		t.Fatalf("ReadAlignedBytes: %v", err)
	}
	if got[0] != 0x11 {
		t.Errorf("ReadAlignedBytes = %#x, want 0x11", got[0])
	}
}

// ReadUnalignedBytes with a non-empty staging register must be exactly
// equivalent to composing each byte from one ReadBits(8) call.
func TestReadUnalignedBytesMatchesReadBitsComposition(t *testing.T) {
	data := []byte{0xFB, 0xAB, 0xCD, 0x12}

	viaUnaligned := NewReader(append([]byte(nil), data...), true)
	assertBits(t, viaUnaligned, 4, 0x0B)
	got, err := viaUnaligned.ReadUnalignedBytes(2)
	if err != nil {
		t.Fatalf("ReadUnalignedBytes: %v", err)
	}

	viaReadBits := NewReader(append([]byte(nil), data...), true)
	assertBits(t, viaReadBits, 4, 0x0B)
	want := make([]byte, 2)
	for i := range want {
		v, err := viaReadBits.ReadBits(8)
		if err != nil {
			t.Fatalf("ReadBits(8): %v", err)
		}
		want[i] = byte(v)
	}

	if !bytesEqual(got, want) {
		t.Errorf("ReadUnalignedBytes = %v, want %v (matching ReadBits(8) composition)", got, want)
	}
}

// When staging is empty, ReadUnalignedBytes takes the same fast path as
// ReadAlignedBytes.
func TestReadUnalignedBytesFastPath(t *testing.T) {
	r := NewReader([]byte{0xAB, 0xCD, 0xEF}, true)
	assertBits(t, r, 8, 0xAB) // consumes the whole first byte, staging empty

	got, err := r.ReadUnalignedBytes(2)
	if err != nil {
		t.Fatalf("ReadUnalignedBytes: %v", err)
	}
	want := []byte{0xCD, 0xEF}
	if !bytesEqual(got, want) {
		t.Errorf("ReadUnalignedBytes = %v, want %v", got, want)
	}
}

func assertBits(t *testing.T, r *Reader, n uint8, want uint64) {
	t.Helper()
	got, err := r.ReadBits(n)
	if err != nil {
		t.Fatalf("ReadBits(%d): %v", n, err)
	}
	if got != want {
		t.Errorf("ReadBits(%d) = %#x, want %#x", n, got, want)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
