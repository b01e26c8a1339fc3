// Package bitstream provides bit-level reading over an immutable byte
// sequence, supporting arbitrary-width integer reads in either bit
// ordering.
//
// # Overview
//
// Reader streams bits out of a fixed byte slice. It supports reads of
// 0 to 64 bits at a time, byte-aligned bulk reads, and an end-of-stream
// probe whose side effect (staging the next byte) is load-bearing for
// callers that drive an event loop off it. See Done.
//
// # Dependencies
//
// Uses github.com/pkg/errors for annotated errors; otherwise only the
// Go standard library.
//
// # Thread Safety
//
// Reader is NOT thread-safe. A Reader advances monotonically and holds
// no resources beyond the byte slice and its staging byte; distinct
// Readers over distinct byte slices may run on distinct goroutines
// without coordination.
package bitstream

import (
	"github.com/pkg/errors"
)

const (
	// ENABLE_TRACE controls whether trace output is printed.
	ENABLE_TRACE = false
)

// ErrTruncated is returned when a read runs past the end of the
// underlying byte sequence.
var ErrTruncated = errors.New("bitstream: truncated")

// Reader streams bits out of an immutable byte slice.
//
// Fields:
//
//	data: the byte sequence, consumed front-to-back
//	staging: the most recently loaded byte, holding `count` unread bits
//	count: number of unread bits in staging, in [0,8]
//	bigEndian: bit order; bits are always taken from the low end of the
//	  staged byte, and true places earlier chunks in the high bits of the
//	  result, false in the low bits
//
// Invariant: staging holds the low `count` bits not yet consumed; the
// byte at the front of data has already been loaded into staging
// whenever count > 0.
type Reader struct {
	data      []byte
	staging   byte
	count     uint8
	bigEndian bool
}

// NewReader creates a Reader over data. bigEndian selects big-endian
// (true, the default used by every schema-directed decoder: the first
// bits read form the most significant part of a multi-byte result) or
// little-endian (false, used only by the attributes sub-stream: the
// first bits read form the least significant part) bit order. In both
// modes the bits of each byte are consumed starting from its low end.
func NewReader(data []byte, bigEndian bool) *Reader {
	return &Reader{data: data, bigEndian: bigEndian}
}

func (r *Reader) trace(event, function, args string) {
	if !ENABLE_TRACE {
		return
	}
	state := "[" + event + " " + function + "] len=" + itoa(len(r.data)) + " count=" + itoa(int(r.count))
	if args != "" {
		state += " --> " + args
	}
	println(state)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// loadByte pulls the next byte off data into staging. Returns false if
// data is exhausted.
func (r *Reader) loadByte() bool {
	if len(r.data) == 0 {
		return false
	}
	r.staging = r.data[0]
	r.data = r.data[1:]
	r.count = 8
	return true
}

// Done reports whether no further bytes can be drawn from the stream.
//
// If staging is empty, Done attempts to load the next byte: success
// means not done, failure means done. This means Done can advance the
// stream by exactly one byte into staging even though it looks like a
// pure observer — callers (in particular the event-stream driver) must
// not rely on Done being side-effect free, and a subsequent ReadBits
// must consume the byte Done just staged.
func (r *Reader) Done() bool {
	r.trace("ENTER", "Done", "")
	defer r.trace("EXIT", "Done", "")
	if r.count == 0 {
		return !r.loadByte()
	}
	return false
}

// ReadBits reads n bits (0 ≤ n ≤ 64) and returns them as an unsigned
// integer. n == 0 returns 0 and consumes nothing; n > 64 is rejected.
// Returns ErrTruncated if the stream is exhausted before n bits can be
// read.
func (r *Reader) ReadBits(n uint8) (uint64, error) {
	r.trace("ENTER", "ReadBits", "n="+itoa(int(n)))
	defer r.trace("EXIT", "ReadBits", "")
	if n == 0 {
		return 0, nil
	}
	if n > 64 {
		return 0, errors.New("bitstream: bit count must be between 0 and 64")
	}

	var (
		result      uint64
		remaining   = n
		alreadyRead uint8 // little-endian bit count placed so far
	)

	for {
		if r.count == 0 {
			if !r.loadByte() {
				return 0, errors.Wrapf(ErrTruncated, "read_bits(%d)", n)
			}
		}

		if remaining > r.count {
			chunk := uint64(r.staging)
			remaining -= r.count

			if r.bigEndian {
				result |= chunk << remaining
			} else {
				result |= chunk << alreadyRead
				alreadyRead += r.count
			}
			r.count = 0
		} else {
			mask := byte((1 << remaining) - 1)
			chunk := r.staging & mask
			r.staging >>= remaining
			r.count -= remaining

			if r.bigEndian {
				result |= uint64(chunk)
			} else {
				result |= uint64(chunk) << alreadyRead
			}
			break
		}
	}

	return result, nil
}

// ByteAlign discards any unread bits currently staged, so the next read
// begins on a byte boundary. It does not itself consume a byte from
// data; the next ReadBits/ReadAlignedBytes call will load a fresh one.
func (r *Reader) ByteAlign() {
	r.trace("ENTER", "ByteAlign", "")
	r.count = 0
}

// ReadAlignedBytes byte-aligns the stream and then reads n raw bytes
// directly, bypassing the staging register entirely.
func (r *Reader) ReadAlignedBytes(n int) ([]byte, error) {
	r.trace("ENTER", "ReadAlignedBytes", "n="+itoa(n))
	defer r.trace("EXIT", "ReadAlignedBytes", "")
	r.ByteAlign()
	if n <= 0 {
		return []byte{}, nil
	}
	if len(r.data) < n {
		return nil, errors.Wrapf(ErrTruncated, "read_aligned_bytes(%d)", n)
	}
	out := make([]byte, n)
	copy(out, r.data[:n])
	r.data = r.data[n:]
	return out, nil
}

// ReadUnalignedBytes reads n bytes without forcing byte alignment
// first. If the staging register is currently empty, this is
// equivalent to ReadAlignedBytes; otherwise each byte is composed via
// ReadBits(8), which is slower but byte-order-agnostic.
func (r *Reader) ReadUnalignedBytes(n int) ([]byte, error) {
	r.trace("ENTER", "ReadUnalignedBytes", "n="+itoa(n))
	defer r.trace("EXIT", "ReadUnalignedBytes", "")
	if n <= 0 {
		return []byte{}, nil
	}
	if r.count == 0 {
		if len(r.data) < n {
			return nil, errors.Wrapf(ErrTruncated, "read_unaligned_bytes(%d)", n)
		}
		out := make([]byte, n)
		copy(out, r.data[:n])
		r.data = r.data[n:]
		return out, nil
	}
	out := make([]byte, n)
	for i := range out {
		v, err := r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}
