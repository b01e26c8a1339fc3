// Package schema implements the two structural decoders, bit-packed
// schema-directed and versioned self-describing, that interpret a
// replay sub-stream's bytes against a table of type descriptors.
//
// # Overview
//
// A Table is an ordered list of Descriptors; a type-id is an index into
// it. BitPackedDecoder and VersionedDecoder both walk a Table to decode
// a Value tree rooted at a given type-id, but differ in wire shape: the
// bit-packed decoder has no per-value tags (layout is fixed by the
// schema), while the versioned decoder prefixes every value with a
// 1-byte category tag, which lets it skip fields the schema doesn't
// know about.
//
// # Dependencies
//
// Builds on bitstream for bit-level I/O. Uses github.com/pkg/errors for
// annotated sentinel errors.
package schema

import (
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrCorrupted is returned when the wire disagrees with the schema: a
// versioned category tag mismatch, an undeclared choice tag, or (from
// the facade) an unknown event id.
var ErrCorrupted = errors.New("schema: corrupted")

// Kind identifies which of the closed set of descriptor variants a
// Descriptor is.
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindBlob
	KindBitArray
	KindFourCC
	KindReal32
	KindReal64
	KindArray
	KindOptional
	KindChoice
	KindStruct
	KindNull
)

// Bounds is the (offset, width) pair that parameterizes int, blob, and
// bitarray length/value fields: width is the number of bits read, and
// offset is added to the unsigned result (offset is usually 0 but is
// negative for signed-range integers).
type Bounds struct {
	Offset int64
	Width  uint8
}

// ChoiceField names the struct key and referenced type-id for one tag
// of a choice descriptor.
type ChoiceField struct {
	Name   string
	TypeID int
}

// StructField is one declared field of a struct descriptor: its result
// key, the type-id of its value, and (versioned decoder only) the wire
// tag used to match it. A field named ParentFieldName inlines its
// decoded struct into the containing result; see the struct cases in
// BitPackedDecoder and VersionedDecoder.
type StructField struct {
	Name   string
	TypeID int
	Tag    int
}

// ParentFieldName is the sentinel field name that triggers the
// "inline parent struct" behavior in both decoders.
const ParentFieldName = "__parent"

// Descriptor is one entry of a schema Table: a tagged variant over the
// closed set of descriptor kinds. Only the fields relevant to Kind are
// meaningful; the rest are zero.
type Descriptor struct {
	Kind Kind

	// int, blob, bitarray, array: length/value bounds
	Bounds Bounds

	// array, optional: referenced element type-id
	ElemTypeID int

	// choice: tag -> field
	ChoiceFields map[int]ChoiceField

	// struct: ordered field list
	Fields []StructField
}

// Table is an ordered sequence of Descriptors; the index of a
// Descriptor in Table is its type-id. Composite descriptors reference
// other descriptors by type-id.
type Table []Descriptor

// Text is a blob that decoded as valid UTF-8.
type Text string

// Bytes is a blob that did not decode as valid UTF-8, or a fourcc's
// raw 4-byte payload in the versioned decoder.
type Bytes []byte

// FourCC is a 4-character code.
type FourCC string

// BitArr is the bit-packed decoder's raw bitarray payload: Len bits
// packed into the low bits of Data.
type BitArr struct {
	Len  int
	Data uint64
}

// BitBytes is the versioned decoder's bitarray payload: Len bits stored
// in ceil(Len/8) aligned bytes. The two decoders legitimately disagree
// on bitarray payload shape; this is the wire format's doing, not a
// modeling choice.
type BitBytes struct {
	Len  int
	Data []byte
}

// Struct is a named mapping, the result of decoding a struct or choice
// descriptor, and the containing type of every event record.
type Struct map[string]interface{}

func toText(raw []byte) interface{} {
	if utf8.Valid(raw) {
		return Text(raw)
	}
	return Bytes(raw)
}

func decodeReal32(bits uint32) float32 {
	return math.Float32frombits(bits)
}

func decodeReal64(bits uint64) float64 {
	return math.Float64frombits(bits)
}

func bytesToUint32BE(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func bytesToUint64BE(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
