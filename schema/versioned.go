package schema

import (
	"github.com/pkg/errors"

	"github.com/thebagchi/heroreplay/bitstream"
)

// Versioned category tags: every value on a VersionedDecoder's wire is
// preceded by one of these, letting the decoder skip values whose
// type-id the schema doesn't know about. fourcc and real32 share tag 7
// (both are 4 aligned bytes on the wire), and real64 shares tag 8 with
// u64.
const (
	tagArray   = 0
	tagBitblob = 1
	tagBlob    = 2
	tagChoice  = 3
	tagOptStr  = 4
	tagStruct  = 5
	tagU8      = 6
	tagU32     = 7
	tagU64     = 8
	tagVInt    = 9
)

// VersionedDecoder decodes a self-describing wire: every value is
// preceded by a 1-byte category tag, so a resolver table built eagerly
// (as BitPackedDecoder does) is unnecessary — dispatch instead
// interprets the Table entry at call time, which lets composite
// descriptors reference type-ids declared later in the Table (a
// forward reference the bit-packed decoder cannot support).
type VersionedDecoder struct {
	reader *bitstream.Reader
	table  Table
}

// NewVersionedDecoder builds a decoder over data using table. Unlike
// NewBitPackedDecoder, table is not validated up front: forward
// references are resolved lazily, the first time they're reached.
func NewVersionedDecoder(data []byte, table Table) *VersionedDecoder {
	return &VersionedDecoder{
		reader: bitstream.NewReader(data, true),
		table:  table,
	}
}

func (d *VersionedDecoder) descriptor(typeID int) (Descriptor, error) {
	if typeID < 0 || typeID >= len(d.table) {
		return Descriptor{}, errors.Wrapf(ErrCorrupted, "type id %d out of range", typeID)
	}
	return d.table[typeID], nil
}

// expectSkip reads one byte and fails with ErrCorrupted unless it
// equals the tag the current descriptor requires.
func (d *VersionedDecoder) expectSkip(expected uint64) error {
	got, err := d.reader.ReadBits(8)
	if err != nil {
		return err
	}
	if got != expected {
		return errors.Wrapf(ErrCorrupted, "versioned: expected tag %d, got %d", expected, got)
	}
	return nil
}

// vint decodes the variable-length signed integer encoding used
// throughout the versioned wire: bit 0 of the first byte is the sign,
// bits 1-6 are the low 6 magnitude bits, bit 7 is a continuation flag;
// each continuation byte contributes 7 more magnitude bits.
func (d *VersionedDecoder) vint() (int64, error) {
	b, err := d.reader.ReadBits(8)
	if err != nil {
		return 0, err
	}
	negative := b&1 != 0
	result := (b >> 1) & 0x3f
	shift := uint(6)
	for b&0x80 != 0 {
		b, err = d.reader.ReadBits(8)
		if err != nil {
			return 0, err
		}
		result |= (b & 0x7f) << shift
		shift += 7
	}
	if negative {
		return -int64(result), nil
	}
	return int64(result), nil
}

// Instance decodes a value of typeID from the underlying stream.
func (d *VersionedDecoder) Instance(typeID int) (interface{}, error) {
	desc, err := d.descriptor(typeID)
	if err != nil {
		return nil, err
	}
	return d.decode(desc)
}

func (d *VersionedDecoder) decode(desc Descriptor) (interface{}, error) {
	switch desc.Kind {
	case KindArray:
		if err := d.expectSkip(tagArray); err != nil {
			return nil, err
		}
		length, err := d.vint()
		if err != nil {
			return nil, err
		}
		// A negative wire length decodes as an empty array.
		if length < 0 {
			length = 0
		}
		out := make([]interface{}, length)
		for i := range out {
			v, err := d.Instance(desc.ElemTypeID)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case KindBitArray:
		if err := d.expectSkip(tagBitblob); err != nil {
			return nil, err
		}
		length, err := d.vint()
		if err != nil {
			return nil, err
		}
		raw, err := d.reader.ReadAlignedBytes(int((length + 7) / 8))
		if err != nil {
			return nil, err
		}
		return BitBytes{Len: int(length), Data: raw}, nil

	case KindBlob:
		if err := d.expectSkip(tagBlob); err != nil {
			return nil, err
		}
		length, err := d.vint()
		if err != nil {
			return nil, err
		}
		raw, err := d.reader.ReadAlignedBytes(int(length))
		if err != nil {
			return nil, err
		}
		return toText(raw), nil

	case KindBool:
		if err := d.expectSkip(tagU8); err != nil {
			return nil, err
		}
		v, err := d.reader.ReadBits(8)
		if err != nil {
			return nil, err
		}
		return v != 0, nil

	case KindChoice:
		if err := d.expectSkip(tagChoice); err != nil {
			return nil, err
		}
		tag, err := d.vint()
		if err != nil {
			return nil, err
		}
		field, ok := desc.ChoiceFields[int(tag)]
		if !ok {
			if err := d.skipInstance(); err != nil {
				return nil, err
			}
			return Struct{}, nil
		}
		v, err := d.Instance(field.TypeID)
		if err != nil {
			return nil, err
		}
		return Struct{field.Name: v}, nil

	case KindFourCC:
		if err := d.expectSkip(tagU32); err != nil {
			return nil, err
		}
		raw, err := d.reader.ReadAlignedBytes(4)
		if err != nil {
			return nil, err
		}
		return Bytes(raw), nil

	case KindInt:
		if err := d.expectSkip(tagVInt); err != nil {
			return nil, err
		}
		return d.vint()

	case KindNull:
		return nil, nil

	case KindOptional:
		if err := d.expectSkip(tagOptStr); err != nil {
			return nil, err
		}
		exists, err := d.reader.ReadBits(8)
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return nil, nil
		}
		return d.Instance(desc.ElemTypeID)

	case KindReal32:
		if err := d.expectSkip(tagU32); err != nil {
			return nil, err
		}
		raw, err := d.reader.ReadAlignedBytes(4)
		if err != nil {
			return nil, err
		}
		return decodeReal32(bytesToUint32BE(raw)), nil

	case KindReal64:
		if err := d.expectSkip(tagU64); err != nil {
			return nil, err
		}
		raw, err := d.reader.ReadAlignedBytes(8)
		if err != nil {
			return nil, err
		}
		return decodeReal64(bytesToUint64BE(raw)), nil

	case KindStruct:
		if err := d.expectSkip(tagStruct); err != nil {
			return nil, err
		}
		result := Struct{}
		var scalar interface{}
		isScalar := false
		count, err := d.vint()
		if err != nil {
			return nil, err
		}
		for i := int64(0); i < count; i++ {
			tag, err := d.vint()
			if err != nil {
				return nil, err
			}
			field, ok := findFieldByTag(desc.Fields, int(tag))
			if !ok {
				if err := d.skipInstance(); err != nil {
					return nil, err
				}
				continue
			}
			if field.Name == ParentFieldName {
				parent, err := d.Instance(field.TypeID)
				if err != nil {
					return nil, err
				}
				if p, ok := parent.(Struct); ok {
					isScalar = false
					for k, v := range p {
						result[k] = v
					}
				} else if len(desc.Fields) == 1 {
					isScalar, scalar = true, parent
				} else {
					result[field.Name] = parent
				}
				continue
			}
			v, err := d.Instance(field.TypeID)
			if err != nil {
				return nil, err
			}
			result[field.Name] = v
		}
		if isScalar {
			return scalar, nil
		}
		return result, nil
	}

	return nil, errors.Errorf("versioned: unknown descriptor kind %v", desc.Kind)
}

func findFieldByTag(fields []StructField, tag int) (StructField, bool) {
	for _, f := range fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return StructField{}, false
}

// skipInstance structurally consumes one unrecognized value, reading
// its own category tag off the wire to decide how much to discard.
func (d *VersionedDecoder) skipInstance() error {
	tag, err := d.reader.ReadBits(8)
	if err != nil {
		return err
	}
	switch tag {
	case tagArray:
		length, err := d.vint()
		if err != nil {
			return err
		}
		for i := int64(0); i < length; i++ {
			if err := d.skipInstance(); err != nil {
				return err
			}
		}
	case tagBitblob:
		length, err := d.vint()
		if err != nil {
			return err
		}
		if _, err := d.reader.ReadAlignedBytes(int((length + 7) / 8)); err != nil {
			return err
		}
	case tagBlob:
		length, err := d.vint()
		if err != nil {
			return err
		}
		if _, err := d.reader.ReadAlignedBytes(int(length)); err != nil {
			return err
		}
	case tagChoice:
		if _, err := d.vint(); err != nil {
			return err
		}
		return d.skipInstance()
	case tagOptStr:
		exists, err := d.reader.ReadBits(8)
		if err != nil {
			return err
		}
		if exists != 0 {
			return d.skipInstance()
		}
	case tagStruct:
		count, err := d.vint()
		if err != nil {
			return err
		}
		for i := int64(0); i < count; i++ {
			if _, err := d.vint(); err != nil {
				return err
			}
			if err := d.skipInstance(); err != nil {
				return err
			}
		}
	case tagU8:
		_, err := d.reader.ReadAlignedBytes(1)
		return err
	case tagU32:
		_, err := d.reader.ReadAlignedBytes(4)
		return err
	case tagU64:
		_, err := d.reader.ReadAlignedBytes(8)
		return err
	case tagVInt:
		_, err := d.vint()
		return err
	default:
		return errors.Wrapf(ErrCorrupted, "versioned: unknown skip tag %d", tag)
	}
	return nil
}

// ByteAlign discards unread bits so the next read starts on a byte
// boundary.
func (d *VersionedDecoder) ByteAlign() {
	d.reader.ByteAlign()
}

// Done reports whether the stream is exhausted. See bitstream.Reader.Done
// for the load-next-byte side effect this relies on.
func (d *VersionedDecoder) Done() bool {
	return d.reader.Done()
}
