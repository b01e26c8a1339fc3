package schema

import (
	"github.com/pkg/errors"

	"github.com/thebagchi/heroreplay/bitstream"
)

// resolver reads one value of a bound type from r.
type resolver func(r *bitstream.Reader) (interface{}, error)

// readBounds reads the int(bounds) descriptor: offset + an unsigned
// width-bit read.
func readBounds(r *bitstream.Reader, bounds Bounds) (int64, error) {
	v, err := r.ReadBits(bounds.Width)
	if err != nil {
		return 0, err
	}
	return bounds.Offset + int64(v), nil
}

// BitPackedDecoder decodes a schema-directed, untagged wire: layout is
// entirely determined by the Table, so every Descriptor is pre-bound at
// construction time to a resolver closure. Composite descriptors may
// only reference type-ids declared earlier in the Table.
type BitPackedDecoder struct {
	reader    *bitstream.Reader
	resolvers []resolver
}

// NewBitPackedDecoder builds a decoder over data using table. Returns
// ErrCorrupted if any descriptor references a type-id that has not yet
// been bound (a forward reference, which this decoder does not
// support).
func NewBitPackedDecoder(data []byte, table Table) (*BitPackedDecoder, error) {
	d := &BitPackedDecoder{
		reader:    bitstream.NewReader(data, true),
		resolvers: make([]resolver, 0, len(table)),
	}
	for typeID, desc := range table {
		res, err := d.bind(desc)
		if err != nil {
			return nil, errors.Wrapf(err, "bitpacked: binding type %d", typeID)
		}
		d.resolvers = append(d.resolvers, res)
	}
	return d, nil
}

func (d *BitPackedDecoder) lookup(typeID int) (resolver, error) {
	if typeID < 0 || typeID >= len(d.resolvers) {
		return nil, errors.Wrapf(ErrCorrupted, "type id %d not yet bound", typeID)
	}
	return d.resolvers[typeID], nil
}

func (d *BitPackedDecoder) bind(desc Descriptor) (resolver, error) {
	switch desc.Kind {
	case KindInt:
		bounds := desc.Bounds
		return func(r *bitstream.Reader) (interface{}, error) {
			return readBounds(r, bounds)
		}, nil

	case KindBool:
		return func(r *bitstream.Reader) (interface{}, error) {
			v, err := r.ReadBits(1)
			if err != nil {
				return nil, err
			}
			return v != 0, nil
		}, nil

	case KindBlob:
		bounds := desc.Bounds
		return func(r *bitstream.Reader) (interface{}, error) {
			length, err := readBounds(r, bounds)
			if err != nil {
				return nil, err
			}
			raw, err := r.ReadAlignedBytes(int(length))
			if err != nil {
				return nil, err
			}
			return toText(raw), nil
		}, nil

	case KindBitArray:
		bounds := desc.Bounds
		return func(r *bitstream.Reader) (interface{}, error) {
			length, err := readBounds(r, bounds)
			if err != nil {
				return nil, err
			}
			data, err := r.ReadBits(uint8(length))
			if err != nil {
				return nil, err
			}
			return BitArr{Len: int(length), Data: data}, nil
		}, nil

	case KindFourCC:
		return func(r *bitstream.Reader) (interface{}, error) {
			v, err := r.ReadBits(32)
			if err != nil {
				return nil, err
			}
			b := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
			return FourCC(b), nil
		}, nil

	case KindReal32:
		return func(r *bitstream.Reader) (interface{}, error) {
			raw, err := r.ReadUnalignedBytes(4)
			if err != nil {
				return nil, err
			}
			return decodeReal32(bytesToUint32BE(raw)), nil
		}, nil

	case KindReal64:
		return func(r *bitstream.Reader) (interface{}, error) {
			raw, err := r.ReadUnalignedBytes(8)
			if err != nil {
				return nil, err
			}
			return decodeReal64(bytesToUint64BE(raw)), nil
		}, nil

	case KindArray:
		bounds := desc.Bounds
		elem, err := d.lookup(desc.ElemTypeID)
		if err != nil {
			return nil, err
		}
		return func(r *bitstream.Reader) (interface{}, error) {
			length, err := readBounds(r, bounds)
			if err != nil {
				return nil, err
			}
			// A negative-biased offset can yield a negative length;
			// decode it as an empty array.
			n := int(length)
			if n < 0 {
				n = 0
			}
			out := make([]interface{}, n)
			for i := range out {
				v, err := elem(r)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}, nil

	case KindOptional:
		inner, err := d.lookup(desc.ElemTypeID)
		if err != nil {
			return nil, err
		}
		return func(r *bitstream.Reader) (interface{}, error) {
			exists, err := r.ReadBits(1)
			if err != nil {
				return nil, err
			}
			if exists == 0 {
				return nil, nil
			}
			return inner(r)
		}, nil

	case KindChoice:
		bounds := desc.Bounds
		fields := make(map[int]struct {
			name string
			res  resolver
		}, len(desc.ChoiceFields))
		for tag, f := range desc.ChoiceFields {
			res, err := d.lookup(f.TypeID)
			if err != nil {
				return nil, err
			}
			fields[tag] = struct {
				name string
				res  resolver
			}{f.Name, res}
		}
		return func(r *bitstream.Reader) (interface{}, error) {
			tagv, err := readBounds(r, bounds)
			if err != nil {
				return nil, err
			}
			tag := int(tagv)
			f, ok := fields[tag]
			if !ok {
				return nil, errors.Wrapf(ErrCorrupted, "choice: unknown tag %d", tag)
			}
			v, err := f.res(r)
			if err != nil {
				return nil, err
			}
			return Struct{f.name: v}, nil
		}, nil

	case KindStruct:
		type boundField struct {
			name string
			res  resolver
		}
		// The parent field, if any, is decoded first regardless of its
		// declared position; remaining fields follow in declared order.
		var parent resolver
		fields := make([]boundField, 0, len(desc.Fields))
		for _, f := range desc.Fields {
			res, err := d.lookup(f.TypeID)
			if err != nil {
				return nil, err
			}
			if f.Name == ParentFieldName {
				parent = res
				continue
			}
			fields = append(fields, boundField{name: f.Name, res: res})
		}
		return func(r *bitstream.Reader) (interface{}, error) {
			result := Struct{}
			if parent != nil {
				v, err := parent(r)
				if err != nil {
					return nil, err
				}
				if p, ok := v.(Struct); ok {
					result = p
				} else {
					result[ParentFieldName] = v
				}
			}
			for _, f := range fields {
				v, err := f.res(r)
				if err != nil {
					return nil, err
				}
				result[f.name] = v
			}
			return result, nil
		}, nil

	case KindNull:
		return func(r *bitstream.Reader) (interface{}, error) {
			return nil, nil
		}, nil
	}

	return nil, errors.Errorf("bitpacked: unknown descriptor kind %v", desc.Kind)
}

// Instance decodes a value of typeID from the underlying stream.
func (d *BitPackedDecoder) Instance(typeID int) (interface{}, error) {
	res, err := d.lookup(typeID)
	if err != nil {
		return nil, err
	}
	return res(d.reader)
}

// ByteAlign discards unread bits so the next read starts on a byte
// boundary.
func (d *BitPackedDecoder) ByteAlign() {
	d.reader.ByteAlign()
}

// Done reports whether the stream is exhausted. See bitstream.Reader.Done
// for the load-next-byte side effect this relies on.
func (d *BitPackedDecoder) Done() bool {
	return d.reader.Done()
}
