package protocol

import (
	"github.com/thebagchi/heroreplay/bitstream"
)

// AttributeRecord is one entry of the attributes sub-stream: a
// namespace/attrid-scoped key-value pair.
type AttributeRecord struct {
	Namespace uint32
	AttrID    uint32
	Scope     uint8
	Value     string
}

// AttributeEvents is the decoded attributes sub-stream. Records are
// grouped Scopes[scope][attrid] → records, preserving insertion order
// within each list.
type AttributeEvents struct {
	Source       uint8
	MapNamespace uint32
	Scopes       map[uint8]map[uint32][]AttributeRecord
}

// DecodeAttributeEvents decodes the attributes sub-stream. Unlike
// every other sub-stream, this one is not schema-driven: it is a fixed
// little-endian layout of source, mapNamespace, and count, followed by
// records until the buffer runs dry. Each record's 4-byte value is
// reversed and stripped of trailing NUL bytes. An empty contents slice
// returns an AttributeEvents with zero Source and MapNamespace and an
// empty Scopes map, without touching the buffer.
func DecodeAttributeEvents(contents []byte) (AttributeEvents, error) {
	events := AttributeEvents{Scopes: map[uint8]map[uint32][]AttributeRecord{}}
	if len(contents) == 0 {
		return events, nil
	}

	r := bitstream.NewReader(contents, false)
	if r.Done() {
		return events, nil
	}

	source, err := r.ReadBits(8)
	if err != nil {
		return events, err
	}
	events.Source = uint8(source)

	mapNamespace, err := r.ReadBits(32)
	if err != nil {
		return events, err
	}
	events.MapNamespace = uint32(mapNamespace)

	if _, err := r.ReadBits(32); err != nil { // record count, unused: records are read until Done()
		return events, err
	}

	for !r.Done() {
		namespace, err := r.ReadBits(32)
		if err != nil {
			return events, err
		}
		attrid, err := r.ReadBits(32)
		if err != nil {
			return events, err
		}
		scope, err := r.ReadBits(8)
		if err != nil {
			return events, err
		}
		raw, err := r.ReadAlignedBytes(4)
		if err != nil {
			return events, err
		}
		reverseBytes(raw)
		value := stripTrailingNUL(raw)

		rec := AttributeRecord{
			Namespace: uint32(namespace),
			AttrID:    uint32(attrid),
			Scope:     uint8(scope),
			Value:     string(value),
		}
		byScope, ok := events.Scopes[rec.Scope]
		if !ok {
			byScope = map[uint32][]AttributeRecord{}
			events.Scopes[rec.Scope] = byScope
		}
		byScope[rec.AttrID] = append(byScope[rec.AttrID], rec)
	}

	return events, nil
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func stripTrailingNUL(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}
