// Package protocol implements the entry-point facade that maps each
// replay sub-stream kind (game events, message events, tracker events,
// header, details, initdata, attribute events) to the right schema
// decoder and root type-id, plus the event-stream driver and the two
// helpers that have no business living in schema: attribute decoding
// and unit-tag packing.
//
// # Dependencies
//
// Builds on schema and bitstream. Uses github.com/pkg/errors for
// annotated sentinel errors.
package protocol

import (
	"github.com/thebagchi/heroreplay/schema"
)

// EventDef names one entry of an event-id → (struct type-id, event
// name) table.
type EventDef struct {
	TypeID int
	Name   string
}

// Protocol is everything the facade needs for one build: the schema
// table plus the root type-ids and event tables for each sub-stream.
// The caller assembles one of these from externally generated schema
// data (schema tables are per-build generated artifacts, not part of
// this module) and hands it to a Registry.
type Protocol struct {
	Table schema.Table

	SVarUint32TypeID   int
	ReplayUserIDTypeID int

	GameEventIDTypeID int
	GameEventTypes    map[int]EventDef

	MessageEventIDTypeID int
	MessageEventTypes    map[int]EventDef

	TrackerEventIDTypeID int
	TrackerEventTypes    map[int]EventDef

	ReplayHeaderTypeID   int
	GameDetailsTypeID    int
	ReplayInitdataTypeID int
}
