package protocol

import (
	"github.com/pkg/errors"

	"github.com/thebagchi/heroreplay/schema"
)

// decoder is the common surface both schema decoders expose; the
// event-stream driver works over either kind interchangeably.
type decoder interface {
	Instance(typeID int) (interface{}, error)
	ByteAlign()
	Done() bool
}

// EventStream pulls one event at a time from a decoder: a delta-encoded
// gameloop timestamp, an optional user-id, an event-id lookup, and the
// event's own struct, byte-aligning after each. Single-step Next keeps
// the stream lazy; a caller never has to force every event into memory
// at once.
type EventStream struct {
	decoder      decoder
	svarTypeID   int
	userIDTypeID int
	decodeUserID bool
	eventIDType  int
	eventTypes   map[int]EventDef
	gameloop     int64
}

func newEventStream(d decoder, svarTypeID, userIDTypeID int, decodeUserID bool, eventIDType int, eventTypes map[int]EventDef) *EventStream {
	return &EventStream{
		decoder:      d,
		svarTypeID:   svarTypeID,
		userIDTypeID: userIDTypeID,
		decodeUserID: decodeUserID,
		eventIDType:  eventIDType,
		eventTypes:   eventTypes,
	}
}

// firstChoiceValue extracts the single numeric value out of the
// one-entry schema.Struct a choice descriptor produces. An empty
// Struct yields 0. A Struct with more than one key cannot arise from a
// well-formed svaruint32 choice; such input yields whichever entry
// Go's randomized map iteration visits first.
func firstChoiceValue(v interface{}) int64 {
	s, ok := v.(schema.Struct)
	if !ok {
		return 0
	}
	for _, val := range s {
		n, _ := val.(int64)
		return n
	}
	return 0
}

// Next decodes and returns the next event, or (nil, false, nil) once
// the stream is exhausted. The returned Struct is augmented with
// "_event", "_eventid", "_gameloop", and (when this stream decodes
// user-ids) "_userid".
func (s *EventStream) Next() (schema.Struct, bool, error) {
	if s.decoder.Done() {
		return nil, false, nil
	}

	deltaVal, err := s.decoder.Instance(s.svarTypeID)
	if err != nil {
		return nil, false, errors.Wrap(err, "event stream: gameloop delta")
	}
	s.gameloop += firstChoiceValue(deltaVal)

	var userid interface{}
	if s.decodeUserID {
		userid, err = s.decoder.Instance(s.userIDTypeID)
		if err != nil {
			return nil, false, errors.Wrap(err, "event stream: userid")
		}
	}

	eventidVal, err := s.decoder.Instance(s.eventIDType)
	if err != nil {
		return nil, false, errors.Wrap(err, "event stream: eventid")
	}
	eventid, _ := eventidVal.(int64)

	def, ok := s.eventTypes[int(eventid)]
	if !ok {
		return nil, false, errors.Wrapf(schema.ErrCorrupted, "eventid(%d)", eventid)
	}

	instanceVal, err := s.decoder.Instance(def.TypeID)
	if err != nil {
		return nil, false, errors.Wrapf(err, "event stream: event(%s)", def.Name)
	}
	event, ok := instanceVal.(schema.Struct)
	if !ok {
		event = schema.Struct{}
	}
	event["_event"] = def.Name
	event["_eventid"] = eventid
	event["_gameloop"] = s.gameloop
	if s.decodeUserID {
		event["_userid"] = userid
	}

	s.decoder.ByteAlign()

	return event, true, nil
}

// All drains the stream, decoding every remaining event eagerly.
func (s *EventStream) All() ([]schema.Struct, error) {
	var events []schema.Struct
	for {
		ev, ok, err := s.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return events, nil
		}
		events = append(events, ev)
	}
}

// DecodeGameEvents opens the game-events sub-stream: bit-packed, event
// loop with user-id.
func DecodeGameEvents(data []byte, p *Protocol) (*EventStream, error) {
	d, err := schema.NewBitPackedDecoder(data, p.Table)
	if err != nil {
		return nil, errors.Wrap(err, "game events")
	}
	return newEventStream(d, p.SVarUint32TypeID, p.ReplayUserIDTypeID, true, p.GameEventIDTypeID, p.GameEventTypes), nil
}

// DecodeMessageEvents opens the message-events sub-stream: bit-packed,
// event loop with user-id.
func DecodeMessageEvents(data []byte, p *Protocol) (*EventStream, error) {
	d, err := schema.NewBitPackedDecoder(data, p.Table)
	if err != nil {
		return nil, errors.Wrap(err, "message events")
	}
	return newEventStream(d, p.SVarUint32TypeID, p.ReplayUserIDTypeID, true, p.MessageEventIDTypeID, p.MessageEventTypes), nil
}

// DecodeTrackerEvents opens the tracker-events sub-stream: versioned,
// event loop without user-id.
func DecodeTrackerEvents(data []byte, p *Protocol) (*EventStream, error) {
	d := schema.NewVersionedDecoder(data, p.Table)
	return newEventStream(d, p.SVarUint32TypeID, 0, false, p.TrackerEventIDTypeID, p.TrackerEventTypes), nil
}

// DecodeHeader decodes the replay header with the versioned decoder.
func DecodeHeader(data []byte, p *Protocol) (schema.Struct, error) {
	d := schema.NewVersionedDecoder(data, p.Table)
	v, err := d.Instance(p.ReplayHeaderTypeID)
	if err != nil {
		return nil, errors.Wrap(err, "replay header")
	}
	s, _ := v.(schema.Struct)
	return s, nil
}

// DecodeDetails decodes the game details with the versioned decoder.
func DecodeDetails(data []byte, p *Protocol) (schema.Struct, error) {
	d := schema.NewVersionedDecoder(data, p.Table)
	v, err := d.Instance(p.GameDetailsTypeID)
	if err != nil {
		return nil, errors.Wrap(err, "game details")
	}
	s, _ := v.(schema.Struct)
	return s, nil
}

// DecodeInitData decodes the replay init data with the bit-packed
// decoder.
func DecodeInitData(data []byte, p *Protocol) (schema.Struct, error) {
	d, err := schema.NewBitPackedDecoder(data, p.Table)
	if err != nil {
		return nil, errors.Wrap(err, "replay initdata")
	}
	v, err := d.Instance(p.ReplayInitdataTypeID)
	if err != nil {
		return nil, errors.Wrap(err, "replay initdata")
	}
	s, _ := v.(schema.Struct)
	return s, nil
}
