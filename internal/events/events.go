// Package events defines the record lifecycle events exchanged over the
// broker and the publisher that emits them.
package events

import (
	"errors"
	"fmt"

	"github.com/marwan562/provisioning-bridge/pkg/wire"
)

// EventType is the closed set of event kinds. The zero value is invalid.
type EventType int32

const (
	EventTypeUnspecified              EventType = 0
	EventTypeAccountCreationRequested EventType = 1
	EventTypeRecordCreated            EventType = 2
)

var eventTypeNames = map[EventType]string{
	EventTypeAccountCreationRequested: "ACCOUNT_CREATION_REQUESTED",
	EventTypeRecordCreated:            "RECORD_CREATED",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EVENT_TYPE_UNSPECIFIED(%d)", int32(t))
}

func (t EventType) Valid() bool {
	_, ok := eventTypeNames[t]
	return ok
}

// ParseEventType accepts only the canonical upper-case names.
func ParseEventType(s string) (EventType, error) {
	for t, name := range eventTypeNames {
		if name == s {
			return t, nil
		}
	}
	return EventTypeUnspecified, fmt.Errorf("unknown event type %q", s)
}

var ErrMalformedEvent = errors.New("malformed event")

// Event is the payload of both topics; the two kinds share one shape.
type Event struct {
	RecordID string
	Name     string
	Email    string
	Type     EventType
}

func NewAccountCreationRequested(recordID, name, email string) Event {
	return Event{RecordID: recordID, Name: name, Email: email, Type: EventTypeAccountCreationRequested}
}

func NewRecordCreated(recordID, name, email string) Event {
	return Event{RecordID: recordID, Name: name, Email: email, Type: EventTypeRecordCreated}
}

const (
	fieldRecordID = 1
	fieldName     = 2
	fieldEmail    = 3
	fieldType     = 4
)

func (e Event) Marshal() []byte {
	var b []byte
	b = wire.AppendString(b, fieldRecordID, e.RecordID)
	b = wire.AppendString(b, fieldName, e.Name)
	b = wire.AppendString(b, fieldEmail, e.Email)
	b = wire.AppendEnum(b, fieldType, int32(e.Type))
	return b
}

// Unmarshal decodes an event, skipping fields it does not know. Payloads
// without a record id or with an unrecognized type are malformed.
func Unmarshal(b []byte) (Event, error) {
	var e Event
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case fieldRecordID:
			e.RecordID = f.String()
		case fieldName:
			e.Name = f.String()
		case fieldEmail:
			e.Email = f.String()
		case fieldType:
			e.Type = EventType(f.Enum())
		}
		return nil
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if e.RecordID == "" {
		return Event{}, fmt.Errorf("%w: missing record_id", ErrMalformedEvent)
	}
	if !e.Type.Valid() {
		return Event{}, fmt.Errorf("%w: unrecognized event type %s", ErrMalformedEvent, e.Type)
	}
	return e, nil
}
