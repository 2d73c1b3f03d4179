package persistence

import (
	"bytes"
	"encoding/gob"
	"errors"
	"time"

	"github.com/petrijr/conduit/pkg/api"
)

// eventPayload is the wire shape of a RunEvent. Time is stored as
// UnixNano so that decoded events compare equal regardless of the
// monotonic clock reading carried by the appended value.
type eventPayload struct {
	RunID    string
	ParentID string
	AtNano   int64
	Type     string
	Name     string
	Step     int
	Detail   string
}

// EncodeEvent serializes a RunEvent using encoding/gob.
func EncodeEvent(ev api.RunEvent) ([]byte, error) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	payload := eventPayload{
		RunID:    ev.RunID,
		ParentID: ev.ParentID,
		AtNano:   at.UnixNano(),
		Type:     string(ev.Type),
		Name:     ev.Name,
		Step:     ev.Step,
		Detail:   ev.Detail,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeEvent is the inverse of EncodeEvent.
func DecodeEvent(data []byte) (api.RunEvent, error) {
	if len(data) == 0 {
		return api.RunEvent{}, errors.New("gob: empty event payload")
	}
	var payload eventPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return api.RunEvent{}, err
	}
	return api.RunEvent{
		RunID:    payload.RunID,
		ParentID: payload.ParentID,
		At:       time.Unix(0, payload.AtNano),
		Type:     api.EventType(payload.Type),
		Name:     payload.Name,
		Step:     payload.Step,
		Detail:   payload.Detail,
	}, nil
}
