package relayserver

import (
	"encoding/json"
	"errors"
)

// event mirrors the wire shape internal/relay's WSClient publishes and
// expects to receive; the two packages share no Go type, only this JSON
// layout, since relay.event is unexported.
type event struct {
	ID        string  `json:"id"`
	Kind      int     `json:"kind"`
	PubKey    string  `json:"pubkey"`
	CreatedAt int64   `json:"created_at"`
	Content   string  `json:"content"`
	Tags      [][]any `json:"tags"`
}

// taggedRecipient returns the pubkey named by this event's "p" tag, if any.
func (e event) taggedRecipient() (string, bool) {
	for _, t := range e.Tags {
		if len(t) != 2 {
			continue
		}
		name, ok := t[0].(string)
		if !ok || name != "p" {
			continue
		}
		if val, ok := t[1].(string); ok {
			return val, true
		}
	}
	return "", false
}

// filter is the subset of a NIP-01 REQ filter this relay honors: events
// tagged to one of the listed recipients, optionally restricted by kind.
type filter struct {
	Recipients []string `json:"#p"`
	Kinds      []int    `json:"kinds"`
}

func (f filter) matches(e event) bool {
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, e.Kind) {
		return false
	}
	if len(f.Recipients) == 0 {
		return true
	}
	to, ok := e.taggedRecipient()
	if !ok {
		return false
	}
	return containsString(f.Recipients, to)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// decodeClientFrame parses one ["VERB", ...args] client message.
func decodeClientFrame(raw []byte) (verb string, args []json.RawMessage, err error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", nil, err
	}
	if len(frame) == 0 {
		return "", nil, errors.New("relayserver: empty client frame")
	}
	if err := json.Unmarshal(frame[0], &verb); err != nil {
		return "", nil, err
	}
	return verb, frame[1:], nil
}

func encodeEventFrame(subID string, e event) ([]byte, error) {
	return json.Marshal([]any{"EVENT", subID, e})
}
