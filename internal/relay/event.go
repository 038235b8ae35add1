package relay

import (
	"encoding/base64"
	"encoding/json"
)

// KindEphemeralDM and KindAnnouncement are the two event kinds the relay
// transport publishes. Real Nostr reserves small integer kinds for
// ephemeral/regular/replaceable events; these values sit in the
// "ephemeral" range (20000-29999) so a relay that enforces that convention
// does not persist them past the session.
const (
	KindEphemeralDM  = 20001
	KindAnnouncement = 20002
)

// tag is a single Nostr-style tag: ["p", "<hex pubkey>"] addresses an event
// to a recipient; ["e", "<id>"] would reference another event, unused here.
type tag [2]string

// event is the wire envelope published to and received from a relay. Content
// carries the sealed payload, base64-encoded, so relays that only validate
// UTF-8 JSON strings never need to know it is binary.
type event struct {
	ID        string `json:"id"`
	Kind      int    `json:"kind"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Content   string `json:"content"`
	Tags      []tag  `json:"tags"`
}

// clientMessage is the outer frame a relay expects on the wire: a JSON
// array whose first element names the verb ("EVENT", "REQ", "CLOSE") and
// whose remaining elements are its arguments. This package only ever
// publishes events and subscribes with an always-open filter, so it never
// needs "CLOSE" or a filter beyond the recipient tag and event kind.
type clientMessage struct {
	Verb string
	Args []any
}

func (m clientMessage) MarshalJSON() ([]byte, error) {
	arr := make([]any, 0, len(m.Args)+1)
	arr = append(arr, m.Verb)
	arr = append(arr, m.Args...)
	return json.Marshal(arr)
}

func newEvent(kind int, pubKey string, toPubKey string, sealed []byte, now int64) event {
	return event{
		Kind:      kind,
		PubKey:    pubKey,
		CreatedAt: now,
		Content:   base64.StdEncoding.EncodeToString(sealed),
		Tags:      []tag{{"p", toPubKey}},
	}
}

func (e event) sealedBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Content)
}

func (e event) taggedRecipient() (string, bool) {
	for _, t := range e.Tags {
		if t[0] == "p" {
			return t[1], true
		}
	}
	return "", false
}
