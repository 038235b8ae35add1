package relaytransport

import "encoding/json"

// body is the JSON plaintext sealed for the wire. Exactly the fields a
// given kind needs are populated; the rest stay zero and are omitted.
type body struct {
	Kind            string `json:"kind"`
	MessageID       string `json:"message_id,omitempty"`
	Content         string `json:"content,omitempty"`
	FileName        string `json:"file_name,omitempty"`
	MimeType        string `json:"mime_type,omitempty"`
	FileBytes       []byte `json:"file_bytes,omitempty"`
	TimestampMillis int64  `json:"timestamp_millis,omitempty"`
	IsFavorite      bool   `json:"is_favorite,omitempty"`
}

const (
	kindPrivateMessage = "message"
	kindFileTransfer   = "file"
	kindDeliveryAck    = "ack"
	kindReadReceipt    = "receipt"
	kindFavorite       = "favorite"
)

func encodeBody(b body) ([]byte, error) { return json.Marshal(b) }

func decodeBody(data []byte) (body, error) {
	var b body
	err := json.Unmarshal(data, &b)
	return b, err
}
