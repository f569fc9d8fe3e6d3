package quote

import "encoding/json"

// Encode marshals a Quote into the exact datagram payload sent to
// subscribers: one JSON object per datagram, no framing.
func Encode(q *Quote) ([]byte, error) {
	return json.Marshal(q)
}

// Decode parses a datagram payload back into a Quote.
func Decode(data []byte) (Quote, error) {
	var q Quote
	err := json.Unmarshal(data, &q)
	return q, err
}

// tickerPeek is used to read just the ticker field out of an
// already-serialized quote, so the transmitter can apply a
// subscription filter without building a full Quote for every
// candidate datagram.
type tickerPeek struct {
	Ticker string `json:"ticker"`
}

// PeekTicker extracts only the ticker field from a serialized quote
// payload, avoiding the cost of decoding the rest of the record on the
// per-datagram filter hot path.
func PeekTicker(data []byte) (string, error) {
	var p tickerPeek
	if err := json.Unmarshal(data, &p); err != nil {
		return "", err
	}
	return p.Ticker, nil
}
