package codec

import "encoding/json"

// JSON serializes with encoding/json. Human readable in a save location, but
// maps lose their key type and numbers in interface fields come back as
// float64, so only register it for concrete, JSON-friendly types.
type JSON[V any] struct{}

var _ Codec[int] = JSON[int]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
