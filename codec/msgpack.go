package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack serializes with vmihailenco/msgpack/v5. The zero value is ready to
// use. Compact and fast; use `msgpack:"name"` tags for explicit field names.
type Msgpack[V any] struct{}

var _ Codec[int] = Msgpack[int]{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
