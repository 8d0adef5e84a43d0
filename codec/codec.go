// Package codec holds the serializers used to persist type-erased values.
//
// A Codec[V] is bound to a Go type through anyvalue.Register. Values whose
// type has no registered codec can still be cached in memory, they are only
// refused by persistent stores.
package codec

// Codec encodes/decodes values V to []byte for storage.
// Decode must accept everything Encode produced, in any process.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
