// Package hasher computes stable, content-addressed digests over sequences of
// Go values. Digests depend only on the values fed in and their order: never
// on pointer identity, map iteration order or the machine that runs the code.
// They are safe to use as persistent cache keys.
//
// Encoding rules:
//   - integers are widened to 64 bits and tagged with their kind, so int32(3)
//     and int64(3) differ; floats are hashed by their bit pattern with -0
//     folded into +0 and every NaN into one NaN;
//   - values of defined types (type Energy float64) also contribute the
//     type's package path and name;
//   - strings and byte slices are length prefixed;
//   - slices and arrays are hashed element by element in order, a nil slice
//     hashes like an empty one;
//   - maps are hashed in the order of their key digests, so insertion order
//     never matters;
//   - structs contribute every field name and value;
//   - pointers and interfaces contribute what they point to;
//   - proto.Message values are hashed by their deterministic wire encoding;
//   - Hashable values decide for themselves, Transparent values contribute a
//     fixed all-zero sentinel.
package hasher

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math"
	"reflect"
	"sort"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/protobuf/proto"
)

// Algorithm selects the underlying digest function.
type Algorithm uint8

const (
	// SHA256 truncated to the configured size. The default.
	SHA256 Algorithm = iota
	// XXHash64 is fast and non-cryptographic; its digest is always 8 bytes.
	XXHash64
)

func (a Algorithm) String() string {
	switch a {
	case SHA256:
		return "sha256"
	case XXHash64:
		return "xxhash64"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// DefaultSize is the digest length in bytes (128 bit, 32 hex characters).
const DefaultSize = 16

const maxDepth = 256

var (
	ErrUnhashable = errors.New("hasher: unhashable value")
	ErrTooDeep    = errors.New("hasher: value nested too deeply (cycle?)")
)

// Hashable is implemented by types that feed their own contribution into a
// Hasher. HashInto should call h.Hash with the parts that define the value.
type Hashable interface {
	HashInto(h *Hasher) error
}

// Transparent is implemented by types whose value must never influence a
// digest. They always contribute the same sentinel.
type Transparent interface {
	HashTransparent()
}

// Sentinel is the canonical Transparent value.
type Sentinel struct{}

func (Sentinel) HashTransparent() {}

const (
	tagNil byte = iota + 1
	tagBool
	tagInt
	tagUint
	tagFloat32
	tagFloat64
	tagComplex64
	tagComplex128
	tagString
	tagBytes
	tagList
	tagMap
	tagStruct
	tagProto
	tagSentinel
	tagNamed
)

// Hasher accumulates values into a running digest. It is not safe for
// concurrent use.
type Hasher struct {
	alg   Algorithm
	size  int
	h     hash.Hash
	depth int
	buf   [8]byte
}

type Option func(*Hasher)

func WithAlgorithm(a Algorithm) Option { return func(h *Hasher) { h.alg = a } }

// WithSize sets the digest length in bytes for SHA256 (1..32). Out of range
// values fall back to DefaultSize. Ignored for XXHash64.
func WithSize(n int) Option { return func(h *Hasher) { h.size = n } }

func New(opts ...Option) *Hasher {
	h := &Hasher{alg: SHA256, size: DefaultSize}
	for _, o := range opts {
		o(h)
	}
	switch h.alg {
	case XXHash64:
		h.h = xxhash.New()
		h.size = 8
	default:
		h.alg = SHA256
		h.h = sha256.New()
		if h.size <= 0 || h.size > sha256.Size {
			h.size = DefaultSize
		}
	}
	return h
}

func (h *Hasher) Algorithm() Algorithm { return h.alg }

// Size is the digest length in bytes.
func (h *Hasher) Size() int { return h.size }

// Reset discards everything hashed so far.
func (h *Hasher) Reset() {
	h.h.Reset()
	h.depth = 0
}

// Hash folds objs into the digest in argument order.
func (h *Hasher) Hash(objs ...any) error {
	for _, o := range objs {
		if err := h.hashOne(o); err != nil {
			return err
		}
	}
	return nil
}

// Finalize returns the digest of everything hashed so far. It does not change
// the state, more values may be hashed afterwards.
func (h *Hasher) Finalize() []byte {
	return h.h.Sum(nil)[:h.size]
}

// Hex is Finalize rendered as lowercase hex.
func (h *Hasher) Hex() string {
	return hex.EncodeToString(h.Finalize())
}

// HashObjects hashes objs with the default configuration and returns the hex
// digest.
func HashObjects(objs ...any) (string, error) {
	h := New()
	if err := h.Hash(objs...); err != nil {
		return "", err
	}
	return h.Hex(), nil
}

// MustHashObjects is like HashObjects but panics on error.
func MustHashObjects(objs ...any) string {
	s, err := HashObjects(objs...)
	if err != nil {
		panic(err)
	}
	return s
}

func (h *Hasher) hashOne(o any) error {
	switch v := o.(type) {
	case nil:
		h.tag(tagNil)
		return nil
	case Transparent:
		h.sentinel()
		return nil
	case Hashable:
		return h.nested(func() error { return v.HashInto(h) })
	case proto.Message:
		return h.hashProto(v)
	case bool:
		h.tag(tagBool)
		h.writeBool(v)
	case int:
		h.writeInt(reflect.Int, int64(v))
	case int8:
		h.writeInt(reflect.Int8, int64(v))
	case int16:
		h.writeInt(reflect.Int16, int64(v))
	case int32:
		h.writeInt(reflect.Int32, int64(v))
	case int64:
		h.writeInt(reflect.Int64, v)
	case uint:
		h.writeUint(reflect.Uint, uint64(v))
	case uint8:
		h.writeUint(reflect.Uint8, uint64(v))
	case uint16:
		h.writeUint(reflect.Uint16, uint64(v))
	case uint32:
		h.writeUint(reflect.Uint32, uint64(v))
	case uint64:
		h.writeUint(reflect.Uint64, v)
	case float32:
		h.tag(tagFloat32)
		h.writeFloat32(v)
	case float64:
		h.tag(tagFloat64)
		h.writeFloat64(v)
	case string:
		h.tag(tagString)
		h.writeString(v)
	case []byte:
		h.tag(tagBytes)
		h.writeBytes(v)
	default:
		return h.hashValue(reflect.ValueOf(o))
	}
	return nil
}

func (h *Hasher) hashValue(rv reflect.Value) error {
	if !rv.IsValid() {
		h.tag(tagNil)
		return nil
	}
	if rv.CanInterface() {
		switch v := rv.Interface().(type) {
		case Transparent:
			h.sentinel()
			return nil
		case Hashable:
			return h.nested(func() error { return v.HashInto(h) })
		case proto.Message:
			return h.hashProto(v)
		}
	}

	h.typeName(rv.Type())
	switch k := rv.Kind(); k {
	case reflect.Bool:
		h.tag(tagBool)
		h.writeBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		h.writeInt(k, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		h.writeUint(k, rv.Uint())
	case reflect.Float32:
		h.tag(tagFloat32)
		h.writeFloat32(float32(rv.Float()))
	case reflect.Float64:
		h.tag(tagFloat64)
		h.writeFloat64(rv.Float())
	case reflect.Complex64:
		c := rv.Complex()
		h.tag(tagComplex64)
		h.writeFloat32(float32(real(c)))
		h.writeFloat32(float32(imag(c)))
	case reflect.Complex128:
		c := rv.Complex()
		h.tag(tagComplex128)
		h.writeFloat64(real(c))
		h.writeFloat64(imag(c))
	case reflect.String:
		h.tag(tagString)
		h.writeString(rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			h.tag(tagBytes)
			h.writeBytes(rv.Bytes())
			return nil
		}
		return h.hashList(rv)
	case reflect.Array:
		return h.hashList(rv)
	case reflect.Map:
		return h.hashMap(rv)
	case reflect.Struct:
		return h.hashStruct(rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			h.tag(tagNil)
			return nil
		}
		return h.nested(func() error { return h.hashValue(rv.Elem()) })
	default:
		return fmt.Errorf("%w: %s", ErrUnhashable, rv.Type())
	}
	return nil
}

func (h *Hasher) hashList(rv reflect.Value) error {
	return h.nested(func() error {
		h.tag(tagList)
		h.writeLen(rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if err := h.hashValue(rv.Index(i)); err != nil {
				return err
			}
		}
		return nil
	})
}

type mapPair struct {
	digest []byte
	val    reflect.Value
}

func (h *Hasher) hashMap(rv reflect.Value) error {
	return h.nested(func() error {
		pairs := make([]mapPair, 0, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			// each key gets its own full-width digest; the sort order of
			// those digests is the canonical iteration order
			sub := &Hasher{alg: SHA256, size: sha256.Size, h: sha256.New(), depth: h.depth}
			if err := sub.hashValue(it.Key()); err != nil {
				return err
			}
			pairs = append(pairs, mapPair{digest: sub.h.Sum(nil), val: it.Value()})
		}
		sort.Slice(pairs, func(i, j int) bool {
			return bytes.Compare(pairs[i].digest, pairs[j].digest) < 0
		})

		h.tag(tagMap)
		h.writeLen(len(pairs))
		for _, p := range pairs {
			h.write(p.digest)
			if err := h.hashValue(p.val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *Hasher) hashStruct(rv reflect.Value) error {
	return h.nested(func() error {
		t := rv.Type()
		h.tag(tagStruct)
		h.writeLen(t.NumField())
		for i := 0; i < t.NumField(); i++ {
			h.writeString(t.Field(i).Name)
			if err := h.hashValue(rv.Field(i)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *Hasher) hashProto(m proto.Message) error {
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
	if err != nil {
		return fmt.Errorf("hasher: proto marshal: %w", err)
	}
	h.tag(tagProto)
	h.writeString(string(m.ProtoReflect().Descriptor().FullName()))
	h.writeBytes(b)
	return nil
}

func (h *Hasher) nested(fn func() error) error {
	if h.depth >= maxDepth {
		return ErrTooDeep
	}
	h.depth++
	defer func() { h.depth-- }()
	return fn()
}

func (h *Hasher) sentinel() {
	h.tag(tagSentinel)
	h.write(make([]byte, h.size))
}

func (h *Hasher) tag(t byte) { h.write([]byte{t}) }

func (h *Hasher) write(p []byte) {
	_, _ = h.h.Write(p) // hash.Hash never returns an error
}

func (h *Hasher) writeU64(u uint64) {
	binary.BigEndian.PutUint64(h.buf[:], u)
	h.write(h.buf[:])
}

// typeName folds in the identity of defined types. Predeclared and unnamed
// types are covered by the kind tags alone.
func (h *Hasher) typeName(t reflect.Type) {
	if t.Name() == "" || t.PkgPath() == "" {
		return
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		return
	}
	h.tag(tagNamed)
	h.writeString(t.PkgPath() + "." + t.Name())
}

func (h *Hasher) writeInt(k reflect.Kind, i int64) {
	h.tag(tagInt)
	h.tag(byte(k))
	h.writeU64(uint64(i))
}

func (h *Hasher) writeUint(k reflect.Kind, u uint64) {
	h.tag(tagUint)
	h.tag(byte(k))
	h.writeU64(u)
}

// writeFloat64 hashes f by bit pattern, with -0 as +0 and one NaN, so values
// that compare equal hash equal.
func (h *Hasher) writeFloat64(f float64) {
	switch {
	case f == 0:
		f = 0
	case math.IsNaN(f):
		f = math.NaN()
	}
	h.writeU64(math.Float64bits(f))
}

func (h *Hasher) writeFloat32(f float32) {
	switch {
	case f == 0:
		f = 0
	case f != f:
		f = float32(math.NaN())
	}
	h.writeU64(uint64(math.Float32bits(f)))
}

func (h *Hasher) writeBool(b bool) {
	if b {
		h.write([]byte{1})
		return
	}
	h.write([]byte{0})
}

func (h *Hasher) writeLen(n int) { h.writeU64(uint64(n)) }

func (h *Hasher) writeString(s string) {
	h.writeLen(len(s))
	_, _ = h.h.Write([]byte(s))
}

func (h *Hasher) writeBytes(b []byte) {
	h.writeLen(len(b))
	h.write(b)
}
