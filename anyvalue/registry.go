package anyvalue

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"google.golang.org/protobuf/proto"

	"github.com/NWChemEx/PluginPlay-sub003/codec"
)

var (
	ErrUnregistered = errors.New("anyvalue: type has no registered codec")
	ErrDuplicate    = errors.New("anyvalue: duplicate registration")
)

// ops is the per-type operation table. Tables are immutable once published;
// Register replaces the table instead of editing it.
type ops struct {
	equal  func(a, b reflect.Value) bool
	name   string
	encode func(reflect.Value) ([]byte, error)
	decode func([]byte) (reflect.Value, error)
}

var registry = struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*ops
	byName map[string]reflect.Type
}{
	byType: make(map[reflect.Type]*ops),
	byName: make(map[string]reflect.Type),
}

func opsFor(t reflect.Type) *ops {
	registry.mu.RLock()
	o, ok := registry.byType[t]
	registry.mu.RUnlock()
	if ok {
		return o
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if o, ok := registry.byType[t]; ok {
		return o
	}
	o = &ops{equal: equalFunc(t)}
	registry.byType[t] = o
	return o
}

var protoMessage = reflect.TypeFor[proto.Message]()

func equalFunc(t reflect.Type) func(a, b reflect.Value) bool {
	if t.Implements(protoMessage) {
		return func(a, b reflect.Value) bool {
			return proto.Equal(a.Interface().(proto.Message), b.Interface().(proto.Message))
		}
	}
	if hasEqualMethod(t, t) {
		return func(a, b reflect.Value) bool {
			return a.MethodByName("Equal").Call([]reflect.Value{b})[0].Bool()
		}
	}
	if hasEqualMethod(reflect.PointerTo(t), t) {
		return func(a, b reflect.Value) bool {
			return a.Addr().MethodByName("Equal").Call([]reflect.Value{b})[0].Bool()
		}
	}
	if t.Comparable() {
		return func(a, b reflect.Value) (eq bool) {
			// interface fields may still hold uncomparable dynamic values
			defer func() {
				if recover() != nil {
					eq = reflect.DeepEqual(a.Interface(), b.Interface())
				}
			}()
			return a.Equal(b)
		}
	}
	return func(a, b reflect.Value) bool {
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
}

// hasEqualMethod matches func (recv) Equal(t) bool.
func hasEqualMethod(recv, t reflect.Type) bool {
	if recv.Kind() == reflect.Interface {
		return false
	}
	m, ok := recv.MethodByName("Equal")
	if !ok {
		return false
	}
	mt := m.Type // includes the receiver as In(0)
	return mt.NumIn() == 2 && mt.In(1) == t && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool
}

// Register binds a stable name and a codec to T so Values holding T can be
// persisted. Registering the same name for the same type again swaps the
// codec; reusing a name or a type with a different partner fails.
func Register[T any](name string, c codec.Codec[T]) error {
	t := reflect.TypeFor[T]()
	if name == "" {
		return fmt.Errorf("anyvalue: register %s: empty name", t)
	}
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("anyvalue: register %s: interface types hold no concrete value", t)
	}
	if c == nil {
		return fmt.Errorf("anyvalue: register %s: nil codec", t)
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if prev, ok := registry.byName[name]; ok && prev != t {
		return fmt.Errorf("%w: name %q already bound to %s", ErrDuplicate, name, prev)
	}
	cur, ok := registry.byType[t]
	if !ok {
		cur = &ops{equal: equalFunc(t)}
	}
	if cur.name != "" && cur.name != name {
		return fmt.Errorf("%w: %s already registered as %q", ErrDuplicate, t, cur.name)
	}

	registry.byType[t] = &ops{
		equal: cur.equal,
		name:  name,
		encode: func(rv reflect.Value) ([]byte, error) {
			return c.Encode(rv.Interface().(T))
		},
		decode: func(b []byte) (reflect.Value, error) {
			x, err := c.Decode(b)
			if err != nil {
				return reflect.Value{}, err
			}
			rv := reflect.New(t).Elem()
			rv.Set(reflect.ValueOf(&x).Elem())
			return rv, nil
		},
	}
	registry.byName[name] = t
	return nil
}

// MustRegister is like Register but panics on error. Meant for init funcs.
func MustRegister[T any](name string, c codec.Codec[T]) {
	if err := Register[T](name, c); err != nil {
		panic(err)
	}
}

// TypeName returns the registered name for t.
func TypeName(t reflect.Type) (string, bool) {
	o := opsFor(t)
	return o.name, o.name != ""
}

type envelope struct {
	Type string `cbor:"1,keyasint,omitempty"`
	Data []byte `cbor:"2,keyasint,omitempty"`
}

var envelopeCodec = codec.MustCBOR[envelope](true)

// Marshal serializes v as {registered type name, codec payload}. An empty
// Value marshals to an envelope without a type.
func Marshal(v Value) ([]byte, error) {
	if !v.HasValue() {
		return envelopeCodec.Encode(envelope{})
	}
	o := opsFor(v.rv.Type())
	if o.encode == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnregistered, v.rv.Type())
	}
	data, err := o.encode(v.rv)
	if err != nil {
		return nil, fmt.Errorf("anyvalue: encode %s: %w", o.name, err)
	}
	return envelopeCodec.Encode(envelope{Type: o.name, Data: data})
}

// Unmarshal is the inverse of Marshal. The result is held by value.
func Unmarshal(b []byte) (Value, error) {
	env, err := envelopeCodec.Decode(b)
	if err != nil {
		return Value{}, fmt.Errorf("anyvalue: decode envelope: %w", err)
	}
	if env.Type == "" {
		return Value{}, nil
	}

	registry.mu.RLock()
	t, ok := registry.byName[env.Type]
	var o *ops
	if ok {
		o = registry.byType[t]
	}
	registry.mu.RUnlock()
	if !ok || o == nil || o.decode == nil {
		return Value{}, fmt.Errorf("%w: %q", ErrUnregistered, env.Type)
	}

	rv, err := o.decode(env.Data)
	if err != nil {
		return Value{}, fmt.Errorf("anyvalue: decode %s: %w", env.Type, err)
	}
	return Value{rv: rv, mode: ModeValue}, nil
}

func registerBuiltin[T any](name string) {
	MustRegister[T](name, codec.MustCBOR[T](true))
}

func init() {
	registerBuiltin[bool]("bool")
	registerBuiltin[int]("int")
	registerBuiltin[int8]("int8")
	registerBuiltin[int16]("int16")
	registerBuiltin[int32]("int32")
	registerBuiltin[int64]("int64")
	registerBuiltin[uint]("uint")
	registerBuiltin[uint8]("uint8")
	registerBuiltin[uint16]("uint16")
	registerBuiltin[uint32]("uint32")
	registerBuiltin[uint64]("uint64")
	registerBuiltin[float32]("float32")
	registerBuiltin[float64]("float64")
	registerBuiltin[string]("string")
	registerBuiltin[[]byte]("bytes")
	registerBuiltin[[]int]("[]int")
	registerBuiltin[[]float64]("[]float64")
	registerBuiltin[[]string]("[]string")
	registerBuiltin[map[string]int]("map[string]int")
	registerBuiltin[map[string]float64]("map[string]float64")
	registerBuiltin[map[string]string]("map[string]string")
}
