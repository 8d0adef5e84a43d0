// Package anyvalue provides Value, a container for exactly one value of any
// Go type.
//
// A Value remembers the dynamic type of what it holds and how it holds it:
// by value (its own copy), by mutable reference or by read-only reference to
// a variable owned by someone else. Extraction is checked at run time against
// both: the requested type must match exactly, and a mutable pointer is never
// handed out for a read-only reference.
//
// Values compare by content (Equal), render themselves (String) and hash by
// content (HashInto), so two Values holding equal contents produce the same
// digest whatever their storage mode.
//
// Assigning a Value copies the handle, not the contents: both copies see the
// same storage. Use Clone for an independent copy.
package anyvalue

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/NWChemEx/PluginPlay-sub003/hasher"
)

// Mode is how a Value holds its contents.
type Mode uint8

const (
	ModeNone     Mode = iota // empty
	ModeValue                // owned copy
	ModeRef                  // mutable reference, not owned
	ModeConstRef             // read-only reference, not owned
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeValue:
		return "value"
	case ModeRef:
		return "ref"
	case ModeConstRef:
		return "const-ref"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Void is the type reported by an empty Value.
type Void struct{}

// VoidType is reflect.TypeOf(Void{}).
var VoidType = reflect.TypeFor[Void]()

var (
	ErrBadCast = errors.New("anyvalue: bad cast")
	ErrNoValue = errors.New("anyvalue: no value")
)

// CastError reports an extraction that does not fit the held value.
// It matches ErrBadCast with errors.Is.
type CastError struct {
	Requested reflect.Type
	Actual    reflect.Type
	Mode      Mode
	Mutable   bool // a mutable reference was requested
}

func (e *CastError) Error() string {
	if e.Mutable && e.Requested == e.Actual {
		return fmt.Sprintf("anyvalue: bad cast: mutable reference to %s requested, value is held as %s", e.Requested, e.Mode)
	}
	return fmt.Sprintf("anyvalue: bad cast: requested %s, holds %s", e.Requested, e.Actual)
}

func (e *CastError) Is(target error) bool { return target == ErrBadCast }

// Value holds one value of any type. The zero Value is empty.
type Value struct {
	rv   reflect.Value // always addressable when mode != ModeNone
	mode Mode
}

// Of stores a copy of x. For an interface-typed T the dynamic type of x is
// recorded; a nil interface gives an empty Value. Of(v) for a Value v returns
// v unchanged.
func Of[T any](x T) Value {
	return FromAny(x)
}

// FromAny stores a copy of x using its dynamic type.
func FromAny(x any) Value {
	switch v := x.(type) {
	case nil:
		return Value{}
	case Value:
		return v
	}
	src := reflect.ValueOf(x)
	rv := reflect.New(src.Type()).Elem()
	rv.Set(src)
	return Value{rv: rv, mode: ModeValue}
}

// Ref stores a mutable reference to *p. The Value never owns *p.
func Ref[T any](p *T) Value {
	if p == nil {
		return Value{}
	}
	return Value{rv: reflect.ValueOf(p).Elem(), mode: ModeRef}
}

// ConstRef stores a read-only reference to *p. CastRef on the result fails.
func ConstRef[T any](p *T) Value {
	if p == nil {
		return Value{}
	}
	return Value{rv: reflect.ValueOf(p).Elem(), mode: ModeConstRef}
}

func (v Value) HasValue() bool { return v.mode != ModeNone }

func (v Value) Mode() Mode { return v.mode }

// Type returns the held type, or VoidType for an empty Value.
func (v Value) Type() reflect.Type {
	if !v.HasValue() {
		return VoidType
	}
	return v.rv.Type()
}

func (v Value) view(want reflect.Type, mutable bool) (reflect.Value, error) {
	if !v.HasValue() {
		return reflect.Value{}, fmt.Errorf("%w: requested %s", ErrNoValue, want)
	}
	if v.rv.Type() != want {
		return reflect.Value{}, &CastError{Requested: want, Actual: v.rv.Type(), Mode: v.mode, Mutable: mutable}
	}
	if mutable && v.mode == ModeConstRef {
		return reflect.Value{}, &CastError{Requested: want, Actual: want, Mode: v.mode, Mutable: true}
	}
	return v.rv, nil
}

// Cast returns a copy of the held value. Works in every storage mode.
func Cast[T any](v Value) (T, error) {
	var zero T
	rv, err := v.view(reflect.TypeFor[T](), false)
	if err != nil {
		return zero, err
	}
	return rv.Interface().(T), nil
}

// CastRef returns a pointer through which the held value may be modified.
// Fails for ModeConstRef.
func CastRef[T any](v Value) (*T, error) {
	rv, err := v.view(reflect.TypeFor[T](), true)
	if err != nil {
		return nil, err
	}
	return rv.Addr().Interface().(*T), nil
}

// CastConstRef returns a pointer to the held value without copying it. The
// caller must not write through it.
func CastConstRef[T any](v Value) (*T, error) {
	rv, err := v.view(reflect.TypeFor[T](), false)
	if err != nil {
		return nil, err
	}
	return rv.Addr().Interface().(*T), nil
}

// Emplace replaces the contents of v with a copy of x.
func Emplace[T any](v *Value, x T) {
	*v = Of(x)
}

func (v *Value) Reset() { *v = Value{} }

func (v *Value) Swap(o *Value) { *v, *o = *o, *v }

// Clone returns a by-value copy with its own storage. References are
// dereferenced, so the clone no longer tracks the referenced variable.
func (v Value) Clone() Value {
	if !v.HasValue() {
		return Value{}
	}
	rv := reflect.New(v.rv.Type()).Elem()
	rv.Set(v.rv)
	return Value{rv: rv, mode: ModeValue}
}

// Interface returns the held value boxed in an interface, nil when empty.
func (v Value) Interface() any {
	if !v.HasValue() {
		return nil
	}
	return v.rv.Interface()
}

// Equal reports whether both Values are empty, or hold the same type with
// equal contents. Mismatched types are simply unequal.
func (v Value) Equal(o Value) bool {
	if !v.HasValue() || !o.HasValue() {
		return v.HasValue() == o.HasValue()
	}
	if v.rv.Type() != o.rv.Type() {
		return false
	}
	return opsFor(v.rv.Type()).equal(v.rv, o.rv)
}

func (v Value) String() string {
	if !v.HasValue() {
		return "<void>"
	}
	switch v.rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("<%#x>", v.rv.Pointer())
	}
	if s, ok := v.rv.Addr().Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v.rv.Interface())
}

// HashInto feeds the held value, not the container, into h.
func (v Value) HashInto(h *hasher.Hasher) error {
	if !v.HasValue() {
		return h.Hash(nil)
	}
	return h.Hash(v.rv.Interface())
}

var _ hasher.Hashable = Value{}
