package pluginplay

import (
	"context"

	"github.com/NWChemEx/PluginPlay-sub003/anyvalue"
)

// userField names the single input and result a UserCache stores.
const userField = ""

// UserCache is a free-form cache a module may use for anything: any hashable
// key, any value. It is a thin adapter over a ModuleCache of its own, so keys
// follow the same hashing rules as inputs.
//
// The zero value (and a nil *UserCache) is a placeholder that never hits.
type UserCache struct {
	mc *ModuleCache
}

func NewUserCache(mc *ModuleCache) *UserCache { return &UserCache{mc: mc} }

func userInputs(key any) InputSet { return InputSet{userField: Input(key)} }

func (u *UserCache) module() *ModuleCache {
	if u == nil {
		return nil
	}
	return u.mc
}

// Count reports whether a value is cached under key.
func (u *UserCache) Count(ctx context.Context, key any) (bool, error) {
	return u.module().Count(ctx, userInputs(key))
}

// Cache stores value under key, replacing any previous value.
func (u *UserCache) Cache(ctx context.Context, key, value any) error {
	return u.module().Cache(ctx, userInputs(key), ResultSet{userField: Result(value)})
}

// Uncache returns the value cached under key, or ErrNotFound.
func (u *UserCache) Uncache(ctx context.Context, key any) (anyvalue.Value, error) {
	rs, err := u.module().Uncache(ctx, userInputs(key))
	if err != nil {
		return anyvalue.Value{}, err
	}
	r, ok := rs[userField]
	if !ok {
		return anyvalue.Value{}, ErrNotFound
	}
	return r.Value, nil
}

// Reset forgets everything cached.
func (u *UserCache) Reset(ctx context.Context) error {
	return u.module().Clear(ctx)
}

// Uncache returns the value under key as a T. A value of another type fails
// with ErrBadCast.
func Uncache[T any](ctx context.Context, u *UserCache, key any) (T, error) {
	var zero T
	v, err := u.Uncache(ctx, key)
	if err != nil {
		return zero, err
	}
	return anyvalue.Cast[T](v)
}

// UncacheOr is Uncache returning def on any failure.
func UncacheOr[T any](ctx context.Context, u *UserCache, key any, def T) T {
	v, err := Uncache[T](ctx, u, key)
	if err != nil {
		return def
	}
	return v
}
