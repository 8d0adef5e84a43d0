package hasher

import (
	"errors"
	"math"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

func mustHex(t *testing.T, objs ...any) string {
	t.Helper()
	s, err := HashObjects(objs...)
	if err != nil {
		t.Fatalf("HashObjects: %v", err)
	}
	return s
}

func TestDigestLengthIsFixed(t *testing.T) {
	for _, v := range []any{nil, 1, "a very long string that is longer than the digest", []float64{1, 2, 3}} {
		if got := len(mustHex(t, v)); got != 2*DefaultSize {
			t.Fatalf("hex length for %v = %d, want %d", v, got, 2*DefaultSize)
		}
	}

	h := New(WithSize(8))
	_ = h.Hash(3.14)
	if len(h.Finalize()) != 8 {
		t.Fatalf("WithSize(8) digest = %d bytes", len(h.Finalize()))
	}

	x := New(WithAlgorithm(XXHash64), WithSize(32))
	_ = x.Hash("k")
	if x.Size() != 8 || len(x.Hex()) != 16 {
		t.Fatalf("xxhash digest size = %d, hex %q", x.Size(), x.Hex())
	}
}

func TestDeterministicAcrossHashers(t *testing.T) {
	type point struct {
		X, Y float64
		tag  string
	}
	objs := []any{int64(42), "abc", []int{1, 2, 3}, point{1, 2, "p"}, map[string]int{"a": 1}}
	a := mustHex(t, objs...)
	b := mustHex(t, objs...)
	if a != b {
		t.Fatalf("digest not deterministic: %s vs %s", a, b)
	}
}

func TestFloatWidthsDiffer(t *testing.T) {
	if mustHex(t, 2.7183) == mustHex(t, float32(2.7183)) {
		t.Fatalf("float64 and float32 digests must differ")
	}
}

func TestDistinctValuesDistinctDigests(t *testing.T) {
	seen := map[string]any{}
	for _, v := range []any{3.1415, 2.7183, 1.4142, 0.0, "3.1415", int64(3), uint64(3), true, false, nil, []int{}, []int{0}} {
		d := mustHex(t, v)
		if prev, ok := seen[d]; ok {
			t.Fatalf("collision between %#v and %#v", prev, v)
		}
		seen[d] = v
	}
}

type energy float64

type basis string

func TestIntWidthsDiffer(t *testing.T) {
	type count int
	seen := map[string]any{}
	for _, v := range []any{7, int8(7), int16(7), int32(7), int64(7), uint(7), uint8(7), uint16(7), uint32(7), uint64(7), count(7)} {
		d := mustHex(t, v)
		if prev, ok := seen[d]; ok {
			t.Fatalf("%T(7) and %T(7) share a digest", prev, v)
		}
		seen[d] = v
	}
}

func TestDefinedTypesDiffer(t *testing.T) {
	if mustHex(t, energy(1.5)) == mustHex(t, 1.5) {
		t.Fatalf("defined float type hashes like float64")
	}
	if mustHex(t, basis("sto-3g")) == mustHex(t, "sto-3g") {
		t.Fatalf("defined string type hashes like string")
	}
	if mustHex(t, []energy{1}) == mustHex(t, []float64{1}) {
		t.Fatalf("slices of different element types collide")
	}
	if mustHex(t, energy(1.5)) != mustHex(t, energy(1.5)) {
		t.Fatalf("defined type digest not deterministic")
	}
}

func TestSignedZeroAndNaN(t *testing.T) {
	negZero := math.Copysign(0, -1)
	if mustHex(t, 0.0) != mustHex(t, negZero) {
		t.Fatalf("0 and -0 compare equal but hash differently")
	}
	if mustHex(t, float32(0)) != mustHex(t, float32(negZero)) {
		t.Fatalf("float32 0 and -0 hash differently")
	}
	otherNaN := math.Float64frombits(math.Float64bits(math.NaN()) | 1)
	if mustHex(t, math.NaN()) != mustHex(t, otherNaN) {
		t.Fatalf("NaN payloads leak into the digest")
	}
	if mustHex(t, complex(negZero, 1)) != mustHex(t, complex(0, 1)) {
		t.Fatalf("complex signed zero hashes differently")
	}
}

func TestMapOrderInsensitive(t *testing.T) {
	m1 := map[string]float64{}
	m2 := map[string]float64{}
	keys := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for i, k := range keys {
		m1[k] = float64(i)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		m2[keys[i]] = float64(i)
	}
	if mustHex(t, m1) != mustHex(t, m2) {
		t.Fatalf("equal maps hash differently")
	}
	m2["alpha"] = 99
	if mustHex(t, m1) == mustHex(t, m2) {
		t.Fatalf("different maps hash the same")
	}
}

func TestSliceOrderMatters(t *testing.T) {
	if mustHex(t, []int{1, 2, 3}) == mustHex(t, []int{3, 2, 1}) {
		t.Fatalf("order of slice elements must matter")
	}
	var nilSlice []string
	if mustHex(t, nilSlice) != mustHex(t, []string{}) {
		t.Fatalf("nil and empty slices should hash the same")
	}
}

func TestArgumentBoundaries(t *testing.T) {
	if mustHex(t, "ab", "c") == mustHex(t, "a", "bc") {
		t.Fatalf("argument boundaries must be part of the digest")
	}
}

func TestPointersHashPointee(t *testing.T) {
	x, y := 5, 5
	if mustHex(t, &x) != mustHex(t, &y) {
		t.Fatalf("pointers to equal values should hash the same")
	}
	if mustHex(t, &x) != mustHex(t, 5) {
		t.Fatalf("pointer should hash like its pointee")
	}
}

type opaque struct{ note string }

func (opaque) HashTransparent() {}

func TestTransparentContributesSentinel(t *testing.T) {
	a := mustHex(t, 1, opaque{"x"})
	b := mustHex(t, 1, opaque{"y"})
	c := mustHex(t, 1, Sentinel{})
	if a != b || b != c {
		t.Fatalf("transparent values must hash to the sentinel: %s %s %s", a, b, c)
	}
}

type celsius struct{ deg float64 }

func (c celsius) HashInto(h *Hasher) error { return h.Hash(c.deg) }

func TestHashableDelegatesWithoutFraming(t *testing.T) {
	if mustHex(t, celsius{21.5}) != mustHex(t, 21.5) {
		t.Fatalf("Hashable should hash exactly what it feeds in")
	}
}

func TestProtoMessages(t *testing.T) {
	a := mustHex(t, wrapperspb.Double(3.1415))
	b := mustHex(t, wrapperspb.Double(3.1415))
	c := mustHex(t, wrapperspb.Double(2.7183))
	if a != b {
		t.Fatalf("equal proto messages hash differently")
	}
	if a == c {
		t.Fatalf("different proto messages hash the same")
	}
	if a == mustHex(t, wrapperspb.Float(3.1415)) {
		t.Fatalf("message type must be part of the digest")
	}
}

func TestUnhashable(t *testing.T) {
	if _, err := HashObjects(func() {}); !errors.Is(err, ErrUnhashable) {
		t.Fatalf("func: err = %v, want ErrUnhashable", err)
	}
	if _, err := HashObjects(make(chan int)); !errors.Is(err, ErrUnhashable) {
		t.Fatalf("chan: err = %v, want ErrUnhashable", err)
	}
}

type node struct {
	Val  int
	Next *node
}

func TestCycleFails(t *testing.T) {
	n := &node{Val: 1}
	n.Next = n
	if _, err := HashObjects(n); !errors.Is(err, ErrTooDeep) {
		t.Fatalf("cycle: err = %v, want ErrTooDeep", err)
	}
}

func TestResetAndIncremental(t *testing.T) {
	h := New()
	_ = h.Hash("a")
	first := h.Hex()
	_ = h.Hash("b")
	if h.Hex() == first {
		t.Fatalf("hashing more should change the digest")
	}
	if h.Hex() != mustHex(t, "a", "b") {
		t.Fatalf("incremental hashing should equal variadic hashing")
	}
	h.Reset()
	_ = h.Hash("a")
	if h.Hex() != first {
		t.Fatalf("Reset did not restore the initial state")
	}
}
