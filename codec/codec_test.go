package codec

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestCBORDeterministicMaps(t *testing.T) {
	c := MustCBOR[map[string]float64](true)
	m := map[string]float64{}
	for i, k := range []string{"h", "he", "li", "be", "b", "c", "n", "o"} {
		m[k] = float64(i) + 0.5
	}
	first, err := c.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := c.Encode(m)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic CBOR produced different bytes")
		}
	}
	back, err := c.Decode(first)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(back) != len(m) || back["li"] != 2.5 {
		t.Fatalf("decoded map = %v", back)
	}
}

func TestLimitRejectsLargePayloads(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("12345")); err == nil {
		t.Fatalf("expected size error")
	}
	got, err := c.Decode([]byte("1234"))
	if err != nil || got != "1234" {
		t.Fatalf("Decode at limit: %q %v", got, err)
	}

	off := Limit[string]{Inner: String{}}
	if _, err := off.Decode(bytes.Repeat([]byte("x"), 1<<16)); err != nil {
		t.Fatalf("MaxDecode=0 should disable the limit: %v", err)
	}
}

func TestProtobufDecodesIntoFreshMessage(t *testing.T) {
	c := NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })
	in, err := structpb.NewStruct(map[string]any{"basis": "sto-3g", "charge": 0.0})
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !proto.Equal(in, out) || out == in {
		t.Fatalf("decoded message mismatch: %v", out)
	}
}

func TestMsgpackStructTags(t *testing.T) {
	type geometry struct {
		Symbols []string  `msgpack:"s"`
		Coords  []float64 `msgpack:"c"`
	}
	c := Msgpack[geometry]{}
	in := geometry{Symbols: []string{"H", "H"}, Coords: []float64{0, 0, 0, 0, 0, 0.74}}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.Symbols) != 2 || out.Coords[5] != 0.74 {
		t.Fatalf("decoded = %+v", out)
	}
}
