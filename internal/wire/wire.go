package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	version    byte = 1
	kindSingle byte = 1
	kindFields byte = 2
)

var (
	ErrCorrupt = errors.New("pluginplay: corrupt entry")
	// ErrTooLarge is returned for payloads whose length does not fit the
	// 32-bit length field.
	ErrTooLarge = errors.New("pluginplay: entry too large")
	magic4     = [...]byte{'P', 'P', 'L', 'Y'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

func lenU32(n int) (uint32, error) {
	if uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("%w (%d bytes)", ErrTooLarge, n)
	}
	return uint32(n), nil
}

// Single: magic(4) | ver(1) | kind(1=single) | gen(u64 be) | vlen(u32 be) | payload(vlen)
func EncodeSingle(gen uint64, payload []byte) ([]byte, error) {
	vlen, err := lenU32(len(payload))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindSingle)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], vlen)
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes(), nil
}

// DecodeSingle returns a payload that aliases b. Trailing bytes are corruption.
func DecodeSingle(b []byte) (gen uint64, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindSingle {
		return 0, nil, ErrCorrupt
	}

	off := 6

	gen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return 0, nil, ErrCorrupt
	}

	return gen, b[off : off+vlen], nil
}

// Fields frames a named set of payloads, used for result sets:
//
//	magic(4) | ver(1) | kind(2=fields) | n(u32 be)
//	nameLen(u16 be) | name(nameLen) | vlen(u32 be) | payload(vlen) * n
//
// Names may be empty. Order is preserved; callers sort if they need
// canonical bytes.
type Field struct {
	Name    string
	Payload []byte
}

func EncodeFields(fields []Field) ([]byte, error) {
	total := 4 + 1 + 1 + 4
	for _, f := range fields {
		if len(f.Name) > 0xFFFF {
			return nil, fmt.Errorf("wire: field name too long (%d bytes)", len(f.Name))
		}
		if _, err := lenU32(len(f.Payload)); err != nil {
			return nil, fmt.Errorf("wire: field %q: %w", f.Name, err)
		}
		total += 2 + len(f.Name) + 4 + len(f.Payload)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindFields)

	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(fields)))
	buf.Write(u4[:])

	for _, f := range fields {
		binary.BigEndian.PutUint16(u2[:], uint16(len(f.Name)))
		buf.Write(u2[:])
		buf.WriteString(f.Name)

		binary.BigEndian.PutUint32(u4[:], uint32(len(f.Payload)))
		buf.Write(u4[:])
		buf.Write(f.Payload)
	}

	return buf.Bytes(), nil
}

func DecodeFields(b []byte) ([]Field, error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindFields {
		return nil, ErrCorrupt
	}

	off := 6

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// every field takes at least 6 bytes; reject counts the buffer cannot hold
	// before allocating
	if n < 0 || n > (len(b)-off)/6 {
		return nil, ErrCorrupt
	}

	fields := make([]Field, 0, n)
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		nlen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if nlen > len(b)-off {
			return nil, ErrCorrupt
		}
		name := b[off : off+nlen]
		off += nlen

		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen < 0 || vlen > len(b)-off {
			return nil, ErrCorrupt
		}

		fields = append(fields, Field{
			Name:    string(name),
			Payload: b[off : off+vlen],
		})
		off += vlen
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}

	return fields, nil
}
