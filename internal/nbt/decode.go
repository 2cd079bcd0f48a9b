package nbt

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MaxDepth bounds compound and list nesting.
const MaxDepth = 512

// DecodeItemBytes decodes a base64, gzip-compressed tag tree.
func DecodeItemBytes(s string) (*Compound, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: base64: %v", ErrEncoding, err)}
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: gzip: %v", ErrEncoding, err)}
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: gzip: %v", ErrEncoding, err)}
	}

	return Decode(data)
}

// Decode parses an uncompressed tag tree with a named compound root.
// The root name is discarded. Bytes after the root are ignored.
func Decode(data []byte) (*Compound, error) {
	d := &decoder{buf: data}

	kind, err := d.kind()
	if err != nil {
		return nil, err
	}
	if kind != KindCompound {
		return nil, d.fail(0, fmt.Errorf("%w: got %s", ErrRootKind, kind))
	}
	if _, err := d.string(); err != nil {
		return nil, err
	}

	return d.compound(1)
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) fail(at int, err error) error {
	return &DecodeError{Offset: at, Err: err}
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || n > len(d.buf)-d.off {
		return nil, d.fail(d.off, ErrTruncated)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) kind() (Kind, error) {
	at := d.off
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	k := Kind(b[0])
	if !k.Valid() {
		return 0, d.fail(at, fmt.Errorf("%w: %d", ErrUnknownKind, b[0]))
	}
	return k, nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) string() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// count reads an i32 length and checks that count elements of size width
// can still fit in the remaining input.
func (d *decoder) count(width int) (int, error) {
	at := d.off
	u, err := d.u32()
	if err != nil {
		return 0, err
	}
	n := int32(u)
	if n < 0 {
		return 0, d.fail(at, fmt.Errorf("%w: %d", ErrNegativeLength, n))
	}
	if width > 0 && int64(n)*int64(width) > int64(len(d.buf)-d.off) {
		return 0, d.fail(d.off, ErrTruncated)
	}
	return int(n), nil
}

func (d *decoder) payload(k Kind, depth int) (Tag, error) {
	switch k {
	case KindByte:
		b, err := d.take(1)
		if err != nil {
			return nil, err
		}
		return Byte(int8(b[0])), nil
	case KindShort:
		v, err := d.u16()
		return Short(int16(v)), err
	case KindInt:
		v, err := d.u32()
		return Int(int32(v)), err
	case KindLong:
		v, err := d.u64()
		return Long(int64(v)), err
	case KindFloat:
		v, err := d.u32()
		return Float(math.Float32frombits(v)), err
	case KindDouble:
		v, err := d.u64()
		return Double(math.Float64frombits(v)), err
	case KindByteArray:
		n, err := d.count(1)
		if err != nil {
			return nil, err
		}
		b, err := d.take(n)
		if err != nil {
			return nil, err
		}
		return ByteArray(bytes.Clone(b)), nil
	case KindString:
		s, err := d.string()
		return String(s), err
	case KindList:
		return d.list(depth)
	case KindCompound:
		return d.compound(depth)
	case KindIntArray:
		n, err := d.count(4)
		if err != nil {
			return nil, err
		}
		out := make(IntArray, n)
		for i := range out {
			v, _ := d.u32()
			out[i] = int32(v)
		}
		return out, nil
	case KindLongArray:
		n, err := d.count(8)
		if err != nil {
			return nil, err
		}
		out := make(LongArray, n)
		for i := range out {
			v, _ := d.u64()
			out[i] = int64(v)
		}
		return out, nil
	}
	return nil, d.fail(d.off, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k)))
}

func (d *decoder) list(depth int) (*List, error) {
	if depth > MaxDepth {
		return nil, d.fail(d.off, ErrTooDeep)
	}
	elem, err := d.kind()
	if err != nil {
		return nil, err
	}
	at := d.off
	n, err := d.count(minWidth(elem))
	if err != nil {
		return nil, err
	}
	if elem == KindEnd && n > 0 {
		return nil, d.fail(at, fmt.Errorf("%w: %d End elements", ErrListKind, n))
	}

	l := &List{Elem: elem}
	if n > 0 {
		l.Items = make([]Tag, 0, n)
	}
	for range n {
		v, err := d.payload(elem, depth+1)
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, v)
	}
	return l, nil
}

func (d *decoder) compound(depth int) (*Compound, error) {
	if depth > MaxDepth {
		return nil, d.fail(d.off, ErrTooDeep)
	}
	c := &Compound{}
	for {
		k, err := d.kind()
		if err != nil {
			return nil, err
		}
		if k == KindEnd {
			return c, nil
		}
		name, err := d.string()
		if err != nil {
			return nil, err
		}
		v, err := d.payload(k, depth+1)
		if err != nil {
			return nil, err
		}
		c.Set(name, v)
	}
}

// minWidth is the smallest encoded size of one element of kind k.
func minWidth(k Kind) int {
	switch k {
	case KindByte:
		return 1
	case KindShort, KindString:
		return 2
	case KindInt, KindFloat, KindByteArray, KindIntArray, KindLongArray:
		return 4
	case KindLong, KindDouble:
		return 8
	case KindList:
		return 5
	case KindCompound:
		return 1
	}
	return 0
}
