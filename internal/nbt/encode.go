package nbt

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes root as an unnamed compound root.
func Encode(root *Compound) ([]byte, error) {
	var e encoder
	e.buf = append(e.buf, byte(KindCompound))
	e.string("")
	if err := e.compound(root, 1); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// EncodeItemBytes is the inverse of DecodeItemBytes.
func EncodeItemBytes(root *Compound) (string, error) {
	raw, err := Encode(root)
	if err != nil {
		return "", err
	}

	var zb bytes.Buffer
	zw := gzip.NewWriter(&zb)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip: %w", err)
	}

	return base64.StdEncoding.EncodeToString(zb.Bytes()), nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) fail(err error) error {
	return fmt.Errorf("nbt encode at offset %d: %w", len(e.buf), err)
}

func (e *encoder) string(s string) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) payload(t Tag, depth int) error {
	switch v := t.(type) {
	case Byte:
		e.buf = append(e.buf, byte(v))
	case Short:
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(v))
	case Int:
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(v))
	case Long:
		e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(v))
	case Float:
		e.buf = binary.BigEndian.AppendUint32(e.buf, math.Float32bits(float32(v)))
	case Double:
		e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(float64(v)))
	case ByteArray:
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(v)))
		e.buf = append(e.buf, v...)
	case String:
		e.string(string(v))
	case *List:
		return e.list(v, depth)
	case *Compound:
		return e.compound(v, depth)
	case IntArray:
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(v)))
		for _, x := range v {
			e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(x))
		}
	case LongArray:
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(v)))
		for _, x := range v {
			e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(x))
		}
	default:
		return e.fail(fmt.Errorf("%w: %T", ErrUnknownKind, t))
	}
	return nil
}

func (e *encoder) list(l *List, depth int) error {
	if l == nil {
		l = &List{}
	}
	if depth > MaxDepth {
		return e.fail(ErrTooDeep)
	}
	if !l.Elem.Valid() || (l.Elem == KindEnd && len(l.Items) > 0) {
		return e.fail(fmt.Errorf("%w: elem %s with %d items", ErrListKind, l.Elem, len(l.Items)))
	}
	e.buf = append(e.buf, byte(l.Elem))
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(l.Items)))
	for i, item := range l.Items {
		if item == nil || item.Kind() != l.Elem {
			return e.fail(fmt.Errorf("%w: item %d in %s list", ErrListKind, i, l.Elem))
		}
		if err := e.payload(item, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) compound(c *Compound, depth int) error {
	if depth > MaxDepth {
		return e.fail(ErrTooDeep)
	}
	for _, f := range c.Fields() {
		if f.Value == nil {
			return e.fail(fmt.Errorf("%w: nil value for %q", ErrUnknownKind, f.Name))
		}
		e.buf = append(e.buf, byte(f.Value.Kind()))
		e.string(f.Name)
		if err := e.payload(f.Value, depth+1); err != nil {
			return err
		}
	}
	e.buf = append(e.buf, byte(KindEnd))
	return nil
}
