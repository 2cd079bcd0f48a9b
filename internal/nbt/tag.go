package nbt

import "fmt"

// Kind identifies a tag variant. Values match the wire type byte.
type Kind uint8

const (
	KindEnd Kind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindByteArray
	KindString
	KindList
	KindCompound
	KindIntArray
	KindLongArray
)

var kindNames = [...]string{
	"End", "Byte", "Short", "Int", "Long", "Float", "Double",
	"ByteArray", "String", "List", "Compound", "IntArray", "LongArray",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k <= KindLongArray
}

// Tag is a decoded value.
type Tag interface {
	Kind() Kind
}

type (
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []byte
	String    string
	IntArray  []int32
	LongArray []int64
)

func (Byte) Kind() Kind      { return KindByte }
func (Short) Kind() Kind     { return KindShort }
func (Int) Kind() Kind       { return KindInt }
func (Long) Kind() Kind      { return KindLong }
func (Float) Kind() Kind     { return KindFloat }
func (Double) Kind() Kind    { return KindDouble }
func (ByteArray) Kind() Kind { return KindByteArray }
func (String) Kind() Kind    { return KindString }
func (IntArray) Kind() Kind  { return KindIntArray }
func (LongArray) Kind() Kind { return KindLongArray }

// List is a homogeneous sequence of unnamed tags.
type List struct {
	Elem  Kind
	Items []Tag
}

func (*List) Kind() Kind { return KindList }

// Len returns the number of items.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// Field is a named member of a Compound.
type Field struct {
	Name  string
	Value Tag
}

// Compound is an ordered set of uniquely named tags.
type Compound struct {
	fields []Field
	index  map[string]int
}

func (*Compound) Kind() Kind { return KindCompound }

// NewCompound builds a compound from fields. Later duplicates replace
// earlier ones in place.
func NewCompound(fields ...Field) *Compound {
	c := &Compound{}
	for _, f := range fields {
		c.Set(f.Name, f.Value)
	}
	return c
}

// Set stores v under name, keeping the original position if name exists.
func (c *Compound) Set(name string, v Tag) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[name]; ok {
		c.fields[i].Value = v
		return
	}
	c.index[name] = len(c.fields)
	c.fields = append(c.fields, Field{Name: name, Value: v})
}

// Get returns the tag stored under name.
func (c *Compound) Get(name string) (Tag, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.fields[i].Value, true
}

// Has reports whether name is present.
func (c *Compound) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Fields returns the members in insertion order.
func (c *Compound) Fields() []Field {
	if c == nil {
		return nil
	}
	return c.fields
}

// Len returns the number of members.
func (c *Compound) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fields)
}

// GetCompound returns the named member if it is a compound.
func (c *Compound) GetCompound(name string) (*Compound, bool) {
	t, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	v, ok := t.(*Compound)
	return v, ok
}

// GetList returns the named member if it is a list.
func (c *Compound) GetList(name string) (*List, bool) {
	t, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	v, ok := t.(*List)
	return v, ok
}

// GetString returns the named member if it is a string.
func (c *Compound) GetString(name string) (string, bool) {
	t, ok := c.Get(name)
	if !ok {
		return "", false
	}
	v, ok := t.(String)
	return string(v), ok
}

// GetInt returns the named member widened to int64 if it is any integer kind.
func (c *Compound) GetInt(name string) (int64, bool) {
	t, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	return AsInt(t)
}

// AsInt widens any integer tag to int64.
func AsInt(t Tag) (int64, bool) {
	switch v := t.(type) {
	case Byte:
		return int64(v), true
	case Short:
		return int64(v), true
	case Int:
		return int64(v), true
	case Long:
		return int64(v), true
	}
	return 0, false
}
