package nbt

// ToValue converts t to plain Go values for inspection: compounds become
// map[string]any, lists []any, and numbers their natural Go types. Byte
// arrays become []int so they print as numbers rather than base64.
func ToValue(t Tag) any {
	switch v := t.(type) {
	case *Compound:
		m := make(map[string]any, v.Len())
		for _, f := range v.Fields() {
			m[f.Name] = ToValue(f.Value)
		}
		return m
	case *List:
		out := make([]any, v.Len())
		for i, it := range v.Items {
			out[i] = ToValue(it)
		}
		return out
	case Byte:
		return int8(v)
	case Short:
		return int16(v)
	case Int:
		return int32(v)
	case Long:
		return int64(v)
	case Float:
		return float32(v)
	case Double:
		return float64(v)
	case String:
		return string(v)
	case ByteArray:
		out := make([]int, len(v))
		for i, b := range v {
			out[i] = int(int8(b))
		}
		return out
	case IntArray:
		return []int32(v)
	case LongArray:
		return []int64(v)
	}
	return nil
}
