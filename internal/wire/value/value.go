// Package value defines the tagged variant shared by decoded field maps and
// the transform pipeline's per-connection context (§9: "Dynamic field
// values" / "Transform context values" — both reuse one variant type).
package value

// Kind tags which alternative a Value currently holds.
type Kind int

const (
	KindNil Kind = iota
	KindI64
	KindU64
	KindF64
	KindBool
	KindString
	KindBytes
	KindList
	KindMap
)

// Value is a heterogeneously-typed value: an integer of any signedness and
// width, a float, a bool, a string, a raw byte slice, an ordered list of
// nested values, or a named map of nested values (struct fields).
type Value struct {
	Kind   Kind
	I64    int64
	U64    uint64
	F64    float64
	Bool   bool
	Str    string
	Bytes  []byte
	List   []Value
	Map    *Map
}

// Map is an ordered string-keyed collection of Values, preserving the
// schema's declared field order (plain Go maps don't).
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set assigns key to v, appending key to the iteration order on first use.
func (m *Map) Set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in declaration/insertion order.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.keys)
}

func I64(v int64) Value     { return Value{Kind: KindI64, I64: v} }
func U64(v uint64) Value    { return Value{Kind: KindU64, U64: v} }
func F64(v float64) Value   { return Value{Kind: KindF64, F64: v} }
func Bool(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func String(v string) Value { return Value{Kind: KindString, Str: v} }
func Bytes(v []byte) Value  { return Value{Kind: KindBytes, Bytes: v} }
func List(v []Value) Value  { return Value{Kind: KindList, List: v} }
func MapVal(v *Map) Value   { return Value{Kind: KindMap, Map: v} }

// AsInt64 coerces any numeric/bool kind to an int64, for code that needs a
// plain count or index (e.g. resolving an array's count_field). Returns
// false for non-numeric kinds.
func (v Value) AsInt64() (int64, bool) {
	switch v.Kind {
	case KindI64:
		return v.I64, true
	case KindU64:
		return int64(v.U64), true
	case KindF64:
		return int64(v.F64), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
