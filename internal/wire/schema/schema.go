// Package schema holds the in-memory representation of a loaded protocol
// description: endianness, header layout, named type definitions, the
// transform chain, and the packet table keyed by numeric type code.
package schema

import "encoding/binary"

// Endian selects the byte order applied to every multi-byte scalar the
// schema describes.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

// ByteOrder returns the encoding/binary.ByteOrder matching the schema's
// declared endianness.
func (e Endian) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// LengthKind distinguishes the three ways a field's length can be declared.
type LengthKind int

const (
	// LengthNone means the field carries no declared length (fixed-size
	// scalars, or an array whose count comes from count_field).
	LengthNone LengthKind = iota
	// LengthLiteral is a fixed byte count from the schema.
	LengthLiteral
	// LengthRemaining is the "remaining" sentinel: the decoder fills it in
	// from the bytes left in the message at decode time.
	LengthRemaining
)

// Length is a field's declared length as parsed from JSON: either absent,
// a positive integer, or the "remaining" sentinel.
type Length struct {
	Kind  LengthKind
	Value int
}

// HeaderField is one named, offset-addressed field of the frame header.
type HeaderField struct {
	Name   string
	Type   string
	Offset int
}

// Header describes the fixed-offset framing fields every message begins
// with: which declares the message size, which declares the message type,
// and the header's total byte length.
type Header struct {
	SizeField string
	TypeField string
	Fields    []HeaderField
	Length    int
}

// Field returns the header field declaration with the given name, or nil.
func (h *Header) Field(name string) *HeaderField {
	for i := range h.Fields {
		if h.Fields[i].Name == name {
			return &h.Fields[i]
		}
	}
	return nil
}

// FieldDef is one element of a packet's or struct's ordered field list.
type FieldDef struct {
	Name       string
	Type       string // scalar name, "string", "bytes", "array", or a user-type name
	Length     Length
	CountField string
	Element    string
}

// TypeKind distinguishes the two shapes a named user type can take.
type TypeKind int

const (
	KindStruct TypeKind = iota
	KindEnum
)

// TypeDef is a named, schema-declared struct or enum.
type TypeDef struct {
	Name   string
	Kind   TypeKind
	Fields []FieldDef      // struct
	Base   string          // enum: underlying scalar type
	Values map[string]int  // enum: symbol -> numeric value
	Names  map[int]string  // enum: numeric value -> symbol, built from Values
}

// SymbolFor returns the enum symbol for a decoded numeric value, or "" if
// the type isn't an enum or the value is unknown.
func (t *TypeDef) SymbolFor(v int64) (string, bool) {
	if t == nil || t.Kind != KindEnum {
		return "", false
	}
	name, ok := t.Names[int(v)]
	return name, ok
}

// PacketDef is one entry of the schema's packet table: the numeric wire
// type code, its human name, and its ordered field list.
type PacketDef struct {
	Code   int
	Name   string
	Fields []FieldDef
}

// TransformDef is one declared stage of the transform pipeline: a kind
// string naming a registered transform, and its options bag.
type TransformDef struct {
	Kind    string
	Options map[string]any
}

// Schema is the fully resolved, immutable protocol description. Callers
// never mutate a *Schema after Load returns it.
type Schema struct {
	Endian     Endian
	Pack       int
	Header     Header
	Types      map[string]*TypeDef
	Packets    map[int]*PacketDef
	Transforms []TransformDef
}

// PacketByCode looks up a packet definition by its numeric wire type code.
func (s *Schema) PacketByCode(code int) (*PacketDef, bool) {
	p, ok := s.Packets[code]
	return p, ok
}

// PacketByName looks up a packet definition by its declared name. Used by
// the encoder, which is handed a name rather than a type code.
func (s *Schema) PacketByName(name string) (*PacketDef, bool) {
	for _, p := range s.Packets {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Type resolves a user-type name to its definition, or reports false if the
// name is not a declared struct or enum.
func (s *Schema) Type(name string) (*TypeDef, bool) {
	t, ok := s.Types[name]
	return t, ok
}

// ScalarSize returns the byte width of a built-in scalar type name, or 0 if
// name does not name a fixed-width scalar (string/bytes/array/user-type all
// return 0; their size is data-dependent).
func ScalarSize(name string) int {
	switch name {
	case "int8", "uint8", "bool":
		return 1
	case "int16", "uint16":
		return 2
	case "int32", "uint32", "float":
		return 4
	case "int64", "uint64", "double":
		return 8
	default:
		return 0
	}
}

// IsIntegerScalar reports whether name is one of the fixed-width integer
// scalar types (used to validate the header's size field, §3).
func IsIntegerScalar(name string) bool {
	switch name {
	case "int8", "uint8", "int16", "uint16", "int32", "uint32", "int64", "uint64":
		return true
	default:
		return false
	}
}
