package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads a JSON schema document from path and returns an immutable,
// validated Schema. A missing or malformed document is a schema-load-failure
// (§7): fatal at the caller's startup path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses and validates a JSON schema document already in memory.
func LoadBytes(data []byte) (*Schema, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: invalid JSON: %w", err)
	}
	if doc.Protocol == nil {
		return nil, fmt.Errorf("schema: missing required \"protocol\" section")
	}

	s := &Schema{
		Types:   make(map[string]*TypeDef),
		Packets: make(map[int]*PacketDef),
	}

	if err := s.loadProtocol(doc.Protocol); err != nil {
		return nil, err
	}
	if err := s.loadTypes(doc.Types); err != nil {
		return nil, err
	}
	if err := s.loadPackets(doc.Packets); err != nil {
		return nil, err
	}
	s.loadTransforms(doc.Transforms)

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return s, nil
}

// ─── raw JSON shapes ───

type rawDocument struct {
	Protocol   *rawProtocol     `json:"protocol"`
	Transforms []rawTransform   `json:"transforms"`
	Types      map[string]rawType `json:"types"`
	Packets    []rawPacket      `json:"packets"`
}

type rawProtocol struct {
	Endian string     `json:"endian"`
	Pack   int        `json:"pack"`
	Header *rawHeader `json:"header"`
}

type rawHeader struct {
	SizeField string           `json:"size_field"`
	TypeField string           `json:"type_field"`
	Fields    []rawHeaderField `json:"fields"`
	Length    int              `json:"length"`
}

type rawHeaderField struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset int    `json:"offset"`
}

type rawType struct {
	Kind   string           `json:"kind"` // "struct" | "enum"
	Fields []rawField       `json:"fields"`
	Base   string           `json:"base"`
	Values map[string]int   `json:"values"`
}

type rawField struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Length     rawLength   `json:"length"`
	CountField string      `json:"count_field"`
	Element    string      `json:"element"`
}

type rawPacket struct {
	Type   int        `json:"type"`
	Name   string     `json:"name"`
	Fields []rawField `json:"fields"`
}

type rawTransform struct {
	Kind    string         `json:"kind"`
	Options map[string]any `json:"options"`
}

// rawLength accepts either a JSON integer or the literal string "remaining",
// or may be entirely absent (the zero value decodes to LengthNone).
type rawLength struct {
	set bool
	Length
}

func (l *rawLength) UnmarshalJSON(data []byte) error {
	l.set = true
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString != "remaining" {
			return fmt.Errorf("length: unknown string literal %q", asString)
		}
		l.Kind = LengthRemaining
		return nil
	}
	var asInt int
	if err := json.Unmarshal(data, &asInt); err != nil {
		return fmt.Errorf("length: must be an integer or \"remaining\": %w", err)
	}
	l.Kind = LengthLiteral
	l.Value = asInt
	return nil
}

// ─── loading ───

func (s *Schema) loadProtocol(p *rawProtocol) error {
	switch p.Endian {
	case "", "little":
		s.Endian = LittleEndian
	case "big":
		s.Endian = BigEndian
	default:
		return fmt.Errorf("schema: unknown endian %q", p.Endian)
	}

	s.Pack = p.Pack
	if s.Pack == 0 {
		s.Pack = 1
	}

	h := Header{SizeField: "size", TypeField: "type"}
	if p.Header != nil {
		if p.Header.SizeField != "" {
			h.SizeField = p.Header.SizeField
		}
		if p.Header.TypeField != "" {
			h.TypeField = p.Header.TypeField
		}
		for _, f := range p.Header.Fields {
			h.Fields = append(h.Fields, HeaderField{Name: f.Name, Type: f.Type, Offset: f.Offset})
		}
	}
	if len(h.Fields) == 0 {
		h.Fields = []HeaderField{
			{Name: h.SizeField, Type: "uint32", Offset: 0},
			{Name: h.TypeField, Type: "uint32", Offset: 4},
		}
	}

	maxEnd := 0
	for _, f := range h.Fields {
		size := ScalarSize(f.Type)
		if size == 0 {
			return fmt.Errorf("schema: header field %q has non-scalar type %q", f.Name, f.Type)
		}
		if end := f.Offset + size; end > maxEnd {
			maxEnd = end
		}
	}
	if p.Header != nil && p.Header.Length > 0 {
		h.Length = p.Header.Length
	} else {
		h.Length = maxEnd
	}

	s.Header = h
	return nil
}

func (s *Schema) loadTypes(raw map[string]rawType) error {
	for name, rt := range raw {
		t := &TypeDef{Name: name}
		switch rt.Kind {
		case "struct":
			t.Kind = KindStruct
			for _, f := range rt.Fields {
				t.Fields = append(t.Fields, convertField(f))
			}
		case "enum":
			t.Kind = KindEnum
			t.Base = rt.Base
			if t.Base == "" {
				t.Base = "int32"
			}
			t.Values = rt.Values
			t.Names = make(map[int]string, len(rt.Values))
			for sym, val := range rt.Values {
				t.Names[val] = sym
			}
		default:
			return fmt.Errorf("schema: type %q has unknown kind %q", name, rt.Kind)
		}
		s.Types[name] = t
	}
	return nil
}

func (s *Schema) loadPackets(raw []rawPacket) error {
	for _, rp := range raw {
		pd := &PacketDef{Code: rp.Type, Name: rp.Name}
		for _, f := range rp.Fields {
			pd.Fields = append(pd.Fields, convertField(f))
		}
		s.Packets[pd.Code] = pd
	}
	return nil
}

func (s *Schema) loadTransforms(raw []rawTransform) {
	for _, rt := range raw {
		s.Transforms = append(s.Transforms, TransformDef{Kind: rt.Kind, Options: rt.Options})
	}
}

func convertField(f rawField) FieldDef {
	fd := FieldDef{
		Name:       f.Name,
		Type:       f.Type,
		CountField: f.CountField,
		Element:    f.Element,
	}
	if f.Length.set {
		fd.Length = f.Length.Length
	}
	return fd
}

// validate enforces the §3 invariants: count_field must precede its user,
// user-type names must resolve, and the size field must be a short integer
// scalar.
func (s *Schema) validate() error {
	sizeField := s.Header.Field(s.Header.SizeField)
	if sizeField == nil {
		return fmt.Errorf("header has no field named %q (the declared size_field)", s.Header.SizeField)
	}
	if !IsIntegerScalar(sizeField.Type) || ScalarSize(sizeField.Type) > 4 {
		return fmt.Errorf("size field %q must be an integer scalar of 32 bits or fewer, got %q", sizeField.Name, sizeField.Type)
	}

	for _, t := range s.Types {
		if t.Kind == KindStruct {
			if err := s.validateFields(t.Fields, t.Name); err != nil {
				return err
			}
		}
	}
	for _, p := range s.Packets {
		if err := s.validateFields(p.Fields, p.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) validateFields(fields []FieldDef, owner string) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Type == "array" {
			if f.CountField != "" && !seen[f.CountField] {
				return fmt.Errorf("%s: array field %q references count_field %q before it is declared", owner, f.Name, f.CountField)
			}
			if f.Element != "" && !isBuiltin(f.Element) {
				if _, ok := s.Types[f.Element]; !ok {
					return fmt.Errorf("%s: array field %q has unresolved element type %q", owner, f.Name, f.Element)
				}
			}
		} else if !isBuiltin(f.Type) {
			if _, ok := s.Types[f.Type]; !ok {
				return fmt.Errorf("%s: field %q has unresolved type %q", owner, f.Name, f.Type)
			}
		}
		seen[f.Name] = true
	}
	return nil
}

func isBuiltin(t string) bool {
	switch t {
	case "int8", "uint8", "bool", "int16", "uint16", "int32", "uint32", "float",
		"int64", "uint64", "double", "string", "bytes", "array":
		return true
	default:
		return false
	}
}

// GetLength resolves a field's declared length against the bytes remaining
// in the message being decoded at this field's offset. Absent/zero/overflow
// all mean "take the rest of the message" (§4.2, §4.3's string/bytes rows).
func GetLength(f *FieldDef, remaining int) int {
	switch f.Length.Kind {
	case LengthLiteral:
		if f.Length.Value <= 0 || f.Length.Value > remaining {
			return remaining
		}
		return f.Length.Value
	case LengthRemaining:
		return remaining
	default:
		return remaining
	}
}
