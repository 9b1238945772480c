package decoder

import (
	"math"

	"otus.dev/agent/internal/wire/schema"
	"otus.dev/agent/internal/wire/value"
)

// decodeFields parses fields in declaration order out of m starting at
// offset start, returning an ordered field map and the total number of
// bytes consumed. It never panics: truncated fields and unknown user types
// degrade to an empty value and zero consumed size, and an array whose
// count exceeds the bytes left stops early with the elements read (§4.3).
func decodeFields(defs []schema.FieldDef, m []byte, start int, s *schema.Schema) (*value.Map, int) {
	out := value.NewMap()
	offset := start
	for _, f := range defs {
		v, n := decodeField(f, m, offset, out, s)
		out.Set(f.Name, v)
		offset += n
	}
	return out, offset - start
}

// decodeField decodes one field at offset, returning its value and the
// number of bytes consumed. fieldsSoFar lets array fields resolve their
// count_field sibling.
func decodeField(f schema.FieldDef, m []byte, offset int, fieldsSoFar *value.Map, s *schema.Schema) (value.Value, int) {
	if offset > len(m) {
		return value.Value{}, 0
	}

	switch f.Type {
	case "int8", "uint8", "bool":
		if offset+1 > len(m) {
			return value.Value{}, 0
		}
		b := m[offset]
		if f.Type == "bool" {
			return value.Bool(b != 0), 1
		}
		if f.Type == "int8" {
			return value.I64(int64(int8(b))), 1
		}
		return value.U64(uint64(b)), 1

	case "int16", "uint16":
		if offset+2 > len(m) {
			return value.Value{}, 0
		}
		u := s.Endian.ByteOrder().Uint16(m[offset : offset+2])
		if f.Type == "int16" {
			return value.I64(int64(int16(u))), 2
		}
		return value.U64(uint64(u)), 2

	case "int32", "uint32", "float":
		if offset+4 > len(m) {
			return value.Value{}, 0
		}
		u := s.Endian.ByteOrder().Uint32(m[offset : offset+4])
		switch f.Type {
		case "int32":
			return value.I64(int64(int32(u))), 4
		case "float":
			return value.F64(float64(math.Float32frombits(u))), 4
		default:
			return value.U64(uint64(u)), 4
		}

	case "int64", "uint64", "double":
		if offset+8 > len(m) {
			return value.Value{}, 0
		}
		u := s.Endian.ByteOrder().Uint64(m[offset : offset+8])
		switch f.Type {
		case "int64":
			return value.I64(int64(u)), 8
		case "double":
			return value.F64(math.Float64frombits(u)), 8
		default:
			return value.U64(u), 8
		}

	case "string":
		n := schema.GetLength(&f, len(m)-offset)
		if n <= 0 || offset+n > len(m) {
			return value.String(""), max(0, min(n, len(m)-offset))
		}
		window := m[offset : offset+n]
		if nul := indexByte(window, 0); nul >= 0 {
			window = window[:nul]
		}
		return value.String(string(window)), n

	case "bytes":
		n := schema.GetLength(&f, len(m)-offset)
		if n <= 0 || offset+n > len(m) {
			n = max(0, min(n, len(m)-offset))
			if n == 0 {
				return value.Bytes(nil), 0
			}
		}
		b := make([]byte, n)
		copy(b, m[offset:offset+n])
		return value.Bytes(b), n

	case "array":
		return decodeArray(f, m, offset, fieldsSoFar, s)

	default:
		return decodeUserType(f, m, offset, s)
	}
}

func decodeArray(f schema.FieldDef, m []byte, offset int, fieldsSoFar *value.Map, s *schema.Schema) (value.Value, int) {
	count := 0
	if cv, ok := fieldsSoFar.Get(f.CountField); ok {
		if n, ok := cv.AsInt64(); ok {
			count = int(n)
		}
	}
	if count < 0 {
		count = 0
	}

	elemDef := schema.FieldDef{Name: "elem", Type: f.Element}
	elems := make([]value.Value, 0, count)
	consumed := 0
	for i := 0; i < count; i++ {
		if offset+consumed >= len(m) {
			break
		}
		v, n := decodeField(elemDef, m, offset+consumed, value.NewMap(), s)
		if n == 0 {
			break
		}
		elems = append(elems, v)
		consumed += n
	}
	return value.List(elems), consumed
}

func decodeUserType(f schema.FieldDef, m []byte, offset int, s *schema.Schema) (value.Value, int) {
	t, ok := s.Types[f.Type]
	if !ok {
		return value.Value{}, 0
	}

	if t.Kind == schema.KindEnum {
		scalar := schema.FieldDef{Name: f.Name, Type: t.Base}
		return decodeField(scalar, m, offset, value.NewMap(), s)
	}

	fields, consumed := decodeFields(t.Fields, m, offset, s)
	return value.MapVal(fields), consumed
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// readScalar reads the header's size/type field, trusting the schema that
// it fits the peeked header window.
func readScalar(b []byte, offset int, typ string, e schema.Endian) int64 {
	return readScalarTolerant(b, offset, typ, e)
}

// readScalarTolerant reads an integer scalar at offset, returning 0 if the
// slice is too short rather than panicking.
func readScalarTolerant(b []byte, offset int, typ string, e schema.Endian) int64 {
	size := schema.ScalarSize(typ)
	if size == 0 || offset < 0 || offset+size > len(b) {
		return 0
	}
	switch size {
	case 1:
		return int64(b[offset])
	case 2:
		return int64(e.ByteOrder().Uint16(b[offset : offset+2]))
	case 4:
		return int64(e.ByteOrder().Uint32(b[offset : offset+4]))
	case 8:
		return int64(e.ByteOrder().Uint64(b[offset : offset+8]))
	default:
		return 0
	}
}
