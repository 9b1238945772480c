// Package encoder implements the symmetric counterpart to the decoder
// (§4.5): given a packet name and a field map, produce the exact byte
// sequence the decoder would have consumed, including size back-patching.
// It never re-applies transforms — the replayer resends the plaintext
// bytes the decoder originally recovered (§4.5 point 4, §9).
package encoder

import (
	"fmt"
	"math"

	"otus.dev/agent/internal/wire/schema"
	"otus.dev/agent/internal/wire/value"
)

// Encode renders fields as the named packet's wire bytes, with the size
// field back-patched to the total encoded length.
func Encode(s *schema.Schema, packetName string, fields *value.Map) ([]byte, error) {
	packet, ok := s.PacketByName(packetName)
	if !ok {
		return nil, fmt.Errorf("encoder: unknown packet %q", packetName)
	}

	var buf []byte
	for _, f := range packet.Fields {
		v, _ := fields.Get(f.Name)
		buf = encodeField(buf, f, v, s)
	}

	sizeField := s.Header.Field(s.Header.SizeField)
	if sizeField != nil {
		writeScalarAt(buf, sizeField.Offset, sizeField.Type, int64(len(buf)), s.Endian)
	}
	return buf, nil
}

func encodeField(buf []byte, f schema.FieldDef, v value.Value, s *schema.Schema) []byte {
	switch f.Type {
	case "int8", "uint8", "bool":
		var b byte
		if f.Type == "bool" {
			if v.Kind == value.KindBool && v.Bool {
				b = 1
			} else if n, ok := v.AsInt64(); ok && n != 0 {
				b = 1
			}
		} else {
			n, _ := v.AsInt64()
			b = byte(n)
		}
		return append(buf, b)

	case "int16", "uint16":
		n, _ := v.AsInt64()
		tmp := make([]byte, 2)
		s.Endian.ByteOrder().PutUint16(tmp, uint16(n))
		return append(buf, tmp...)

	case "int32", "uint32":
		n, _ := v.AsInt64()
		tmp := make([]byte, 4)
		s.Endian.ByteOrder().PutUint32(tmp, uint32(n))
		return append(buf, tmp...)

	case "float":
		f32 := float32(asFloat(v))
		tmp := make([]byte, 4)
		s.Endian.ByteOrder().PutUint32(tmp, math.Float32bits(f32))
		return append(buf, tmp...)

	case "int64", "uint64":
		n, _ := v.AsInt64()
		tmp := make([]byte, 8)
		s.Endian.ByteOrder().PutUint64(tmp, uint64(n))
		return append(buf, tmp...)

	case "double":
		tmp := make([]byte, 8)
		s.Endian.ByteOrder().PutUint64(tmp, math.Float64bits(asFloat(v)))
		return append(buf, tmp...)

	case "string":
		return encodeString(buf, f, v)

	case "bytes":
		return encodeBytes(buf, f, v)

	case "array":
		return encodeArray(buf, f, v, s)

	default:
		return encodeUserType(buf, f, v, s)
	}
}

func asFloat(v value.Value) float64 {
	switch v.Kind {
	case value.KindF64:
		return v.F64
	default:
		n, _ := v.AsInt64()
		return float64(n)
	}
}

func encodeString(buf []byte, f schema.FieldDef, v value.Value) []byte {
	n := f.Length.Value
	if f.Length.Kind != schema.LengthLiteral || n <= 0 {
		// no fixed length declared: write the string as-is with no padding.
		return append(buf, []byte(v.Str)...)
	}
	raw := []byte(v.Str)
	if len(raw) > n-1 {
		raw = raw[:n-1]
	}
	out := make([]byte, n)
	copy(out, raw)
	return append(buf, out...)
}

func encodeBytes(buf []byte, f schema.FieldDef, v value.Value) []byte {
	n := f.Length.Value
	if f.Length.Kind != schema.LengthLiteral || n <= 0 {
		return append(buf, v.Bytes...)
	}
	out := make([]byte, n)
	copy(out, v.Bytes)
	return append(buf, out...)
}

func encodeArray(buf []byte, f schema.FieldDef, v value.Value, s *schema.Schema) []byte {
	elemDef := schema.FieldDef{Name: "elem", Type: f.Element}
	for _, elem := range v.List {
		buf = encodeField(buf, elemDef, elem, s)
	}
	return buf
}

func encodeUserType(buf []byte, f schema.FieldDef, v value.Value, s *schema.Schema) []byte {
	t, ok := s.Types[f.Type]
	if !ok {
		return buf
	}
	if t.Kind == schema.KindEnum {
		scalar := schema.FieldDef{Name: f.Name, Type: t.Base}
		return encodeField(buf, scalar, v, s)
	}
	if v.Kind != value.KindMap || v.Map == nil {
		v.Map = value.NewMap()
	}
	for _, sub := range t.Fields {
		sv, _ := v.Map.Get(sub.Name)
		buf = encodeField(buf, sub, sv, s)
	}
	return buf
}

func writeScalarAt(buf []byte, offset int, typ string, n int64, e schema.Endian) {
	size := schema.ScalarSize(typ)
	if size == 0 || offset < 0 || offset+size > len(buf) {
		return
	}
	switch size {
	case 1:
		buf[offset] = byte(n)
	case 2:
		e.ByteOrder().PutUint16(buf[offset:offset+2], uint16(n))
	case 4:
		e.ByteOrder().PutUint32(buf[offset:offset+4], uint32(n))
	case 8:
		e.ByteOrder().PutUint64(buf[offset:offset+8], uint64(n))
	}
}
