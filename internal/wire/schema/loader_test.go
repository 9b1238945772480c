package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytesDefaults(t *testing.T) {
	doc := `{"protocol": {}}`
	s, err := LoadBytes([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, LittleEndian, s.Endian)
	assert.Equal(t, 1, s.Pack)
	assert.Equal(t, "size", s.Header.SizeField)
	assert.Equal(t, "type", s.Header.TypeField)
	assert.Equal(t, 8, s.Header.Length)
}

func TestLoadBytesMissingProtocol(t *testing.T) {
	_, err := LoadBytes([]byte(`{"packets": []}`))
	assert.Error(t, err)
}

func TestLoadBytesPacketsAndArrays(t *testing.T) {
	doc := `{
		"protocol": {"endian": "little", "header": {"fields": [
			{"name": "size", "type": "uint16", "offset": 0},
			{"name": "type", "type": "uint16", "offset": 2}
		]}},
		"packets": [
			{"type": 259, "name": "LIST", "fields": [
				{"name": "size", "type": "uint16"},
				{"name": "type", "type": "uint16"},
				{"name": "n", "type": "uint8"},
				{"name": "xs", "type": "array", "element": "uint16", "count_field": "n"}
			]}
		]
	}`
	s, err := LoadBytes([]byte(doc))
	require.NoError(t, err)
	p, ok := s.PacketByCode(259)
	require.True(t, ok)
	assert.Equal(t, "LIST", p.Name)
	assert.Equal(t, 4, s.Header.Length)
}

func TestLoadBytesUnresolvedCountFieldRejected(t *testing.T) {
	doc := `{
		"protocol": {},
		"packets": [
			{"type": 1, "name": "BAD", "fields": [
				{"name": "xs", "type": "array", "element": "uint16", "count_field": "n"},
				{"name": "n", "type": "uint8"}
			]}
		]
	}`
	_, err := LoadBytes([]byte(doc))
	assert.Error(t, err)
}

func TestLoadBytesUnresolvedUserTypeRejected(t *testing.T) {
	doc := `{
		"protocol": {},
		"packets": [
			{"type": 1, "name": "BAD", "fields": [
				{"name": "x", "type": "Missing"}
			]}
		]
	}`
	_, err := LoadBytes([]byte(doc))
	assert.Error(t, err)
}

func TestLoadBytesEnumRoundTripsSymbols(t *testing.T) {
	doc := `{
		"protocol": {},
		"types": {
			"PacketType": {"kind": "enum", "base": "uint32", "values": {"PING": 257, "PONG": 258}}
		}
	}`
	s, err := LoadBytes([]byte(doc))
	require.NoError(t, err)
	pt, ok := s.Type("PacketType")
	require.True(t, ok)
	sym, ok := pt.SymbolFor(257)
	require.True(t, ok)
	assert.Equal(t, "PING", sym)
}

func TestGetLength(t *testing.T) {
	lit := &FieldDef{Length: Length{Kind: LengthLiteral, Value: 8}}
	assert.Equal(t, 8, GetLength(lit, 20))
	assert.Equal(t, 4, GetLength(lit, 4)) // overflow clamps to remaining

	remaining := &FieldDef{Length: Length{Kind: LengthRemaining}}
	assert.Equal(t, 20, GetLength(remaining, 20))

	none := &FieldDef{}
	assert.Equal(t, 20, GetLength(none, 20))
}
