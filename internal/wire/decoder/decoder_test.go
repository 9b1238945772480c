package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otus.dev/agent/internal/wire/buffer"
	"otus.dev/agent/internal/wire/schema"
)

func testSchema(t *testing.T, doc string) *schema.Schema {
	t.Helper()
	s, err := schema.LoadBytes([]byte(doc))
	require.NoError(t, err)
	return s
}

func newDecoder(t *testing.T, s *schema.Schema) *Decoder {
	t.Helper()
	return New(s, buffer.New(64), nil, nil)
}

func TestDecodeOnePacketFourByteHeader(t *testing.T) {
	s := testSchema(t, `{
		"protocol": {"endian": "little", "header": {"fields": [
			{"name": "size", "type": "uint16", "offset": 0},
			{"name": "type", "type": "uint16", "offset": 2}
		]}},
		"packets": [{"type": 1, "name": "Ping", "fields": [
			{"name": "size", "type": "uint16"},
			{"name": "type", "type": "uint16"},
			{"name": "seq", "type": "uint32"}
		]}]
	}`)
	d := newDecoder(t, s)

	msg := []byte{8, 0, 1, 0, 42, 0, 0, 0}
	d.Append(msg)

	out, ok := d.Next()
	require.True(t, ok)
	assert.Equal(t, "Ping", out.Name)
	assert.Equal(t, 1, out.Code)
	seq, ok := out.Fields.Get("seq")
	require.True(t, ok)
	v, _ := seq.AsInt64()
	assert.Equal(t, int64(42), v)
}

func TestDecodeStringNulEarlyTerminate(t *testing.T) {
	s := testSchema(t, `{
		"protocol": {"endian": "little"},
		"packets": [{"type": 1, "name": "Hello", "fields": [
			{"name": "size", "type": "uint32"},
			{"name": "type", "type": "uint32"},
			{"name": "name", "type": "string", "length": 8}
		]}]
	}`)
	d := newDecoder(t, s)

	body := append([]byte{16, 0, 0, 0, 1, 0, 0, 0}, []byte{'b', 'o', 'b', 0, 'x', 'x', 'x', 'x'}...)
	d.Append(body)

	out, ok := d.Next()
	require.True(t, ok)
	name, _ := out.Fields.Get("name")
	assert.Equal(t, "bob", name.Str)
}

func TestDecodeArrayWithCountField(t *testing.T) {
	s := testSchema(t, `{
		"protocol": {"endian": "little"},
		"packets": [{"type": 1, "name": "List", "fields": [
			{"name": "size", "type": "uint32"},
			{"name": "type", "type": "uint32"},
			{"name": "count", "type": "uint8"},
			{"name": "items", "type": "array", "element": "uint16", "count_field": "count"}
		]}]
	}`)
	d := newDecoder(t, s)

	body := []byte{15, 0, 0, 0, 1, 0, 0, 0, 3, 1, 0, 2, 0, 3, 0}
	d.Append(body)

	out, ok := d.Next()
	require.True(t, ok)
	items, _ := out.Fields.Get("items")
	require.Len(t, items.List, 3)
	v0, _ := items.List[0].AsInt64()
	v1, _ := items.List[1].AsInt64()
	v2, _ := items.List[2].AsInt64()
	assert.Equal(t, []int64{1, 2, 3}, []int64{v0, v1, v2})
}

func TestDecodeUnknownPacketType(t *testing.T) {
	s := testSchema(t, `{
		"protocol": {"endian": "little"},
		"packets": [{"type": 1, "name": "Known", "fields": [
			{"name": "size", "type": "uint32"},
			{"name": "type", "type": "uint32"}
		]}]
	}`)
	d := newDecoder(t, s)

	body := []byte{8, 0, 0, 0, 99, 0, 0, 0}
	d.Append(body)

	out, ok := d.Next()
	require.True(t, ok)
	assert.Equal(t, "Unknown(99)", out.Name)
	assert.Equal(t, 0, out.Fields.Len())
}

func TestDecodeOversizedDeclaredSizeFreezes(t *testing.T) {
	s := testSchema(t, `{
		"protocol": {"endian": "little"},
		"packets": [{"type": 1, "name": "Known", "fields": [
			{"name": "size", "type": "uint32"},
			{"name": "type", "type": "uint32"}
		]}]
	}`)
	d := newDecoder(t, s)

	body := []byte{0xff, 0xff, 0xff, 0x7f, 1, 0, 0, 0}
	d.Append(body)

	_, ok := d.Next()
	assert.False(t, ok, "oversized declared size must refuse to advance")
}

func TestDecodeWaitsForMoreBytesOnShortMessage(t *testing.T) {
	s := testSchema(t, `{
		"protocol": {"endian": "little"},
		"packets": [{"type": 1, "name": "Known", "fields": [
			{"name": "size", "type": "uint32"},
			{"name": "type", "type": "uint32"}
		]}]
	}`)
	d := newDecoder(t, s)

	d.Append([]byte{8, 0, 0, 0, 1, 0})
	_, ok := d.Next()
	assert.False(t, ok)

	d.Append([]byte{0, 0})
	out, ok := d.Next()
	require.True(t, ok)
	assert.Equal(t, "Known", out.Name)
}
