// Package decoder implements the schema-driven framing and field-decoding
// state machine (§4.3): peek a header, consume one length-prefixed message,
// run it through the transform pipeline, then parse its fields.
package decoder

import (
	"strconv"

	"otus.dev/agent/internal/wire/buffer"
	"otus.dev/agent/internal/wire/schema"
	"otus.dev/agent/internal/wire/transform"
	"otus.dev/agent/internal/wire/value"
)

const maxDeclaredSize = 65535

// Message is one fully decoded application-layer packet.
type Message struct {
	Name   string
	Code   int
	Fields *value.Map
	Raw    []byte
}

// Decoder runs the framing/decode loop over one connection's reassembly
// buffer and shared transform context. Not safe for concurrent use; one
// Decoder per connection, matching the buffer it wraps.
type Decoder struct {
	schema *schema.Schema
	buf    *buffer.Ring
	ctx    *transform.Context
	pipe   *transform.Pipeline
}

// New returns a Decoder bound to a connection's reassembly buffer. pipe may
// be nil for a schema with no declared transforms.
func New(s *schema.Schema, buf *buffer.Ring, ctx *transform.Context, pipe *transform.Pipeline) *Decoder {
	return &Decoder{schema: s, buf: buf, ctx: ctx, pipe: pipe}
}

// Append feeds newly captured bytes into the underlying reassembly buffer.
func (d *Decoder) Append(p []byte) {
	d.buf.Append(p)
}

// Next attempts to decode one message from the buffer. It returns ok=false
// when there aren't yet enough bytes buffered to make progress — the caller
// should Append more and retry. A declared size outside (0, 65535] freezes
// the connection (§7 oversized-declared-size): nothing is consumed, and since
// Append never changes the bytes at the read cursor, every later call
// returns false as well.
func (d *Decoder) Next() (*Message, bool) {
	h := &d.schema.Header
	if d.buf.Available() < h.Length {
		return nil, false
	}

	header, ok := d.buf.Peek(h.Length)
	if !ok {
		return nil, false
	}

	sizeField := h.Field(h.SizeField)
	size := int(readScalar(header, sizeField.Offset, sizeField.Type, d.schema.Endian))
	if size <= 0 || size > maxDeclaredSize {
		return nil, false
	}

	if d.buf.Available() < size {
		return nil, false
	}

	view, ok := d.buf.Peek(size)
	if !ok {
		return nil, false
	}
	m := make([]byte, size)
	copy(m, view)
	d.buf.Consume(size)

	if d.pipe != nil {
		m = d.pipe.Apply(m, d.ctx)
	}

	typeField := h.Field(h.TypeField)
	code := int(readScalarTolerant(m, typeField.Offset, typeField.Type, d.schema.Endian))

	packet, known := d.schema.PacketByCode(code)
	if !known {
		return &Message{
			Name:   unknownName(code),
			Code:   code,
			Fields: value.NewMap(),
			Raw:    m,
		}, true
	}

	fields, _ := decodeFields(packet.Fields, m, 0, d.schema)
	return &Message{Name: packet.Name, Code: code, Fields: fields, Raw: m}, true
}

func unknownName(code int) string {
	return "Unknown(" + strconv.Itoa(code) + ")"
}
