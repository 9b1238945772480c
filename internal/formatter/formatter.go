// Package formatter renders a decoded message to the canonical text form
// consumed by the log sink and re-parsed by the replay driver's log reader
// (§4.7). Two renderings exist: a terser console form and a fuller file
// form; both share the same header-line and field-line grammar so the
// replay reader's regexes match either one.
package formatter

import (
	"encoding/hex"
	"fmt"
	"strings"

	"otus.dev/agent/internal/wire/decoder"
	"otus.dev/agent/internal/wire/schema"
	"otus.dev/agent/internal/wire/value"
)

// Direction is the capture-time SEND/RECV classification (glossary).
type Direction string

const (
	Send Direction = "SEND"
	Recv Direction = "RECV"
)

const consoleRawTruncate = 64

// FormatConsole renders the short form: header, address, one line per
// field (skipping the header's own size/type fields), and a truncated raw
// hex line.
func FormatConsole(ts string, dir Direction, msg *decoder.Message, s *schema.Schema, src, dst string) string {
	return format(ts, dir, msg, s, src, dst, false)
}

// FormatFile renders the full form: same as console but includes the
// size/type fields and the complete raw hex, for faithful log replay.
func FormatFile(ts string, dir Direction, msg *decoder.Message, s *schema.Schema, src, dst string) string {
	return format(ts, dir, msg, s, src, dst, true)
}

func format(ts string, dir Direction, msg *decoder.Message, s *schema.Schema, src, dst string, full bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s (%d bytes)\n", ts, dir, msg.Name, len(msg.Raw))
	fmt.Fprintf(&b, "  %s -> %s\n", src, dst)

	for _, name := range msg.Fields.Keys() {
		if !full && isHeaderField(s, name) {
			continue
		}
		v, _ := msg.Fields.Get(name)
		fmt.Fprintf(&b, "  %s: %s\n", name, renderValue(name, v, s))
	}

	raw := hex.EncodeToString(msg.Raw)
	if !full && len(raw) > consoleRawTruncate {
		raw = raw[:consoleRawTruncate] + "..."
	}
	fmt.Fprintf(&b, "  raw: %s\n", raw)
	return b.String()
}

func isHeaderField(s *schema.Schema, name string) bool {
	return name == s.Header.SizeField || name == s.Header.TypeField
}

// renderValue decorates the schema's declared type field with its enum
// symbol when a "PacketType" enum type is present (§4.7).
func renderValue(name string, v value.Value, s *schema.Schema) string {
	if name == s.Header.TypeField {
		if t, ok := s.Types["PacketType"]; ok && t.Kind == schema.KindEnum {
			if n, ok := v.AsInt64(); ok {
				if sym, ok := t.SymbolFor(n); ok {
					return fmt.Sprintf("%d (%s)", n, sym)
				}
			}
		}
	}
	return renderPlain(v)
}

func renderPlain(v value.Value) string {
	switch v.Kind {
	case value.KindString:
		return fmt.Sprintf("%q", v.Str)
	case value.KindBytes:
		return hex.EncodeToString(v.Bytes)
	case value.KindI64:
		return fmt.Sprintf("%d", v.I64)
	case value.KindU64:
		return fmt.Sprintf("%d", v.U64)
	case value.KindF64:
		return fmt.Sprintf("%g", v.F64)
	case value.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case value.KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = renderPlain(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case value.KindMap:
		if v.Map == nil {
			return "{}"
		}
		parts := make([]string, 0, v.Map.Len())
		for _, k := range v.Map.Keys() {
			sub, _ := v.Map.Get(k)
			parts = append(parts, k+"="+renderPlain(sub))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}
