// Package replay reads a message log produced by internal/formatter and
// re-sends its SEND-direction messages against a fresh TCP endpoint under
// a chosen pacing policy (§4.6).
package replay

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"otus.dev/agent/internal/wire/value"
)

// Record is one parsed log entry: a header plus its field lines.
type Record struct {
	Timestamp time.Duration // time-of-day offset, for inter-record pacing
	Direction string        // "SEND" or "RECV"
	Name      string
	Fields    *value.Map
}

var (
	headerRE = regexp.MustCompile(`^\[(\d+):(\d+):(\d+)\.(\d+)\]\s+(SEND|RECV)\s+(\w+)\s+\(\d+\s+bytes\)`)
	fieldRE  = regexp.MustCompile(`^\s+(\w+):\s+(.+)$`)
)

// ReadLog parses every record out of r in file order.
func ReadLog(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	var records []Record
	var cur *Record

	for scanner.Scan() {
		line := scanner.Text()

		if m := headerRE.FindStringSubmatch(line); m != nil {
			if cur != nil {
				records = append(records, *cur)
			}
			cur = &Record{
				Timestamp: parseTimeOfDay(m),
				Direction: m[5],
				Name:      m[6],
				Fields:    value.NewMap(),
			}
			continue
		}

		if cur == nil {
			continue
		}
		if strings.Contains(line, "->") {
			continue
		}
		if strings.TrimSpace(strings.ToLower(line)) == "" {
			continue
		}
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "raw:") {
			continue
		}
		if m := fieldRE.FindStringSubmatch(line); m != nil {
			cur.Fields.Set(m[1], parseValue(m[2]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay: reading log: %w", err)
	}
	if cur != nil {
		records = append(records, *cur)
	}
	return records, nil
}

func parseTimeOfDay(m []string) time.Duration {
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])
	return time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute +
		time.Duration(sec)*time.Second + time.Duration(ms)*time.Millisecond
}

// parseValue implements §4.6's best-effort value grammar: quoted strings,
// "<N> (Symbol)" enum decorations (kept as the integer), else int, else
// float, else the raw string (log-parse-unknown-value, §7).
func parseValue(raw string) value.Value {
	raw = strings.TrimSpace(raw)

	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err == nil {
			return value.String(unquoted)
		}
		return value.String(raw[1 : len(raw)-1])
	}

	if idx := strings.Index(raw, " ("); idx > 0 && strings.HasSuffix(raw, ")") {
		if n, err := strconv.ParseInt(raw[:idx], 10, 64); err == nil {
			return value.I64(n)
		}
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return value.I64(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.F64(f)
	}
	return value.String(raw)
}
