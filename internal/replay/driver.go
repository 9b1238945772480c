package replay

import (
	"fmt"
	"net"
	"os"
	"time"

	"otus.dev/agent/internal/log"
	"otus.dev/agent/internal/wire/encoder"
	"otus.dev/agent/internal/wire/schema"
	"otus.dev/agent/internal/wire/value"
)

// Mode is the replay driver's pacing policy (§4.6).
type Mode int

const (
	ModeTiming Mode = iota
	ModeResponse
	ModeHybrid
)

// ParseMode resolves a CLI-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "timing":
		return ModeTiming, nil
	case "response":
		return ModeResponse, nil
	case "hybrid":
		return ModeHybrid, nil
	default:
		return 0, fmt.Errorf("replay: unknown mode %q (want timing|response|hybrid)", s)
	}
}

// DriverOptions configures a replay Driver.
type DriverOptions struct {
	LogPath   string
	Target    string
	Mode      Mode
	Timeout   int // milliseconds
	Speed     float64
	Schema    *schema.Schema
	Overrides map[string]string // field name -> replacement value, same grammar as the log (§4.6)
}

// Driver replays a parsed log against a target TCP endpoint.
type Driver struct {
	opts      DriverOptions
	records   []Record
	overrides map[string]value.Value
}

// NewDriver loads and parses the log file referenced by opts.LogPath.
func NewDriver(opts DriverOptions) (*Driver, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("replay: a loaded schema is required")
	}
	f, err := os.Open(opts.LogPath)
	if err != nil {
		return nil, fmt.Errorf("replay: open log %s: %w", opts.LogPath, err)
	}
	defer f.Close()

	records, err := ReadLog(f)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2000
	}

	overrides := make(map[string]value.Value, len(opts.Overrides))
	for field, raw := range opts.Overrides {
		overrides[field] = parseValue(raw)
	}

	return &Driver{opts: opts, records: records, overrides: overrides}, nil
}

// Run replays the loaded records against the target, blocking until the log
// is exhausted or a connect/socket error makes the session fatal (§7).
func (d *Driver) Run() error {
	conn, err := net.Dial("tcp", d.opts.Target)
	if err != nil {
		return fmt.Errorf("replay: connect to %s: %w", d.opts.Target, err)
	}
	defer conn.Close()

	logger := log.GetLogger()
	sent, received := 0, 0

	for i, rec := range d.records {
		if rec.Direction != "SEND" {
			continue
		}

		d.pace(i)

		fields := d.applyOverrides(rec.Fields)
		out, err := encoder.Encode(d.opts.Schema, rec.Name, fields)
		if err != nil {
			logger.WithError(err).Warn("replay: failed to encode record, skipping")
			continue
		}
		if _, err := conn.Write(out); err != nil {
			return fmt.Errorf("replay: socket write: %w", err)
		}
		sent++

		if d.opts.Mode == ModeResponse || d.opts.Mode == ModeHybrid {
			if d.awaitResponse(conn, i) {
				received++
			}
		}
	}

	logger.WithField("sent", sent).WithField("received", received).Info("replay complete")
	return nil
}

// applyOverrides returns a copy of fields with d.overrides merged in, so a
// replay can resend a captured record with one or more values forced to a
// caller-supplied constant (e.g. a fresh account name) instead of whatever
// was captured (§4.6). Returns fields unchanged if no overrides are set.
func (d *Driver) applyOverrides(fields *value.Map) *value.Map {
	if len(d.overrides) == 0 {
		return fields
	}
	out := value.NewMap()
	for _, k := range fields.Keys() {
		v, _ := fields.Get(k)
		out.Set(k, v)
	}
	for field, v := range d.overrides {
		out.Set(field, v)
	}
	return out
}

// pace sleeps for the gap between this SEND record and the previous record's
// timestamp, scaled by speed, under timing/hybrid modes.
func (d *Driver) pace(i int) {
	if d.opts.Mode != ModeTiming && d.opts.Mode != ModeHybrid {
		return
	}
	if i == 0 || d.opts.Speed <= 0 {
		return
	}
	gap := d.records[i].Timestamp - d.records[i-1].Timestamp
	if gap <= 0 {
		return
	}
	wait := time.Duration(float64(gap) / d.opts.Speed)
	if wait > 0 {
		time.Sleep(wait)
	}
}

// awaitResponse waits for the next RECV record (if any exists after i) to
// arrive on conn, within the configured timeout. Presence is all that's
// checked — the driver never validates the bytes against the log (§4.6).
func (d *Driver) awaitResponse(conn net.Conn, i int) bool {
	hasPendingRecv := false
	for j := i + 1; j < len(d.records); j++ {
		if d.records[j].Direction == "RECV" {
			hasPendingRecv = true
			break
		}
	}
	if !hasPendingRecv {
		return false
	}

	conn.SetReadDeadline(time.Now().Add(time.Duration(d.opts.Timeout) * time.Millisecond))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		log.GetLogger().WithError(err).Warn("replay: response timeout")
		return false
	}
	return n > 0
}
