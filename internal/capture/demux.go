// Package capture owns the live-capture collaborator (a gopacket/pcap
// reader) and the per-connection demultiplexer that feeds captured TCP
// payload into the core decoder (§4.8, §5).
package capture

import (
	"fmt"
	"sync"
	"time"

	"otus.dev/agent/internal/wire/buffer"
	"otus.dev/agent/internal/wire/decoder"
	"otus.dev/agent/internal/wire/schema"
	"otus.dev/agent/internal/wire/transform"
)

// FourTuple identifies one TCP connection by endpoint addresses.
type FourTuple struct {
	SrcIP, DstIP     string
	SrcPort, DstPort uint16
}

func (t FourTuple) String() string {
	return fmt.Sprintf("%s:%d-%s:%d", t.SrcIP, t.SrcPort, t.DstIP, t.DstPort)
}

// connState is one connection's reassembly buffer, decoder, and transform
// context, plus the bookkeeping the idle sweep needs.
type connState struct {
	dec        *decoder.Decoder
	lastActive time.Time
}

// demux owns the 4-tuple → connState map. Mutated only from the capture
// goroutine, except for the idle sweep which takes mu before deleting.
type demux struct {
	mu          sync.Mutex
	conns       map[FourTuple]*connState
	schema      *schema.Schema
	pipeline    *transform.Pipeline
	idleTimeout time.Duration
}

func newDemux(s *schema.Schema, pipeline *transform.Pipeline, idleTimeout time.Duration) *demux {
	return &demux{
		conns:       make(map[FourTuple]*connState),
		schema:      s,
		pipeline:    pipeline,
		idleTimeout: idleTimeout,
	}
}

// get returns the connState for tuple, creating one (with a fresh buffer
// and transform context) on first sight. Called only from the capture
// goroutine, but still takes mu since the idle sweeper reads/deletes map
// entries concurrently.
func (d *demux) get(tuple FourTuple) *connState {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.conns[tuple]
	if !ok {
		c = &connState{
			dec: decoder.New(d.schema, buffer.New(4096), transform.NewContext(), d.pipeline),
		}
		d.conns[tuple] = c
	}
	c.lastActive = time.Now()
	return c
}

// sweep removes connections idle for longer than idleTimeout. Intended to
// run periodically on its own goroutine, guarded by mu.
func (d *demux) sweep() {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := time.Now().Add(-d.idleTimeout)
	for tuple, c := range d.conns {
		if c.lastActive.Before(cutoff) {
			delete(d.conns, tuple)
		}
	}
}

// runSweeper blocks until stop closes, sweeping idle connections every
// period.
func (d *demux) runSweeper(period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.sweep()
		case <-stop:
			return
		}
	}
}
