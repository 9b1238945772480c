package capture

import (
	"fmt"
	"os"
	"time"

	"otus.dev/agent/internal/formatter"
	"otus.dev/agent/internal/log"
	"otus.dev/agent/internal/wire/decoder"
	"otus.dev/agent/internal/wire/schema"
	"otus.dev/agent/internal/wire/transform"
)

const (
	defaultIdleTimeout = 5 * time.Minute
	defaultSweepPeriod = 30 * time.Second
)

// SessionOptions configures a capture Session.
type SessionOptions struct {
	Interface   string
	Port        int
	SnapLen     int
	LogPath     string
	Schema      *schema.Schema
	IdleTimeout time.Duration
	SweepPeriod time.Duration
}

// Session runs one live-capture-to-log pipeline: pcap reader → connection
// demux → decoder → formatter → log file.
type Session struct {
	opts   SessionOptions
	reader *liveReader
	demux  *demux
	out    *os.File
}

// NewSession validates options, builds the transform pipeline from the
// schema, opens the pcap handle and log file, but does not start capturing.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("capture: a loaded schema is required")
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.SweepPeriod == 0 {
		opts.SweepPeriod = defaultSweepPeriod
	}

	pipeline, err := transform.Build(opts.Schema.Transforms)
	if err != nil {
		return nil, fmt.Errorf("capture: building transform pipeline: %w", err)
	}

	reader, err := newLiveReader(opts.Interface, opts.Port, opts.SnapLen)
	if err != nil {
		return nil, err
	}

	out, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		reader.close()
		return nil, fmt.Errorf("capture: open log %s: %w", opts.LogPath, err)
	}

	return &Session{
		opts:   opts,
		reader: reader,
		demux:  newDemux(opts.Schema, pipeline, opts.IdleTimeout),
		out:    out,
	}, nil
}

// Run blocks, capturing and decoding until stop closes.
func (s *Session) Run(stop <-chan struct{}) error {
	defer s.reader.close()
	defer s.out.Close()

	go s.demux.runSweeper(s.opts.SweepPeriod, stop)

	return s.reader.run(stop, func(tuple FourTuple, dir Direction, payload []byte) {
		s.handlePayload(tuple, dir, payload)
	})
}

func (s *Session) handlePayload(tuple FourTuple, dir Direction, payload []byte) {
	conn := s.demux.get(tuple)
	conn.dec.Append(payload)

	for {
		msg, ok := conn.dec.Next()
		if !ok {
			return
		}
		s.emit(tuple, dir, msg)
	}
}

func (s *Session) emit(tuple FourTuple, dir Direction, msg *decoder.Message) {
	ts := time.Now().Format("15:04:05.000")
	src := fmt.Sprintf("%s:%d", tuple.SrcIP, tuple.SrcPort)
	dst := fmt.Sprintf("%s:%d", tuple.DstIP, tuple.DstPort)

	line := formatter.FormatFile(ts, toFormatterDir(dir), msg, s.opts.Schema, src, dst)
	if _, err := s.out.WriteString(line); err != nil {
		log.GetLogger().WithError(err).Warn("capture: failed to write log line")
	}
}

func toFormatterDir(d Direction) formatter.Direction {
	if d == SendDir {
		return formatter.Send
	}
	return formatter.Recv
}
