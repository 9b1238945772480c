package transform

import (
	"fmt"

	"otus.dev/agent/internal/log"
	"otus.dev/agent/internal/wire/schema"
)

// Stage is one byte-block rewriting step between framing and field decoding.
// Implementations must never panic on malformed input: on any failure they
// return data unchanged (§4.4, §7 transform-failure).
type Stage interface {
	Name() string
	Apply(data []byte, ctx *Context) []byte
}

// Pipeline runs an ordered list of Stages, threading one shared Context
// through every message of a connection.
type Pipeline struct {
	stages []Stage
}

// NewPipeline returns a pipeline running stages in the given order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Apply runs every stage over data in declaration order. A stage that
// panics despite the no-panic contract is treated the same as a returned
// identity: the pipeline logs a warning and keeps the pre-stage bytes.
func (p *Pipeline) Apply(data []byte, ctx *Context) []byte {
	for _, s := range p.stages {
		data = p.applyStage(s, data, ctx)
	}
	return data
}

func (p *Pipeline) applyStage(s Stage, data []byte, ctx *Context) (out []byte) {
	out = data
	defer func() {
		if r := recover(); r != nil {
			log.GetLogger().WithField("transform", s.Name()).Warnf("transform panicked, passing bytes through unchanged: %v", r)
			out = data
		}
	}()
	return s.Apply(data, ctx)
}

// Build constructs a Pipeline from a schema's declared transform chain,
// resolving each kind string to a registered Stage constructor.
func Build(defs []schema.TransformDef) (*Pipeline, error) {
	stages := make([]Stage, 0, len(defs))
	for _, d := range defs {
		ctor, ok := registry[d.Kind]
		if !ok {
			return nil, fmt.Errorf("transform: unknown kind %q", d.Kind)
		}
		stage, err := ctor(d.Options)
		if err != nil {
			return nil, fmt.Errorf("transform %q: %w", d.Kind, err)
		}
		stages = append(stages, stage)
	}
	return NewPipeline(stages...), nil
}

type constructor func(options map[string]any) (Stage, error)

var registry = map[string]constructor{
	"xtea":    newXTEAStage,
	"raw_rsa": newRawRSAStage,
}
