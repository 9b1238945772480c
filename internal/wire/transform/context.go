package transform

import "otus.dev/agent/internal/wire/value"

// Context is the mutable, per-connection dictionary shared by every stage
// of a pipeline across every message of that connection (§3 "Transform
// context"). One transform (RSA) writes a derived session key; a later
// stage (XTEA) reads it.
type Context struct {
	m *value.Map
}

// NewContext returns an empty transform context.
func NewContext() *Context {
	return &Context{m: value.NewMap()}
}

// Set stores v under key, overwriting any previous value.
func (c *Context) Set(key string, v value.Value) {
	c.m.Set(key, v)
}

// Get returns the value stored at key and whether it was present.
func (c *Context) Get(key string) (value.Value, bool) {
	return c.m.Get(key)
}
