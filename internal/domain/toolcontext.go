package domain

import "sort"

// ToolContext is read-only side-channel data handed to context-accepting
// tools for one invocation. It is never serialized into the model's view of
// the tool. The zero value is an empty context.
type ToolContext struct {
	values map[string]any
}

// NewToolContext copies values into a new ToolContext. Later changes to the
// caller's map are not visible through the returned context.
func NewToolContext(values map[string]any) ToolContext {
	if len(values) == 0 {
		return ToolContext{}
	}
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return ToolContext{values: cp}
}

// Lookup returns the value stored under key and whether it was present.
func (c ToolContext) Lookup(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Value returns the value stored under key, or nil.
func (c ToolContext) Value(key string) any {
	return c.values[key]
}

// String returns the value under key when it is a string.
func (c ToolContext) String(key string) (string, bool) {
	s, ok := c.values[key].(string)
	return s, ok
}

// Keys returns the keys in sorted order.
func (c ToolContext) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c ToolContext) Len() int {
	return len(c.values)
}
