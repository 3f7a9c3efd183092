package render

import (
	"fmt"
	"strconv"
	"strings"

	"fieldui/application/inputs"
	"fieldui/application/ports"
)

// Context carries everything a screen needs to resolve its bindings:
// the entity snapshots in scope, the input store, and for rows inside a
// repeating container, the row's own snapshot.
//
// Context implements binding.Scope. Path routing:
//
//	input.<valueKey>   captured form value
//	item.<field>       field of the current repeat row
//	<scope>.<field>    field of the snapshot registered under scope
//	anything else      input store, the whole path as the value key
//
// Input lookups inside a repeating container key on the row's entity,
// never the outer screen entity, so one row's edits stay in that row.
type Context struct {
	screen   string
	entityID string
	entities map[string]ports.EntitySnapshot
	inputs   *inputs.Store

	// row is set inside a repeating container
	row ports.EntitySnapshot
}

// NewContext creates a render context for a screen opened on an entity
func NewContext(screenName, entityID string, store *inputs.Store) *Context {
	return &Context{
		screen:   screenName,
		entityID: entityID,
		entities: make(map[string]ports.EntitySnapshot),
		inputs:   store,
	}
}

// Screen returns the screen this context renders
func (c *Context) Screen() string {
	return c.screen
}

// EntityID returns the entity the screen was opened for
func (c *Context) EntityID() string {
	return c.entityID
}

// WithEntity registers a snapshot under a scope name and returns the
// context for chaining
func (c *Context) WithEntity(scope string, snapshot ports.EntitySnapshot) *Context {
	c.entities[scope] = snapshot
	return c
}

// WithRow returns a child context bound to one row of a repeating
// container. The child shares entities and inputs with its parent.
func (c *Context) WithRow(row ports.EntitySnapshot) *Context {
	child := *c
	child.row = row
	return &child
}

// Row returns the current repeat row, nil outside a repeating container
func (c *Context) Row() ports.EntitySnapshot {
	return c.row
}

// Lookup resolves a path to its string rendering
func (c *Context) Lookup(path string) (string, bool) {
	raw, ok := c.LookupRaw(path)
	if !ok {
		return "", false
	}
	if s, isString := raw.(string); isString {
		return s, true
	}
	return stringify(raw), true
}

// LookupRaw resolves a path to its underlying typed value
func (c *Context) LookupRaw(path string) (interface{}, bool) {
	scope, rest, found := strings.Cut(path, ".")
	if !found {
		return c.inputValue(path)
	}

	switch scope {
	case "input":
		return c.inputValue(rest)

	case "item":
		if c.row == nil {
			return nil, false
		}
		value, ok := c.row.Field(rest)
		if !ok {
			return nil, false
		}
		return value, true

	default:
		snapshot, ok := c.entities[scope]
		if !ok {
			// No snapshot registered under the first segment: the whole
			// path is an input value key
			return c.inputValue(path)
		}
		value, found := snapshot.Field(rest)
		if !found {
			return nil, false
		}
		return value, true
	}
}

// inputValue reads a captured form value. Inside a repeating container
// the row entity owns the value, not the screen entity.
func (c *Context) inputValue(valueKey string) (interface{}, bool) {
	entityID := c.entityID
	if c.row != nil {
		entityID = c.row.ID()
	}
	value, ok := c.inputs.Get(valueKey, entityID)
	if !ok {
		return nil, false
	}
	return value.Raw(), true
}

// Items resolves a repeat path to row snapshots. The path must name a
// list field on a scoped entity, e.g. "job.lineItems".
func (c *Context) Items(path string) ([]ports.EntitySnapshot, bool) {
	scope, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}

	snapshot, ok := c.entities[scope]
	if !ok {
		return nil, false
	}
	return snapshot.Items(rest)
}

// stringify renders a bound value for template substitution. Integral
// floats render without a decimal point, matching the authoring tool.
func stringify(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
