package render

import (
	"fieldui/application/binding"
	"fieldui/domain/config"
	"fieldui/domain/core/screen"

	"go.uber.org/zap"
)

// Node is one component of a materialized screen: conditions evaluated,
// repeats expanded, bindings substituted. This is what gets serialized
// to the device.
type Node struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Style      map[string]string      `json:"style,omitempty"`
	ValueKey   string                 `json:"valueKey,omitempty"`
	Action     *Action                `json:"action,omitempty"`
	Children   []*Node                `json:"children,omitempty"`

	// Raw carries unknown component types through untouched
	Raw map[string]interface{} `json:"raw,omitempty"`
}

// Action is a dispatchable action on a materialized node. Params stay
// unresolved; the dispatcher resolves them against live state at
// dispatch time, not render time.
type Action struct {
	Name    string                 `json:"name"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Confirm string                 `json:"confirm,omitempty"`
}

// Materializer turns a decoded screen definition plus a render context
// into the tree a device displays
type Materializer struct {
	resolver      *binding.Resolver
	logger        *zap.Logger
	enableRepeats bool
}

// NewMaterializer creates a materializer
func NewMaterializer(resolver *binding.Resolver, cfg *config.DomainConfig, logger *zap.Logger) *Materializer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Materializer{
		resolver:      resolver,
		logger:        logger,
		enableRepeats: cfg.EnableRepeatBindings,
	}
}

// Materialize renders the whole definition against a context
func (m *Materializer) Materialize(def *screen.Definition, ctx *Context) *Node {
	if def.Root == nil {
		return nil
	}
	nodes := m.materializeComponent(def.Root, ctx, "")
	if len(nodes) == 0 {
		// Root pruned by its own condition: serve an empty container so
		// the client always has a tree to mount
		return &Node{ID: def.Root.ID, Type: def.Root.Type}
	}
	return nodes[0]
}

// materializeComponent renders one component. It returns a slice
// because a repeating container produces one node per row and a failed
// condition produces none.
func (m *Materializer) materializeComponent(c *screen.Component, ctx *Context, rowID string) []*Node {
	if c.Condition != nil && !m.conditionHolds(c.Condition, ctx) {
		return nil
	}

	if c.Repeat != "" && m.enableRepeats {
		return m.materializeRepeat(c, ctx)
	}

	return []*Node{m.materializeSingle(c, ctx, rowID)}
}

// materializeRepeat expands a repeating container into one node per row
func (m *Materializer) materializeRepeat(c *screen.Component, ctx *Context) []*Node {
	items, ok := ctx.Items(c.Repeat)
	if !ok {
		m.logger.Debug("repeat path did not resolve",
			zap.String("component_id", c.ID),
			zap.String("path", c.Repeat),
		)
		return nil
	}

	nodes := make([]*Node, 0, len(items))
	for _, item := range items {
		rowCtx := ctx.WithRow(item)
		nodes = append(nodes, m.materializeSingle(c, rowCtx, item.ID()))
	}
	return nodes
}

// materializeSingle renders one component instance. rowID is non-empty
// for rows of a repeating container and is suffixed onto every ID in
// the row's subtree so input keys stay distinct per row.
func (m *Materializer) materializeSingle(c *screen.Component, ctx *Context, rowID string) *Node {
	node := &Node{
		ID:       suffixID(c.ID, rowID),
		Type:     c.Type,
		ValueKey: suffixID(c.ValueKey, rowID),
	}

	if c.Kind == screen.KindUnknown {
		node.Raw = c.Raw
	}

	if len(c.Properties) > 0 {
		node.Properties = m.resolveValue(c.Properties, ctx).(map[string]interface{})
	}

	if len(c.Style) > 0 {
		style := make(map[string]string, len(c.Style))
		for key, value := range c.Style {
			if binding.ContainsExpression(value) {
				value, _ = m.resolver.Resolve(ctx, value)
			}
			style[key] = value
		}
		node.Style = style
	}

	if c.Action != nil {
		confirm, _ := m.resolver.Resolve(ctx, c.Action.Confirm)
		node.Action = &Action{
			Name:    c.Action.Name,
			Params:  c.Action.Params,
			Confirm: confirm,
		}
	}

	for _, child := range c.Children {
		node.Children = append(node.Children, m.materializeComponent(child, ctx, rowID)...)
	}

	return node
}

// resolveValue substitutes bindings in a property value, descending
// into nested objects and lists
func (m *Materializer) resolveValue(value interface{}, ctx *Context) interface{} {
	switch v := value.(type) {
	case string:
		if !binding.ContainsExpression(v) {
			return v
		}
		resolved, _ := m.resolver.Resolve(ctx, v)
		return resolved
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, inner := range v {
			out[key] = m.resolveValue(inner, ctx)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = m.resolveValue(inner, ctx)
		}
		return out
	default:
		return v
	}
}

// conditionHolds evaluates a visibility condition against the context
func (m *Materializer) conditionHolds(cond *screen.Condition, ctx *Context) bool {
	resolved, found := ctx.Lookup(cond.Field)
	return cond.Evaluate(resolved, found)
}

// suffixID appends a row suffix to an identifier
func suffixID(id, rowID string) string {
	if id == "" || rowID == "" {
		return id
	}
	return id + ":" + rowID
}
