package screen

import (
	"encoding/json"

	pkgerrors "fieldui/pkg/errors"
)

// Definition is the decoded form of one versioned screen JSON document.
// Definitions are authored server-side; devices treat them as read-only.
type Definition struct {
	Screen        string
	SchemaVersion int
	Title         string
	EntityScope   string
	Root          *Component
}

// definitionDoc mirrors the top-level JSON layout. The component tree is
// decoded separately because it needs unknown-type passthrough.
type definitionDoc struct {
	Screen        string                 `json:"screen" mapstructure:"screen"`
	SchemaVersion int                    `json:"schemaVersion" mapstructure:"schemaVersion"`
	Title         string                 `json:"title" mapstructure:"title"`
	EntityScope   string                 `json:"entityScope" mapstructure:"entityScope"`
	Root          map[string]interface{} `json:"root" mapstructure:"root"`
}

// DecodeDefinition decodes a screen JSON document into a Definition.
// Structural problems (not a JSON object, missing root, malformed
// conditions) fail the whole decode; unknown component types do not.
func DecodeDefinition(data []byte) (*Definition, error) {
	var doc definitionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, pkgerrors.NewSchemaDecodeError("", 0, err)
	}

	if doc.Screen == "" {
		return nil, pkgerrors.NewSchemaDecodeError("", doc.SchemaVersion, errMissingField("screen"))
	}
	if doc.SchemaVersion < 1 {
		return nil, pkgerrors.NewSchemaDecodeError(doc.Screen, doc.SchemaVersion, errMissingField("schemaVersion"))
	}
	if doc.Root == nil {
		return nil, pkgerrors.NewSchemaDecodeError(doc.Screen, doc.SchemaVersion, errMissingField("root"))
	}

	root, err := decodeComponent(doc.Root)
	if err != nil {
		return nil, pkgerrors.NewSchemaDecodeError(doc.Screen, doc.SchemaVersion, err)
	}

	return &Definition{
		Screen:        doc.Screen,
		SchemaVersion: doc.SchemaVersion,
		Title:         doc.Title,
		EntityScope:   doc.EntityScope,
		Root:          root,
	}, nil
}

// Walk visits every component in the tree depth-first, parents before
// children. The walk stops when fn returns false.
func (d *Definition) Walk(fn func(c *Component, depth int) bool) {
	if d.Root == nil {
		return
	}
	walkComponent(d.Root, 0, fn)
}

func walkComponent(c *Component, depth int, fn func(c *Component, depth int) bool) bool {
	if !fn(c, depth) {
		return false
	}
	for _, child := range c.Children {
		if !walkComponent(child, depth+1, fn) {
			return false
		}
	}
	return true
}

// ComponentCount returns the number of components in the tree
func (d *Definition) ComponentCount() int {
	count := 0
	d.Walk(func(*Component, int) bool {
		count++
		return true
	})
	return count
}

// MaxDepth returns the deepest nesting level in the tree
func (d *Definition) MaxDepth() int {
	max := 0
	d.Walk(func(_ *Component, depth int) bool {
		if depth > max {
			max = depth
		}
		return true
	})
	return max
}
