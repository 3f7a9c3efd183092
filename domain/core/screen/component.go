package screen

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Kind classifies component types by how the renderer treats them
type Kind int

const (
	KindUnknown Kind = iota
	KindContainer
	KindPrimitive
	KindInput
	KindPresentation
	KindConditional
)

// String returns the kind name for logging
func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindPrimitive:
		return "primitive"
	case KindInput:
		return "input"
	case KindPresentation:
		return "presentation"
	case KindConditional:
		return "conditional"
	default:
		return "unknown"
	}
}

// kindByType maps declared component type strings to their kind. Types
// not listed here decode as KindUnknown and pass through untouched, so
// old app builds keep working when the authoring tool adds new types.
var kindByType = map[string]Kind{
	"container": KindContainer,
	"section":   KindContainer,
	"card":      KindContainer,
	"form":      KindContainer,
	"list":      KindContainer,
	"row":       KindContainer,

	"text":    KindPrimitive,
	"button":  KindPrimitive,
	"spacer":  KindPrimitive,
	"divider": KindPrimitive,

	"textInput":    KindInput,
	"numberInput":  KindInput,
	"toggle":       KindInput,
	"select":       KindInput,
	"multiSelect":  KindInput,
	"datePicker":   KindInput,
	"signaturePad": KindInput,
	"photoCapture": KindInput,

	"image":      KindPresentation,
	"icon":       KindPresentation,
	"badge":      KindPresentation,
	"statusChip": KindPresentation,
	"mapPreview": KindPresentation,

	"conditional": KindConditional,
}

// KindOf returns the kind for a declared component type
func KindOf(componentType string) Kind {
	if kind, ok := kindByType[componentType]; ok {
		return kind
	}
	return KindUnknown
}

// Component is one node of a screen's component tree
type Component struct {
	ID         string
	Type       string
	Kind       Kind
	Properties map[string]interface{}
	Style      map[string]string
	ValueKey   string
	Action     *ActionSpec
	Condition  *Condition
	Repeat     string
	Children   []*Component

	// Raw holds the original JSON object for unknown component types so
	// the renderer can hand it to the client untouched
	Raw map[string]interface{}
}

// ActionSpec declares the action a component dispatches when activated.
// Params values may contain binding expressions.
type ActionSpec struct {
	Name    string                 `json:"name" mapstructure:"name"`
	Params  map[string]interface{} `json:"params" mapstructure:"params"`
	Confirm string                 `json:"confirm" mapstructure:"confirm"`
}

// componentDoc mirrors one component's JSON layout
type componentDoc struct {
	ID         string                   `json:"id" mapstructure:"id"`
	Type       string                   `json:"type" mapstructure:"type"`
	Properties map[string]interface{}   `json:"properties" mapstructure:"properties"`
	Style      map[string]string        `json:"style" mapstructure:"style"`
	ValueKey   string                   `json:"valueKey" mapstructure:"valueKey"`
	Action     map[string]interface{}   `json:"action" mapstructure:"action"`
	ActionName string                   `json:"actionName" mapstructure:"actionName"`
	Condition  map[string]interface{}   `json:"condition" mapstructure:"condition"`
	Repeat     string                   `json:"repeat" mapstructure:"repeat"`
	Children   []map[string]interface{} `json:"children" mapstructure:"children"`
}

// decodeComponent decodes a single component object and its children.
// Decoding is weakly typed: numbers arriving as strings and bools
// arriving as numbers are coerced rather than rejected, since screen
// JSON is hand-edited during authoring.
func decodeComponent(raw map[string]interface{}) (*Component, error) {
	var doc componentDoc
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("malformed component: %w", err)
	}

	if doc.ID == "" {
		return nil, errMissingField("id")
	}
	if doc.Type == "" {
		return nil, fmt.Errorf("component %q: %w", doc.ID, errMissingField("type"))
	}

	c := &Component{
		ID:         doc.ID,
		Type:       doc.Type,
		Kind:       KindOf(doc.Type),
		Properties: doc.Properties,
		Style:      doc.Style,
		ValueKey:   doc.ValueKey,
		Repeat:     doc.Repeat,
	}

	if c.Properties == nil {
		c.Properties = make(map[string]interface{})
	}

	if c.Kind == KindUnknown {
		c.Raw = raw
	}

	if doc.Action != nil {
		var action ActionSpec
		if err := mapstructure.Decode(doc.Action, &action); err != nil {
			return nil, fmt.Errorf("component %q: malformed action: %w", doc.ID, err)
		}
		if action.Name == "" {
			return nil, fmt.Errorf("component %q: action %w", doc.ID, errMissingField("name"))
		}
		if action.Params == nil {
			action.Params = make(map[string]interface{})
		}
		c.Action = &action
	}

	// actionName is the shorthand form for parameterless actions
	if c.Action == nil && doc.ActionName != "" {
		c.Action = &ActionSpec{
			Name:   doc.ActionName,
			Params: make(map[string]interface{}),
		}
	}

	if doc.Condition != nil {
		condition, err := decodeCondition(doc.Condition)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", doc.ID, err)
		}
		c.Condition = condition
	}

	for i, childRaw := range doc.Children {
		child, err := decodeComponent(childRaw)
		if err != nil {
			return nil, fmt.Errorf("component %q: child %d: %w", doc.ID, i, err)
		}
		c.Children = append(c.Children, child)
	}

	return c, nil
}

// errMissingField reports a required field absent from a JSON object
func errMissingField(field string) error {
	return fmt.Errorf("missing required field %q", field)
}
