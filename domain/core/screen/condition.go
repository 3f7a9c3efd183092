package screen

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ConditionOperator is a comparison supported in visibility conditions
type ConditionOperator string

const (
	OpEquals    ConditionOperator = "equals"
	OpNotEquals ConditionOperator = "notEquals"
	OpExists    ConditionOperator = "exists"
	OpNotExists ConditionOperator = "notExists"
)

// Condition controls whether a component subtree is rendered. Field is a
// binding path resolved against the render context; Value is compared as
// a string after binding resolution.
type Condition struct {
	Field    string            `json:"field" mapstructure:"field"`
	Operator ConditionOperator `json:"operator" mapstructure:"operator"`
	Value    string            `json:"value" mapstructure:"value"`
}

// conditionDoc mirrors a condition's JSON layout. Older authoring tools
// wrote the field key as "path"; both spellings decode.
type conditionDoc struct {
	Field    string            `json:"field" mapstructure:"field"`
	Path     string            `json:"path" mapstructure:"path"`
	Operator ConditionOperator `json:"operator" mapstructure:"operator"`
	Value    string            `json:"value" mapstructure:"value"`
}

// validOperators guards decode. An operator this build does not know
// makes the whole definition malformed; conditions never get the
// unknown-type passthrough that components do.
var validOperators = map[ConditionOperator]bool{
	OpEquals:    true,
	OpNotEquals: true,
	OpExists:    true,
	OpNotExists: true,
}

// decodeCondition decodes and validates a condition object
func decodeCondition(raw map[string]interface{}) (*Condition, error) {
	var doc conditionDoc
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("malformed condition: %w", err)
	}

	condition := Condition{
		Field:    doc.Field,
		Operator: doc.Operator,
		Value:    doc.Value,
	}
	if condition.Field == "" {
		condition.Field = doc.Path
	}

	if condition.Field == "" {
		return nil, fmt.Errorf("condition %w", errMissingField("field"))
	}
	if condition.Operator == "" {
		return nil, fmt.Errorf("condition %w", errMissingField("operator"))
	}
	if !validOperators[condition.Operator] {
		return nil, fmt.Errorf("unsupported condition operator %q", condition.Operator)
	}
	if (condition.Operator == OpEquals || condition.Operator == OpNotEquals) && condition.Value == "" {
		if _, present := raw["value"]; !present {
			return nil, fmt.Errorf("condition operator %q requires a value", condition.Operator)
		}
	}

	return &condition, nil
}

// Evaluate applies the condition to a resolved value. resolved is the
// value at Path after binding resolution; found reports whether the
// path resolved at all.
func (c *Condition) Evaluate(resolved string, found bool) bool {
	switch c.Operator {
	case OpEquals:
		return found && resolved == c.Value
	case OpNotEquals:
		return found && resolved != c.Value
	case OpExists:
		return found && resolved != ""
	case OpNotExists:
		return !found || resolved == ""
	default:
		return false
	}
}
