package valueobjects

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// InputKey identifies an input value: the component's valueKey plus the
// entity the screen was opened for. Two jobs editing the same form field
// never collide.
type InputKey struct {
	ValueKey string
	EntityID string
}

// NewInputKey creates an InputKey
func NewInputKey(valueKey, entityID string) (InputKey, error) {
	if valueKey == "" {
		return InputKey{}, errors.New("value key cannot be empty")
	}
	return InputKey{ValueKey: valueKey, EntityID: entityID}, nil
}

// String returns the canonical storage key
func (k InputKey) String() string {
	return k.ValueKey + "#" + k.EntityID
}

// InputValue is a value object holding a captured form value. Screen JSON
// is weakly typed, so the underlying value may be a string, number, bool,
// or a list of strings (multi-select inputs).
type InputValue struct {
	raw       interface{}
	capturedAt time.Time
}

// NewInputValue creates an InputValue captured now
func NewInputValue(raw interface{}) InputValue {
	return InputValue{raw: raw, capturedAt: time.Now()}
}

// NewInputValueAt creates an InputValue with an explicit capture time,
// used when rehydrating from the on-device store
func NewInputValueAt(raw interface{}, capturedAt time.Time) InputValue {
	return InputValue{raw: raw, capturedAt: capturedAt}
}

// Raw returns the underlying value
func (v InputValue) Raw() interface{} {
	return v.raw
}

// CapturedAt returns when the value was captured
func (v InputValue) CapturedAt() time.Time {
	return v.capturedAt
}

// IsZero checks if the value was never set
func (v InputValue) IsZero() bool {
	return v.raw == nil && v.capturedAt.IsZero()
}

// String renders the value for binding substitution. Numbers render
// without a trailing ".0" when integral, matching how the authoring tool
// writes them.
func (v InputValue) String() string {
	switch val := v.raw.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case []string:
		out := ""
		for i, s := range val {
			if i > 0 {
				out += ","
			}
			out += s
		}
		return out
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Bool returns the value as a bool, with ok=false when it is not boolean
func (v InputValue) Bool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

// Float returns the value as a float64, with ok=false when it is not numeric
func (v InputValue) Float() (float64, bool) {
	switch val := v.raw.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
