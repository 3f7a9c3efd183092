package validators

import (
	"encoding/json"
	"fmt"
	"strings"

	"fieldui/domain/config"
	"fieldui/domain/core/screen"
	"fieldui/pkg/errors"
)

// ScreenValidator validates decoded screen definitions against the
// structural rules a device can safely render
type ScreenValidator struct {
	maxDepth          int
	maxChildren       int
	maxComponents     int
	requireUniqueIDs  bool
	allowUnknownTypes bool
}

// NewScreenValidator creates a screen validator from domain configuration
func NewScreenValidator(cfg *config.DomainConfig) *ScreenValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &ScreenValidator{
		maxDepth:          cfg.MaxComponentDepth,
		maxChildren:       cfg.MaxChildrenPerNode,
		maxComponents:     cfg.MaxComponentsPerScreen,
		requireUniqueIDs:  cfg.RequireUniqueComponentIDs,
		allowUnknownTypes: cfg.AllowUnknownComponentTypes,
	}
}

// ValidateDefinition validates the whole definition and collects every
// violation rather than stopping at the first
func (v *ScreenValidator) ValidateDefinition(def *screen.Definition) error {
	validationErrors := errors.NewValidationErrors()

	if def.Screen == "" {
		validationErrors.Add("screen", "screen name is required")
	}
	if def.SchemaVersion < 1 {
		validationErrors.Add("schemaVersion", "schema version must be at least 1")
	}
	if def.Root == nil {
		validationErrors.Add("root", "root component is required")
		return validationErrors.AsError()
	}

	if count := def.ComponentCount(); count > v.maxComponents {
		validationErrors.AddError(errors.NewDomainError(
			errors.DomainStructuralError,
			"TOO_MANY_COMPONENTS",
			fmt.Sprintf("Screen exceeds maximum of %d components", v.maxComponents),
		).WithDetail("count", count))
	}

	seen := make(map[string]bool)
	def.Walk(func(c *screen.Component, depth int) bool {
		v.validateComponent(c, depth, seen, validationErrors)
		return true
	})

	return validationErrors.AsError()
}

// validateComponent checks one component in place
func (v *ScreenValidator) validateComponent(c *screen.Component, depth int, seen map[string]bool, validationErrors *errors.ValidationErrors) {
	if depth > v.maxDepth {
		validationErrors.AddError(errors.NewDomainError(
			errors.DomainStructuralError,
			"MAX_DEPTH_EXCEEDED",
			fmt.Sprintf("Component %q nested deeper than %d levels", c.ID, v.maxDepth),
		).WithDetail("component_id", c.ID).WithDetail("depth", depth))
	}

	if len(c.Children) > v.maxChildren {
		validationErrors.AddError(errors.NewDomainError(
			errors.DomainStructuralError,
			"TOO_MANY_CHILDREN",
			fmt.Sprintf("Component %q has more than %d children", c.ID, v.maxChildren),
		).WithDetail("component_id", c.ID).WithDetail("children", len(c.Children)))
	}

	if v.requireUniqueIDs {
		if seen[c.ID] {
			validationErrors.AddError(errors.NewDomainError(
				errors.DomainStructuralError,
				"DUPLICATE_COMPONENT_ID",
				fmt.Sprintf("Component ID %q appears more than once", c.ID),
			).WithDetail("component_id", c.ID))
		}
		seen[c.ID] = true
	}

	if !v.allowUnknownTypes && c.Kind == screen.KindUnknown {
		validationErrors.AddError(errors.NewDomainError(
			errors.DomainStructuralError,
			"UNKNOWN_COMPONENT_TYPE",
			fmt.Sprintf("Component %q has unknown type %q", c.ID, c.Type),
		).WithDetail("component_id", c.ID).WithDetail("type", c.Type))
	}

	if c.Kind == screen.KindInput && c.ValueKey == "" {
		validationErrors.Add("valueKey", fmt.Sprintf("input component %q must declare a valueKey", c.ID))
	}

	if c.Repeat != "" && c.Kind != screen.KindContainer {
		validationErrors.Add("repeat", fmt.Sprintf("component %q: repeat is only valid on containers", c.ID))
	}

	if c.Kind == screen.KindConditional && c.Condition == nil {
		validationErrors.Add("condition", fmt.Sprintf("conditional component %q must declare a condition", c.ID))
	}
}

// ActionValidator validates action dispatches before they enter the queue
type ActionValidator struct {
	maxPayloadBytes     int
	maxInputValueLength int
}

// NewActionValidator creates an action validator from domain configuration
func NewActionValidator(cfg *config.DomainConfig) *ActionValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &ActionValidator{
		maxPayloadBytes:     cfg.MaxPayloadBytes,
		maxInputValueLength: cfg.MaxInputValueLength,
	}
}

// ValidateDispatch validates an action name and its resolved payload
func (v *ActionValidator) ValidateDispatch(actionName string, payload map[string]interface{}) error {
	if strings.TrimSpace(actionName) == "" {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"ACTION_NAME_REQUIRED",
			"Action name cannot be empty",
		)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"PAYLOAD_NOT_SERIALIZABLE",
			"Action payload cannot be serialized",
		).WithCause(err)
	}

	if len(encoded) > v.maxPayloadBytes {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"PAYLOAD_TOO_LARGE",
			fmt.Sprintf("Action payload exceeds %d bytes", v.maxPayloadBytes),
		).WithDetail("size", len(encoded)).WithDetail("limit", v.maxPayloadBytes)
	}

	for key, value := range payload {
		if s, ok := value.(string); ok && len(s) > v.maxInputValueLength {
			return errors.NewDomainError(
				errors.DomainValidationError,
				"PAYLOAD_VALUE_TOO_LONG",
				fmt.Sprintf("Payload value for %q exceeds %d characters", key, v.maxInputValueLength),
			).WithDetail("key", key)
		}
	}

	return nil
}

// InputValidator validates values before they enter the input store
type InputValidator struct {
	maxValueLength int
}

// NewInputValidator creates an input validator from domain configuration
func NewInputValidator(cfg *config.DomainConfig) *InputValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &InputValidator{
		maxValueLength: cfg.MaxInputValueLength,
	}
}

// ValidateValue validates a captured input value
func (v *InputValidator) ValidateValue(valueKey string, value interface{}) error {
	if strings.TrimSpace(valueKey) == "" {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"VALUE_KEY_REQUIRED",
			"Input value key cannot be empty",
		)
	}

	if s, ok := value.(string); ok && len(s) > v.maxValueLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"INPUT_VALUE_TOO_LONG",
			fmt.Sprintf("Input value for %q exceeds %d characters", valueKey, v.maxValueLength),
		).WithDetail("value_key", valueKey)
	}

	return nil
}
