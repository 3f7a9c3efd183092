package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// ActionID is a value object representing a unique pending action identifier.
// It is assigned on the device at enqueue time so the server can deduplicate
// replayed submissions.
// Value objects are immutable and have no identity beyond their value
type ActionID struct {
	value string
}

// NewActionID creates a new random ActionID
func NewActionID() ActionID {
	return ActionID{value: uuid.New().String()}
}

// NewActionIDFromString creates an ActionID from an existing string
func NewActionIDFromString(id string) (ActionID, error) {
	if id == "" {
		return ActionID{}, errors.New("action ID cannot be empty")
	}
	if !isValidUUID(id) {
		return ActionID{}, errors.New("action ID must be a valid UUID")
	}
	return ActionID{value: id}, nil
}

// String returns the string representation of the ActionID
func (id ActionID) String() string {
	return id.value
}

// Equals checks if two ActionIDs are equal
func (id ActionID) Equals(other ActionID) bool {
	return id.value == other.value
}

// IsZero checks if the ActionID is the zero value
func (id ActionID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ActionID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ActionID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ActionID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
