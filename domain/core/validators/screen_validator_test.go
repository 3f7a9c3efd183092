package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldui/domain/config"
	"fieldui/domain/core/screen"
)

func decodeScreen(t *testing.T, data string) *screen.Definition {
	t.Helper()
	def, err := screen.DecodeDefinition([]byte(data))
	require.NoError(t, err)
	return def
}

func TestScreenValidator_ValidDefinition(t *testing.T) {
	def := decodeScreen(t, `{
		"screen": "job_detail",
		"schemaVersion": 1,
		"root": {
			"id": "root",
			"type": "container",
			"children": [
				{"id": "notes", "type": "textInput", "valueKey": "notes"},
				{"id": "gate", "type": "conditional",
					"condition": {"path": "entity.status", "operator": "equals", "value": "active"},
					"children": [{"id": "warning", "type": "text"}]}
			]
		}
	}`)

	v := NewScreenValidator(nil)
	assert.NoError(t, v.ValidateDefinition(def))
}

func TestScreenValidator_CollectsAllViolations(t *testing.T) {
	def := decodeScreen(t, `{
		"screen": "job_detail",
		"schemaVersion": 1,
		"root": {
			"id": "root",
			"type": "container",
			"children": [
				{"id": "dup", "type": "textInput"},
				{"id": "dup", "type": "text", "repeat": "entity.items"},
				{"id": "gate", "type": "conditional"}
			]
		}
	}`)

	v := NewScreenValidator(nil)
	err := v.ValidateDefinition(def)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "valueKey", "input without valueKey")
	assert.Contains(t, msg, "repeat", "repeat on a non-container")
	assert.Contains(t, msg, "condition", "conditional without condition")
	assert.Contains(t, strings.ToLower(msg), "dup", "duplicate component id")
}

func TestScreenValidator_DepthLimit(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxComponentDepth = 2

	def := decodeScreen(t, `{
		"screen": "s",
		"schemaVersion": 1,
		"root": {"id": "a", "type": "container", "children": [
			{"id": "b", "type": "container", "children": [
				{"id": "c", "type": "container", "children": [
					{"id": "d", "type": "text"}
				]}
			]}
		]}
	}`)

	v := NewScreenValidator(cfg)
	err := v.ValidateDefinition(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deeper")
}

func TestScreenValidator_UnknownTypesGatedByConfig(t *testing.T) {
	def := decodeScreen(t, `{
		"screen": "s",
		"schemaVersion": 1,
		"root": {"id": "root", "type": "container", "children": [
			{"id": "x", "type": "holographicDisplay"}
		]}
	}`)

	permissive := config.DefaultDomainConfig()
	permissive.AllowUnknownComponentTypes = true
	assert.NoError(t, NewScreenValidator(permissive).ValidateDefinition(def))

	strict := config.DefaultDomainConfig()
	strict.AllowUnknownComponentTypes = false
	assert.Error(t, NewScreenValidator(strict).ValidateDefinition(def))
}

func TestActionValidator_ValidateDispatch(t *testing.T) {
	v := NewActionValidator(nil)

	assert.NoError(t, v.ValidateDispatch("complete_job", map[string]interface{}{"jobId": "job-42"}))
	assert.Error(t, v.ValidateDispatch("  ", nil))
}

func TestActionValidator_PayloadLimits(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxPayloadBytes = 64
	cfg.MaxInputValueLength = 8

	v := NewActionValidator(cfg)

	err := v.ValidateDispatch("complete_job", map[string]interface{}{
		"notes": strings.Repeat("x", 100),
	})
	require.Error(t, err)

	err = v.ValidateDispatch("complete_job", map[string]interface{}{
		"notes": "123456789",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes")
}

func TestInputValidator_ValidateValue(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxInputValueLength = 5

	v := NewInputValidator(cfg)

	assert.NoError(t, v.ValidateValue("notes", "short"))
	assert.NoError(t, v.ValidateValue("count", 42))
	assert.Error(t, v.ValidateValue("", "x"))
	assert.Error(t, v.ValidateValue("notes", "too long"))
}
