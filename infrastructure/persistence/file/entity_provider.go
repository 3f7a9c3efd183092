package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fieldui/application/ports"

	"go.uber.org/zap"
)

// EntityProvider serves entity snapshots from JSON files, one file per
// entity under a scope directory:
//
//	entities/
//	  job/
//	    J-1042.json
//	  customer/
//	    C-88.json
//
// On a device these files are written by the data sync layer; the
// interpreter only ever reads them.
type EntityProvider struct {
	dir    string
	logger *zap.Logger
}

// NewEntityProvider creates a file-backed entity provider
func NewEntityProvider(dir string, logger *zap.Logger) *EntityProvider {
	return &EntityProvider{dir: dir, logger: logger}
}

var _ ports.EntityProvider = (*EntityProvider)(nil)

// Snapshot loads the snapshot for an entity, false when no file exists
func (p *EntityProvider) Snapshot(ctx context.Context, scope, entityID string) (ports.EntitySnapshot, bool) {
	path := filepath.Join(p.dir, scope, entityID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Warn("failed to read entity snapshot",
				zap.String("scope", scope),
				zap.String("entity_id", entityID),
				zap.Error(err),
			)
		}
		return nil, false
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		p.logger.Warn("malformed entity snapshot",
			zap.String("scope", scope),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return nil, false
	}

	return &jsonSnapshot{id: entityID, fields: fields}, true
}

// jsonSnapshot resolves dot paths over a decoded JSON object
type jsonSnapshot struct {
	id     string
	fields map[string]interface{}
}

var _ ports.EntitySnapshot = (*jsonSnapshot)(nil)

// ID returns the entity identifier
func (s *jsonSnapshot) ID() string {
	return s.id
}

// Field resolves a dot path to its string rendering
func (s *jsonSnapshot) Field(path string) (string, bool) {
	value, ok := resolvePath(s.fields, path)
	if !ok {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case nil:
		return "", false
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// Items resolves a dot path to a list of child snapshots. Rows without
// an "id" field get their list index as ID.
func (s *jsonSnapshot) Items(path string) ([]ports.EntitySnapshot, bool) {
	value, ok := resolvePath(s.fields, path)
	if !ok {
		return nil, false
	}

	list, ok := value.([]interface{})
	if !ok {
		return nil, false
	}

	items := make([]ports.EntitySnapshot, 0, len(list))
	for i, raw := range list {
		fields, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		id := strconv.Itoa(i)
		if declared, ok := fields["id"].(string); ok && declared != "" {
			id = declared
		}
		items = append(items, &jsonSnapshot{id: id, fields: fields})
	}
	return items, true
}

// resolvePath walks a dot path through nested JSON objects
func resolvePath(fields map[string]interface{}, path string) (interface{}, bool) {
	current := interface{}(fields)
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
