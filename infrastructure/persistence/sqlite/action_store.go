package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fieldui/application/ports"
	"fieldui/domain/core/entities"
	"fieldui/domain/core/valueobjects"
	pkgerrors "fieldui/pkg/errors"

	_ "modernc.org/sqlite"
)

// ActionStore is the on-device durable queue, backed by SQLite. Actions
// must survive app restarts and crashes between capture and sync.
type ActionStore struct {
	db *sql.DB
}

// Open opens (or creates) the store at path
func Open(path string) (*ActionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	// The replayer and the dispatcher share this database; a single
	// connection sidesteps SQLITE_BUSY on concurrent writes
	db.SetMaxOpenConns(1)

	store := &ActionStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewActionStore wraps an existing database handle, used by tests with
// an in-memory database
func NewActionStore(db *sql.DB) (*ActionStore, error) {
	store := &ActionStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

var _ ports.PendingActionStore = (*ActionStore)(nil)

func (s *ActionStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS pending_actions (
        action_id   TEXT PRIMARY KEY,
        device_id   TEXT NOT NULL,
        user_id     TEXT,
        action_name TEXT NOT NULL,
        screen      TEXT,
        entity_id   TEXT,
        payload     JSON,
        status      TEXT NOT NULL,
        attempts    INTEGER NOT NULL DEFAULT 0,
        last_error  TEXT,
        created_at  DATETIME NOT NULL,
        updated_at  DATETIME NOT NULL,
        synced_at   DATETIME
    );
    CREATE INDEX IF NOT EXISTS idx_pending_actions_status
        ON pending_actions (status, created_at);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Close closes the underlying database
func (s *ActionStore) Close() error {
	return s.db.Close()
}

// Enqueue persists a newly captured action
func (s *ActionStore) Enqueue(ctx context.Context, action *entities.PendingAction) error {
	payloadJSON, err := json.Marshal(action.Payload())
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	query := `INSERT INTO pending_actions (
		action_id, device_id, user_id, action_name, screen, entity_id,
		payload, status, attempts, last_error, created_at, updated_at, synced_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		action.ID().String(),
		action.DeviceID(),
		action.UserID(),
		action.ActionName(),
		action.Screen(),
		action.EntityID(),
		string(payloadJSON),
		string(action.Status()),
		action.Attempts(),
		action.LastError(),
		formatTime(action.CreatedAt()),
		formatTime(action.UpdatedAt()),
		formatTime(action.SyncedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert action: %w", err)
	}
	return nil
}

const actionColumns = `action_id, device_id, user_id, action_name, screen, entity_id,
	payload, status, attempts, last_error, created_at, updated_at, synced_at`

// Get retrieves an action by ID
func (s *ActionStore) Get(ctx context.Context, id valueobjects.ActionID) (*entities.PendingAction, error) {
	query := `SELECT ` + actionColumns + ` FROM pending_actions WHERE action_id = ?`

	row := s.db.QueryRowContext(ctx, query, id.String())
	action, err := scanAction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, pkgerrors.NewNotFoundError("action")
		}
		return nil, err
	}
	return action, nil
}

// NextPending returns up to limit actions awaiting sync, oldest first
func (s *ActionStore) NextPending(ctx context.Context, limit int) ([]*entities.PendingAction, error) {
	query := `SELECT ` + actionColumns + `
		FROM pending_actions
		WHERE status IN (?, ?)
		ORDER BY created_at ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query,
		string(entities.StatusPending),
		string(entities.StatusFailedRetryable),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanActions(rows)
}

// Update persists a state transition
func (s *ActionStore) Update(ctx context.Context, action *entities.PendingAction) error {
	query := `UPDATE pending_actions
		SET status = ?, attempts = ?, last_error = ?, updated_at = ?, synced_at = ?
		WHERE action_id = ?`

	result, err := s.db.ExecContext(ctx, query,
		string(action.Status()),
		action.Attempts(),
		action.LastError(),
		formatTime(action.UpdatedAt()),
		formatTime(action.SyncedAt()),
		action.ID().String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update action: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return pkgerrors.NewNotFoundError("action")
	}
	return nil
}

// List returns actions filtered by status, oldest first
func (s *ActionStore) List(ctx context.Context, status entities.ActionStatus, limit int) ([]*entities.PendingAction, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if status == "" {
		query := `SELECT ` + actionColumns + ` FROM pending_actions ORDER BY created_at ASC LIMIT ?`
		rows, err = s.db.QueryContext(ctx, query, limit)
	} else {
		query := `SELECT ` + actionColumns + ` FROM pending_actions WHERE status = ? ORDER BY created_at ASC LIMIT ?`
		rows, err = s.db.QueryContext(ctx, query, string(status), limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanActions(rows)
}

// CountByStatus returns the number of actions per status
func (s *ActionStore) CountByStatus(ctx context.Context) (map[entities.ActionStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM pending_actions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[entities.ActionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[entities.ActionStatus(status)] = count
	}
	return counts, rows.Err()
}

// DeleteSynced removes synced actions beyond the keep newest
func (s *ActionStore) DeleteSynced(ctx context.Context, keep int) (int, error) {
	query := `DELETE FROM pending_actions
		WHERE status = ?
		AND action_id NOT IN (
			SELECT action_id FROM pending_actions
			WHERE status = ?
			ORDER BY synced_at DESC
			LIMIT ?
		)`

	result, err := s.db.ExecContext(ctx, query,
		string(entities.StatusSynced),
		string(entities.StatusSynced),
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune synced actions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAction(row rowScanner) (*entities.PendingAction, error) {
	var (
		actionID    string
		deviceID    string
		userID      sql.NullString
		actionName  string
		screenName  sql.NullString
		entityID    sql.NullString
		payloadJSON sql.NullString
		status      string
		attempts    int
		lastError   sql.NullString
		createdAt   string
		updatedAt   string
		syncedAt    sql.NullString
	)

	if err := row.Scan(&actionID, &deviceID, &userID, &actionName, &screenName,
		&entityID, &payloadJSON, &status, &attempts, &lastError,
		&createdAt, &updatedAt, &syncedAt); err != nil {
		return nil, err
	}

	id, err := valueobjects.NewActionIDFromString(actionID)
	if err != nil {
		return nil, fmt.Errorf("corrupt action row %q: %w", actionID, err)
	}

	var payload map[string]interface{}
	if payloadJSON.Valid && payloadJSON.String != "" {
		if err := json.Unmarshal([]byte(payloadJSON.String), &payload); err != nil {
			return nil, fmt.Errorf("corrupt payload for action %q: %w", actionID, err)
		}
	}

	return entities.ReconstructPendingAction(
		id,
		deviceID,
		userID.String,
		actionName,
		screenName.String,
		entityID.String,
		payload,
		entities.ActionStatus(status),
		attempts,
		lastError.String,
		parseTime(createdAt),
		parseTime(updatedAt),
		parseTime(syncedAt.String),
	)
}

func scanActions(rows *sql.Rows) ([]*entities.PendingAction, error) {
	var actions []*entities.PendingAction
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
