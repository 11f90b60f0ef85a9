// Package localstore provides the on-device fallback persistence used
// when no authenticated remote session is available or reachable. The
// task snapshot is a single named slot overwritten wholesale on every
// save; chat history and notifications are stored alongside it.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pvu/tasksync/internal/model"
)

// snapshotKey is the fixed logical key the task snapshot is stored under.
const snapshotKey = "tasks"

// Store persists the local fallback state in a SQLite database.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) a SQLite database at dbPath, enables WAL mode,
// and runs any pending schema migrations.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// LoadSnapshot reads the persisted task snapshot. It never fails: a
// missing slot or an undecodable blob yields an empty list so the
// caller always gets a usable seed.
func (s *Store) LoadSnapshot(ctx context.Context) []model.Task {
	var data string
	err := s.db.GetContext(ctx, &data,
		"SELECT data FROM snapshots WHERE key = ?", snapshotKey)
	if err != nil {
		return nil
	}

	var tasks []model.Task
	if err := json.Unmarshal([]byte(data), &tasks); err != nil {
		log.Printf("localstore: discarding undecodable snapshot: %v", err)
		return nil
	}
	return tasks
}

// SaveSnapshot overwrites the snapshot slot with the full task list.
// Persistence is best-effort; a returned error is logged by the caller
// and never rolls back in-memory state.
func (s *Store) SaveSnapshot(ctx context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		snapshotKey, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// AppendChatMessage persists a single chat message. Generates an ID if
// the message has none.
func (s *Store) AppendChatMessage(ctx context.Context, msg model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, role, content, created_at)
		VALUES (?, ?, ?, ?)`,
		msg.ID, string(msg.Role), msg.Content, msg.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending chat message: %w", err)
	}
	return nil
}

// ChatMessages returns the stored conversation ordered by creation time
// ascending.
func (s *Store) ChatMessages(ctx context.Context) ([]model.ChatMessage, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, role, content, created_at FROM chat_messages ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.ChatMessage
	for rows.Next() {
		var (
			msg       model.ChatMessage
			role      string
			createdAt time.Time
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chat message row: %w", err)
		}
		msg.Role = model.Role(role)
		msg.CreatedAt = createdAt
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

// CreateNotification inserts a new notification record.
func (s *Store) CreateNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, task_id, message, read, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.TaskID, n.Message, boolToInt(n.Read), n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// Notifications retrieves all notifications ordered by creation time
// descending.
func (s *Store) Notifications(ctx context.Context) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, task_id, message, read, created_at FROM notifications ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var (
			n         model.Notification
			readInt   int
			createdAt time.Time
		)
		if err := rows.Scan(&n.ID, &n.TaskID, &n.Message, &readInt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		n.Read = readInt != 0
		n.CreatedAt = createdAt
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
