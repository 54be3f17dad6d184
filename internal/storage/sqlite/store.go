package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"mesada/internal/models"
)

// ErrNotFound is returned when a row does not exist or is not owned by the
// caller. Ownership mismatches are indistinguishable from missing rows on
// purpose: every query is filtered by user id.
var ErrNotFound = errors.New("not found")

// Store wraps access to the SQLite database and exposes high level helpers.
// It is the durable source of truth and assigns every entity identifier.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            assigned_to TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            points INTEGER NOT NULL DEFAULT 10,
            due_date DATETIME,
            category TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS whatsapp_messages (
            id TEXT PRIMARY KEY,
            user_id TEXT,
            sender TEXT NOT NULL,
            sender_name TEXT NOT NULL,
            content TEXT NOT NULL,
            message_type TEXT NOT NULL DEFAULT 'user',
            timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS children (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            name TEXT NOT NULL,
            age INTEGER NOT NULL DEFAULT 0,
            avatar TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user ON whatsapp_messages(user_id, timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_children_user ON children(user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// CreateUser persists a new account with an already-hashed password.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.User{}, fmt.Errorf("email must not be empty")
	}

	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, email, name, password_hash, created_at) VALUES(?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail fetches an account for login.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListTasks returns all tasks owned by the user, newest first.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, title, description, assigned_to, status, points, due_date, category, created_at, updated_at
        FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a new task for the owning user and returns the persisted
// record with its assigned id and timestamps.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}
	if t.UserID == "" {
		return models.Task{}, fmt.Errorf("task owner must not be empty")
	}
	if _, ok := models.ValidTaskStatuses[t.Status]; !ok {
		t.Status = models.StatusPending
	}
	if t.Points <= 0 {
		t.Points = models.DefaultTaskPoints
	}

	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks(id, user_id, title, description, assigned_to, status, points, due_date, category, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, t.AssignedTo, t.Status, t.Points, t.DueDate, t.Category, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// GetTask retrieves a task by id, scoped to its owner.
func (s *Store) GetTask(ctx context.Context, id, userID string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, title, description, assigned_to, status, points, due_date, category, created_at, updated_at
        FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask applies a partial update to an owned task and returns the
// persisted record.
func (s *Store) UpdateTask(ctx context.Context, id, userID string, changes map[string]any) (models.Task, error) {
	current, err := s.GetTask(ctx, id, userID)
	if err != nil {
		return models.Task{}, err
	}

	if v, ok := changes["title"].(string); ok && strings.TrimSpace(v) != "" {
		current.Title = strings.TrimSpace(v)
	}
	if v, ok := changes["description"].(string); ok {
		current.Description = strings.TrimSpace(v)
	}
	if v, ok := changes["assigned_to"].(string); ok {
		current.AssignedTo = v
	}
	if v, ok := changes["status"].(string); ok {
		if _, valid := models.ValidTaskStatuses[v]; valid {
			current.Status = v
		}
	}
	if v, ok := changes["points"].(int64); ok && v > 0 {
		current.Points = v
	}
	if v, ok := changes["due_date"].(*time.Time); ok {
		current.DueDate = v
	}
	if v, ok := changes["category"].(string); ok {
		current.Category = v
	}
	current.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, assigned_to = ?, status = ?, points = ?, due_date = ?, category = ?, updated_at = ?
        WHERE id = ? AND user_id = ?`,
		current.Title, current.Description, current.AssignedTo, current.Status, current.Points, current.DueDate, current.Category, current.UpdatedAt, id, userID)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	return current, nil
}

// DeleteTask removes an owned task by id.
func (s *Store) DeleteTask(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListMessages returns up to limit messages for the user, newest first.
func (s *Store) ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, COALESCE(user_id, ''), sender, sender_name, content, message_type, timestamp
        FROM whatsapp_messages WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.SenderName, &m.Content, &m.MessageType, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// InsertMessage persists a chat message. An empty user id is stored as NULL,
// which is how webhook-originated rows arrive.
func (s *Store) InsertMessage(ctx context.Context, m models.Message) (models.Message, error) {
	if strings.TrimSpace(m.Content) == "" {
		return models.Message{}, fmt.Errorf("message content must not be empty")
	}
	if m.MessageType == "" {
		m.MessageType = models.MessageTypeUser
	}

	m.ID = uuid.NewString()
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	var owner any
	if m.UserID != "" {
		owner = m.UserID
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO whatsapp_messages(id, user_id, sender, sender_name, content, message_type, timestamp)
        VALUES(?, ?, ?, ?, ?, ?, ?)`,
		m.ID, owner, m.Sender, m.SenderName, m.Content, m.MessageType, m.Timestamp)
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// CountMessages returns the total number of stored messages, owned or not.
func (s *Store) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM whatsapp_messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// ListChildren returns the user's children ordered by creation date.
func (s *Store) ListChildren(ctx context.Context, userID string) ([]models.Child, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, name, age, avatar, created_at
        FROM children WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		var c models.Child
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Age, &c.Avatar, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

// CreateChild persists a new child profile for the user.
func (s *Store) CreateChild(ctx context.Context, c models.Child) (models.Child, error) {
	if strings.TrimSpace(c.Name) == "" {
		return models.Child{}, fmt.Errorf("child name must not be empty")
	}
	if c.UserID == "" {
		return models.Child{}, fmt.Errorf("child owner must not be empty")
	}

	c.ID = uuid.NewString()
	c.Name = strings.TrimSpace(c.Name)
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `INSERT INTO children(id, user_id, name, age, avatar, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Age, c.Avatar, c.CreatedAt)
	if err != nil {
		return models.Child{}, fmt.Errorf("insert child: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	var due sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.AssignedTo, &t.Status, &t.Points, &due, &t.Category, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return t, nil
}
