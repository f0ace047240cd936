package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskapi/internal/models"
	"taskapi/internal/storage"
)

// Store keeps task documents and user credentials in SQLite. Each task is a
// single row with its subtasks embedded as a JSON array, so every write to a
// task and its subtasks is atomic.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
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

	s := New(conn, logger)
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.logger.Info("sqlite store ready", slog.String("path", dbPath))
	return s, nil
}

// New wraps an already opened connection without migrating it.
func New(conn *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: conn, logger: logger}
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
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
		`CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL CHECK (length(trim(title)) > 0),
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL CHECK (status IN ('ticket', 'check', 'in-progress', 'complete')),
            sub_tasks TEXT NOT NULL DEFAULT '[]',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);`,
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const taskColumns = `id, title, description, status, sub_tasks, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (models.Task, error) {
	var (
		t        models.Task
		subTasks string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &subTasks, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Task{}, err
	}
	if err := json.Unmarshal([]byte(subTasks), &t.SubTasks); err != nil {
		return models.Task{}, fmt.Errorf("decode subtasks of %s: %w", t.ID, err)
	}
	if t.SubTasks == nil {
		t.SubTasks = []models.SubTask{}
	}
	return t, nil
}

// ListTasks returns every task in creation order.
func (s *Store) ListTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// CreateTask inserts a new task with an empty subtask list.
func (s *Store) CreateTask(ctx context.Context, d models.TaskDetails) (models.Task, error) {
	if !d.Check() {
		return models.Task{}, fmt.Errorf("insert task: invalid document")
	}

	now := time.Now().UTC()
	t := models.Task{
		ID:          primitive.NewObjectID().Hex(),
		TaskDetails: d,
		SubTasks:    []models.SubTask{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks(id, title, description, status, sub_tasks, created_at, updated_at) VALUES(?, ?, ?, ?, '[]', ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, t.ID)
}

// UpdateTask applies the supplied patch fields to the task.
func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	return s.mutateTask(ctx, id, func(t *models.Task) error {
		patch.Apply(&t.TaskDetails)
		return nil
	})
}

// PushSubTask appends a subtask with a fresh id to the task.
func (s *Store) PushSubTask(ctx context.Context, id string, d models.TaskDetails) (models.Task, error) {
	return s.mutateTask(ctx, id, func(t *models.Task) error {
		t.SubTasks = append(t.SubTasks, models.SubTask{
			ID:          primitive.NewObjectID().Hex(),
			TaskDetails: d,
		})
		return nil
	})
}

// UpdateSubTask applies the patch to the subtask matched by subID only.
func (s *Store) UpdateSubTask(ctx context.Context, id, subID string, patch models.TaskPatch) (models.Task, error) {
	return s.mutateTask(ctx, id, func(t *models.Task) error {
		sub, ok := t.SubTask(subID)
		if !ok {
			return fmt.Errorf("subtask %s: %w", subID, storage.ErrNotFound)
		}
		patch.Apply(&sub.TaskDetails)
		return nil
	})
}

// mutateTask loads a task, lets fn change it and writes the whole document
// back inside one transaction.
func (s *Store) mutateTask(ctx context.Context, id string, fn func(*models.Task) error) (models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}

	if err := fn(&t); err != nil {
		return models.Task{}, err
	}

	if !t.Check() {
		return models.Task{}, fmt.Errorf("update task %s: invalid document", id)
	}
	for _, sub := range t.SubTasks {
		if !sub.Check() {
			return models.Task{}, fmt.Errorf("update task %s: invalid subtask %s", id, sub.ID)
		}
	}

	subTasks, err := json.Marshal(t.SubTasks)
	if err != nil {
		return models.Task{}, fmt.Errorf("encode subtasks: %w", err)
	}
	t.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, status = ?, sub_tasks = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, string(t.Status), string(subTasks), t.UpdatedAt, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

// DeleteTask removes a task together with its subtasks.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// CreateUser stores a new account. Usernames are unique.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (models.User, error) {
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, username, password_hash, created_at, updated_at) VALUES(?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("user %q: %w", username, storage.ErrDuplicate)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// FindUserByUsername looks an account up by its username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
