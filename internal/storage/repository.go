// Package storage is the SQLite realtime store. Several processes may share
// one database file; when a notifier is configured they tell each other
// about changes over AMQP so subscriptions in every process stay live.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"spendmate/internal/amqp"
	"spendmate/internal/log"
	"spendmate/internal/store"
)

// Notifier carries change notifications between processes.
type Notifier interface {
	PublishChange(ctx context.Context, path, origin string) error
	ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error
}

type Option func(*SQLiteStore)

// WithNotifier broadcasts local writes and follows remote ones.
func WithNotifier(n Notifier) Option {
	return func(s *SQLiteStore) { s.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l.WithComponent(log.ComponentStorage) }
}

type SQLiteStore struct {
	db       *sql.DB
	hub      *store.Hub
	notifier Notifier
	origin   string
	logger   *log.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ store.Store = (*SQLiteStore)(nil)

// Open opens (or creates) the database at dbPath and migrates it.
func Open(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	version, err := migrateSchema(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		origin: uuid.NewString(),
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentStorage),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = store.NewHub(func(ctx context.Context, path string) (store.Snapshot, error) {
		return store.Load(ctx, s, path)
	})
	s.logger.Debug("SQLite store opened", "db_path", dbPath, "schema_version", version)
	return s, nil
}

// Origin identifies this process in change messages.
func (s *SQLiteStore) Origin() string { return s.origin }

func (s *SQLiteStore) Subscribe(path string) (*store.Subscription, error) {
	return s.hub.Subscribe(path)
}

func (s *SQLiteStore) Read(ctx context.Context, path string) (store.Fields, error) {
	path, err := store.Clean(path)
	if err != nil {
		return nil, err
	}
	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT fields FROM documents WHERE path = ?`, path).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeFields(raw)
}

func (s *SQLiteStore) Children(ctx context.Context, path string) ([]store.Entry, error) {
	path, err := store.Clean(path)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, fields FROM documents WHERE parent = ? ORDER BY seq ASC`, path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	defer rows.Close()

	entries := []store.Entry{}
	for rows.Next() {
		var p, raw string
		if err := rows.Scan(&p, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", p, err)
		}
		entries = append(entries, store.Entry{Key: store.Base(p), Fields: fields})
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Write(ctx context.Context, path string, fields store.Fields) error {
	path, err := store.Clean(path)
	if err != nil {
		return err
	}
	patch, err := encodeFields(fields)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET fields = json_patch(fields, ?), updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE path = ?`, patch, path)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, path)
	}
	s.changed(ctx, path)
	return nil
}

func (s *SQLiteStore) Set(ctx context.Context, path string, fields store.Fields) error {
	path, err := store.Clean(path)
	if err != nil {
		return err
	}
	raw, err := encodeFields(fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (path, parent, fields) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   fields = excluded.fields,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		path, store.Parent(path), raw)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	s.changed(ctx, path)
	return nil
}

func (s *SQLiteStore) Push(ctx context.Context, path string, fields store.Fields) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	child, err := store.Child(path, id.String())
	if err != nil {
		return "", err
	}
	if err := s.Set(ctx, child, fields); err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *SQLiteStore) Remove(ctx context.Context, path string) error {
	path, err := store.Clean(path)
	if err != nil {
		return err
	}
	// Descendants sort between "path/" and "path0" byte-wise.
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE path = ? OR (path >= ? AND path < ?)`,
		path, path+"/", path+"0")
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.changed(ctx, path)
	}
	return nil
}

// Follow applies change notifications from other processes until ctx ends.
// Without a notifier it just waits for ctx.
func (s *SQLiteStore) Follow(ctx context.Context) error {
	if s.notifier == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.notifier.ConsumeChanges(ctx, s.applyRemote)
}

func (s *SQLiteStore) applyRemote(msg *amqp.ChangeMessage) error {
	if msg.Origin == s.origin {
		return nil
	}
	path, err := store.Clean(msg.Path)
	if err != nil {
		return err
	}
	s.hub.Notify(path)
	return nil
}

func (s *SQLiteStore) changed(ctx context.Context, path string) {
	s.hub.Notify(path)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishChange(context.WithoutCancel(ctx), path, s.origin); err != nil {
		s.logger.WarnContext(ctx, "Failed to broadcast change", log.FieldStorePath, path, log.FieldError, err)
	}
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close ends every subscription and closes the database.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		s.hub.Close()
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func encodeFields(f store.Fields) (string, error) {
	if f == nil {
		f = store.Fields{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(b), nil
}

func decodeFields(raw string) (store.Fields, error) {
	f := store.Fields{}
	if strings.TrimSpace(raw) == "" {
		return f, nil
	}
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return f, nil
}
