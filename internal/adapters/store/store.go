// Package store implements the encrypted local log store on SQLite.
//
// The store is a single database file whose text columns are sealed with
// XChaCha20-Poly1305 under a key derived from the file's path. It bounds its
// own size by deleting itself once it grows past a limit, and it recovers from
// an unreadable or foreign file by deleting it and starting empty.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/metrics"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/credential"
	"github.com/bft-labs/logship/pkg/log"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultMaxSizeBytes is the rotation threshold when Config.MaxSizeBytes is 0.
const DefaultMaxSizeBytes int64 = 1024 * 1024

const keycheckToken = "logship-keycheck"

// Config configures a Store.
type Config struct {
	// Path is the database file. Its parent directory is created on demand.
	Path string

	// MaxSizeBytes is the file size at which the store rotates.
	MaxSizeBytes int64

	Logger  ports.Logger
	Metrics *metrics.Metrics
}

// Store is the encrypted entry store. The zero value is not usable; call New.
// All operations hold one mutex and the pool is capped at one connection, so
// there is never more than one active statement.
type Store struct {
	path    string
	maxSize int64
	logger  ports.Logger
	metrics *metrics.Metrics
	seal    *sealer

	mu       sync.Mutex
	db       *sql.DB
	shutdown bool
}

var _ ports.EntryStore = (*Store)(nil)

// New derives the store key and returns a closed Store. The file is not
// touched until the first operation or an explicit Open.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: store path is required", domain.ErrInvalidConfig)
	}
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = DefaultMaxSizeBytes
	}

	key, err := credential.ForPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("derive store key: %w", err)
	}
	defer credential.Zero(key)

	seal, err := newSealer(key)
	if err != nil {
		return nil, err
	}

	return &Store{
		path:    cfg.Path,
		maxSize: cfg.MaxSizeBytes,
		logger:  log.Named(cfg.Logger, "store"),
		metrics: cfg.Metrics,
		seal:    seal,
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Size returns the current size of the database file, or 0 if it does not
// exist.
func (s *Store) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Open opens the store, creating it when missing and recreating it when the
// existing file cannot be verified. Calling Open on an open store is a no-op.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(ctx)
}

// Close releases the database handle. It is safe to call more than once; the
// next operation reopens the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// Shutdown closes the store for good. Every later operation fails with
// domain.ErrClosed and the file is never reopened or recreated.
func (s *Store) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil
	}
	s.shutdown = true
	err := s.closeLocked()
	s.seal.close()
	return err
}

// CheckSizeAndRotate deletes the store when its file has reached the size
// limit and reports whether it did. The next operation recreates it empty.
func (s *Store) CheckSizeAndRotate(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotateLocked(ctx)
}

func (s *Store) openLocked(ctx context.Context) error {
	if s.shutdown {
		return domain.ErrClosed
	}
	if s.db != nil {
		return nil
	}

	_, err := os.Stat(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s.create(ctx)
	case err != nil:
		s.logger.Warn("Store file not accessible, recreating",
			ports.String("path", s.path), ports.Err(err))
		return s.recover(ctx)
	}

	db, err := s.openExisting(ctx)
	if err != nil {
		s.logger.Warn("Store file unreadable, recreating",
			ports.String("path", s.path), ports.Err(err))
		return s.recover(ctx)
	}
	s.db = db
	return nil
}

// openExisting connects and checks that the file is an intact store sealed
// with this store's key.
func (s *Store) openExisting(ctx context.Context) (*sql.DB, error) {
	db, err := s.connect(ctx, "rw")
	if err != nil {
		return nil, err
	}
	if err := s.verify(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (s *Store) verify(ctx context.Context, db *sql.DB) error {
	var check string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&check); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if check != "ok" {
		return fmt.Errorf("quick_check: %s", check)
	}

	var tables int
	err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('logs', 'keycheck')`,
	).Scan(&tables)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if tables != 2 {
		return errors.New("schema missing")
	}

	var token []byte
	if err := db.QueryRowContext(ctx, "SELECT token FROM keycheck WHERE id = 1").Scan(&token); err != nil {
		return fmt.Errorf("read keycheck: %w", err)
	}
	got, err := s.seal.open("keycheck.token", token)
	if err != nil {
		return fmt.Errorf("key mismatch: %w", err)
	}
	if got != keycheckToken {
		return errors.New("key mismatch")
	}
	return nil
}

func (s *Store) create(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	db, err := s.connect(ctx, "rwc")
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w", err)
	}
	token, err := s.seal.seal("keycheck.token", keycheckToken)
	if err != nil {
		db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO keycheck (id, token) VALUES (1, ?)", token); err != nil {
		db.Close()
		return fmt.Errorf("write keycheck: %w", err)
	}

	s.db = db
	s.logger.Debug("Store created", ports.String("path", s.path))
	return nil
}

// recover deletes the store file and its journal, then creates a fresh store.
func (s *Store) recover(ctx context.Context) error {
	if err := s.removeFiles(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnrecoverable, err)
	}
	if err := s.create(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnrecoverable, err)
	}
	s.metrics.Recovered()
	return nil
}

func (s *Store) connect(ctx context.Context, mode string) (*sql.DB, error) {
	// A rollback journal keeps every commit in the main file, which is what
	// the change watcher listens to.
	dsn := (&url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(s.path),
		RawQuery: "mode=" + mode + "&_busy_timeout=5000&_journal_mode=DELETE",
	}).String()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func (s *Store) closeLocked() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) rotateLocked(_ context.Context) (bool, error) {
	if s.shutdown {
		return false, domain.ErrClosed
	}
	size, err := s.Size()
	if err != nil {
		return false, fmt.Errorf("stat store: %w", err)
	}
	if size < s.maxSize {
		return false, nil
	}

	if err := s.closeLocked(); err != nil {
		s.logger.Warn("Failed to close store before rotation", ports.Err(err))
	}
	if err := s.removeFiles(); err != nil {
		return false, fmt.Errorf("rotate store: %w", err)
	}
	s.metrics.Rotated()
	s.logger.Info("Store rotated",
		ports.String("path", s.path),
		ports.Int64("size_bytes", size),
		ports.Int64("max_bytes", s.maxSize),
	)
	return true, nil
}

func (s *Store) removeFiles() error {
	for _, p := range []string{s.path, s.path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
