package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sluice/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases with another version are rejected.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Artifact is one reassembled capture recorded in the catalog.
type Artifact struct {
	ID         int64
	Name       string
	Target     string
	ObjectKey  string
	SizeBytes  int64
	CreatedAt  time.Time
	UploadedAt time.Time
}

// Store persists artifact metadata in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "catalog.db"))
}

// OpenPath opens the catalog at an explicit path, applying pragmas and the
// schema as needed.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record inserts an artifact row and returns it with its assigned id.
func (s *Store) Record(ctx context.Context, artifact Artifact) (*Artifact, error) {
	if artifact.Name == "" {
		return nil, errors.New("artifact name required")
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO artifacts (name, target, object_key, size_bytes, created_at, uploaded_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		artifact.Name,
		artifact.Target,
		nullableString(artifact.ObjectKey),
		artifact.SizeBytes,
		artifact.CreatedAt.UTC().Format(time.RFC3339Nano),
		nullableTime(artifact.UploadedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	artifact.ID = id
	return &artifact, nil
}

// MarkUploaded records the object key and upload time for an artifact.
func (s *Store) MarkUploaded(ctx context.Context, id int64, objectKey string, uploadedAt time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE artifacts SET object_key = ?, uploaded_at = ? WHERE id = ?`,
		objectKey,
		uploadedAt.UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark uploaded: %w", err)
	}
	return nil
}

// List returns artifacts newest first.
func (s *Store) List(ctx context.Context) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, target, object_key, size_bytes, created_at, uploaded_at
         FROM artifacts ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

func scanArtifact(rows *sql.Rows) (*Artifact, error) {
	var (
		artifact   Artifact
		objectKey  sql.NullString
		createdAt  string
		uploadedAt sql.NullString
	)
	if err := rows.Scan(&artifact.ID, &artifact.Name, &artifact.Target, &objectKey, &artifact.SizeBytes, &createdAt, &uploadedAt); err != nil {
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	artifact.ObjectKey = objectKey.String

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	artifact.CreatedAt = parsed

	if uploadedAt.Valid && uploadedAt.String != "" {
		parsed, err := time.Parse(time.RFC3339Nano, uploadedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse uploaded_at: %w", err)
		}
		artifact.UploadedAt = parsed
	}
	return &artifact, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
