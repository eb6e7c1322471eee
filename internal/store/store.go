package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for indexed PHP declarations.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT,
  line_count      INTEGER DEFAULT 0,
  has_errors      BOOLEAN DEFAULT FALSE,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS classes (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  lower_name      TEXT NOT NULL,
  kind            TEXT NOT NULL,
  modifiers       INTEGER DEFAULT 0,
  doc_comment     TEXT,
  parent_name     TEXT,
  parent_lower    TEXT,
  signature_hash  TEXT,
  start_line      INTEGER,
  end_line        INTEGER
);

CREATE TABLE IF NOT EXISTS class_interfaces (
  id              INTEGER PRIMARY KEY,
  class_id        INTEGER NOT NULL REFERENCES classes(id),
  name            TEXT NOT NULL,
  lower_name      TEXT NOT NULL,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS constants (
  id              INTEGER PRIMARY KEY,
  class_id        INTEGER NOT NULL REFERENCES classes(id),
  name            TEXT NOT NULL,
  value_kind      TEXT NOT NULL,
  value_text      TEXT
);

CREATE TABLE IF NOT EXISTS methods (
  id              INTEGER PRIMARY KEY,
  class_id        INTEGER NOT NULL REFERENCES classes(id),
  name            TEXT NOT NULL,
  modifiers       INTEGER DEFAULT 0,
  doc_comment     TEXT,
  start_line      INTEGER,
  end_line        INTEGER
);

CREATE TABLE IF NOT EXISTS properties (
  id              INTEGER PRIMARY KEY,
  class_id        INTEGER NOT NULL REFERENCES classes(id),
  name            TEXT NOT NULL,
  modifiers       INTEGER DEFAULT 0,
  doc_comment     TEXT,
  value_kind      TEXT,
  value_text      TEXT
);

CREATE TABLE IF NOT EXISTS parameters (
  id              INTEGER PRIMARY KEY,
  method_id       INTEGER NOT NULL REFERENCES methods(id),
  name            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  by_ref          BOOLEAN DEFAULT FALSE,
  variadic        BOOLEAN DEFAULT FALSE,
  type_hint       TEXT,
  value_kind      TEXT,
  value_text      TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_classes_file ON classes(file_id);
CREATE INDEX IF NOT EXISTS idx_classes_lower ON classes(lower_name);
CREATE INDEX IF NOT EXISTS idx_classes_kind ON classes(kind);
CREATE INDEX IF NOT EXISTS idx_classes_parent ON classes(parent_lower);
CREATE INDEX IF NOT EXISTS idx_class_interfaces_class ON class_interfaces(class_id);
CREATE INDEX IF NOT EXISTS idx_class_interfaces_lower ON class_interfaces(lower_name);
CREATE INDEX IF NOT EXISTS idx_constants_class ON constants(class_id);
CREATE INDEX IF NOT EXISTS idx_methods_class ON methods(class_id);
CREATE INDEX IF NOT EXISTS idx_properties_class ON properties(class_id);
CREATE INDEX IF NOT EXISTS idx_parameters_method ON parameters(method_id);
`

// DeleteFileData transactionally removes a file and every declaration
// extracted from it. Deletes in reverse-dependency order to respect FK
// constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const classesOfFile = `SELECT id FROM classes WHERE file_id = ?`
	for _, q := range []string{
		`DELETE FROM parameters WHERE method_id IN (SELECT id FROM methods WHERE class_id IN (` + classesOfFile + `))`,
		`DELETE FROM methods WHERE class_id IN (` + classesOfFile + `)`,
		`DELETE FROM properties WHERE class_id IN (` + classesOfFile + `)`,
		`DELETE FROM constants WHERE class_id IN (` + classesOfFile + `)`,
		`DELETE FROM class_interfaces WHERE class_id IN (` + classesOfFile + `)`,
		`DELETE FROM classes WHERE file_id = ?`,
		`DELETE FROM files WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}
	return tx.Commit()
}

// GetMetadata returns the value stored under key, or "" if absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMetadata upserts a metadata value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
