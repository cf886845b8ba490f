package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pcsd-remove-file/internal/exchange"
)

// CodeUnknownType marks requests naming a file type nobody registered
const CodeUnknownType = "unknown_type"

// CodeInvalid marks requests rejected by validation
const CodeInvalid = "invalid"

// RemovalDB manages the SQLite database for removal history
type RemovalDB struct {
	db *sql.DB
}

// RemovalRecord represents a single removal request and its outcome
type RemovalRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	FileType  string    `json:"file_type"`
	FileID    string    `json:"file_id"`
	Action    string    `json:"action"`
	Path      string    `json:"path"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}

// NewRemovalDB creates a new database connection and initializes schema
func NewRemovalDB(dbPath string) (*RemovalDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables DATETIME parsing into time.Time
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Forces file creation so permission problems surface here
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL lets concurrent dispatchers record without blocking readers
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	rdb := &RemovalDB{db: db}
	if err = rdb.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return rdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *RemovalDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS removals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		file_type TEXT NOT NULL,
		file_id TEXT,
		action TEXT,
		path TEXT,
		code TEXT NOT NULL,
		message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_removals_timestamp ON removals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_removals_file_type ON removals(file_type);
	CREATE INDEX IF NOT EXISTS idx_removals_code ON removals(code);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordRemoval stores the outcome of a processed request
func (d *RemovalDB) RecordRemoval(at time.Time, fileType, fileID, action, path string, result exchange.Result) error {
	return d.record(at, fileType, fileID, action, path, string(result.Code), result.Message)
}

// RecordRejected stores a request that never reached the filesystem
func (d *RemovalDB) RecordRejected(at time.Time, fileType, fileID, action, code, reason string) error {
	return d.record(at, fileType, fileID, action, "", code, reason)
}

func (d *RemovalDB) record(at time.Time, fileType, fileID, action, path, code, message string) error {
	_, err := d.db.Exec(`
	INSERT INTO removals (timestamp, file_type, file_id, action, path, code, message)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, at.UTC(), fileType, fileID, action, path, code, message)
	return err
}

// Close closes the database connection
func (d *RemovalDB) Close() error {
	return d.db.Close()
}

// Vacuum reclaims space after pruning
func (d *RemovalDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}
