package ingestserver

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"clipkeeper/internal/prompts"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// DefaultCategory is applied to imported sentences without one.
const DefaultCategory = "General"

// ErrSchemaMismatch indicates the dataset was created by an incompatible version.
var ErrSchemaMismatch = errors.New("dataset schema version mismatch")

// SentenceInput is one entry of an import payload.
type SentenceInput struct {
	Text     string `json:"text" validate:"required,max=1000"`
	Category string `json:"category" validate:"max=100"`
}

// Recording is a stored upload.
type Recording struct {
	ID           int64     `json:"id"`
	SentenceID   int64     `json:"sentenceId"`
	SentenceText string    `json:"sentenceText"`
	UserName     string    `json:"userName"`
	UserGender   string    `json:"userGender"`
	UserAge      string    `json:"userAge"`
	FilePath     string    `json:"path"`
	SizeBytes    int64     `json:"sizeBytes"`
	RequestID    string    `json:"requestId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Dataset stores sentences and recording metadata.
type Dataset struct {
	db   *sql.DB
	path string
}

// OpenDataset initializes or connects to the dataset at path.
func OpenDataset(path string) (*Dataset, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure dataset directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	ds := &Dataset{db: db, path: path}
	if err := ds.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ds, nil
}

// Path returns the dataset file location.
func (d *Dataset) Path() string { return d.path }

// Close closes the database.
func (d *Dataset) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Dataset) initSchema(ctx context.Context) error {
	var tableExists int
	if err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 1 {
		var version int
		if err := d.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version != schemaVersion {
			return fmt.Errorf("%w: dataset has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
		}
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
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
	return tx.Commit()
}

// RandomSentences returns up to limit sentences in random order.
func (d *Dataset) RandomSentences(ctx context.Context, limit int) ([]prompts.Sentence, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, text, category FROM sentences ORDER BY RANDOM() LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query sentences: %w", err)
	}
	defer rows.Close()

	out := make([]prompts.Sentence, 0, limit)
	for rows.Next() {
		var s prompts.Sentence
		if err := rows.Scan(&s.ID, &s.Text, &s.Category); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ImportSentences inserts every entry in one transaction and returns how many
// were stored.
func (d *Dataset) ImportSentences(ctx context.Context, items []SentenceInput) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO sentences (text, category) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		category := strings.TrimSpace(item.Category)
		if category == "" {
			category = DefaultCategory
		}
		if _, err := stmt.ExecContext(ctx, strings.TrimSpace(item.Text), category); err != nil {
			return 0, fmt.Errorf("import sentence %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(items), nil
}

// InsertRecording stores rec and returns its row ID.
func (d *Dataset) InsertRecording(ctx context.Context, rec Recording) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO recordings
		   (sentence_id, sentence_text, user_name, user_gender, user_age, file_path, size_bytes, request_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SentenceID, rec.SentenceText, rec.UserName, rec.UserGender, rec.UserAge,
		rec.FilePath, rec.SizeBytes, nullString(rec.RequestID), rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert recording: %w", err)
	}
	return res.LastInsertId()
}

// Recordings lists the newest recordings first.
func (d *Dataset) Recordings(ctx context.Context, limit int) ([]Recording, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, sentence_id, sentence_text, user_name, user_gender, user_age, file_path, size_bytes,
		        COALESCE(request_id, ''), created_at
		   FROM recordings ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		var (
			rec     Recording
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.SentenceID, &rec.SentenceText, &rec.UserName, &rec.UserGender,
			&rec.UserAge, &rec.FilePath, &rec.SizeBytes, &rec.RequestID, &created); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Counts reports how many sentences and recordings are stored.
func (d *Dataset) Counts(ctx context.Context) (sentences, recordings int, err error) {
	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM sentences").Scan(&sentences); err != nil {
		return 0, 0, fmt.Errorf("count sentences: %w", err)
	}
	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM recordings").Scan(&recordings); err != nil {
		return 0, 0, fmt.Errorf("count recordings: %w", err)
	}
	return sentences, recordings, nil
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
