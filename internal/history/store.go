package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one recorded save of a project document.
type Entry struct {
	Seq       int64
	ID        string
	SessionID string
	Location  string
	Members   []string
	Document  []byte
	SavedAt   time.Time
}

// Store keeps save snapshots in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const entryColumns = "seq, id, session_id, location, members_json, document, saved_at"

// Open creates or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry. A missing ID or timestamp is filled in; the stored
// entry is returned with its sequence number.
func (s *Store) Record(ctx context.Context, entry Entry) (*Entry, error) {
	if len(entry.Document) == 0 {
		return nil, errors.New("history entry has no document")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SavedAt.IsZero() {
		entry.SavedAt = time.Now()
	}
	if entry.Members == nil {
		entry.Members = []string{}
	}
	members, err := json.Marshal(entry.Members)
	if err != nil {
		return nil, fmt.Errorf("marshal members: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO saves (id, session_id, location, members_json, document, saved_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		nullableString(entry.SessionID),
		entry.Location,
		string(members),
		entry.Document,
		entry.SavedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert save: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, seq)
}

// Get fetches the entry with sequence number seq, or nil when absent.
func (s *Store) Get(ctx context.Context, seq int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM saves WHERE seq = ?`, seq)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get save: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM saves ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune deletes all but the newest keep entries and reports how many went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM saves WHERE seq NOT IN (SELECT seq FROM saves ORDER BY seq DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune saves: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry     Entry
		sessionID sql.NullString
		members   string
		savedRaw  string
	)
	if err := scanner.Scan(&entry.Seq, &entry.ID, &sessionID, &entry.Location, &members, &entry.Document, &savedRaw); err != nil {
		return nil, err
	}
	entry.SessionID = sessionID.String
	if err := json.Unmarshal([]byte(members), &entry.Members); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}
	savedAt, err := time.Parse(time.RFC3339Nano, savedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse saved_at: %w", err)
	}
	entry.SavedAt = savedAt
	return &entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
