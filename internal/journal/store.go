// Package journal persists feed notifications to a SQL table so a run of the
// tree can be inspected afterwards.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/cascade/internal/feed"
)

const tableName = "cascade_journal"

var (
	// ErrUnknownDriver is returned for a driver without a dialect
	ErrUnknownDriver = errors.New("journal: unknown driver")

	// ErrClosed is returned when the store was closed
	ErrClosed = errors.New("journal: store closed")
)

// Entry is one persisted notification
type Entry struct {
	ID         int64
	Seq        uint64
	RecordedAt time.Time
	Type       string
	Kind       string
	ItemID     string
	ItemKind   string
	Item       string
	Field      string
	Old        string // JSON
	New        string // JSON
	Index      int
	OldIndex   int
	NewIndex   int
	Path       string
}

// FromNotification converts a notification into an entry. Old and New are
// stored as JSON; a nil value is stored as an empty string.
func FromNotification(n feed.Notification) (*Entry, error) {
	old, err := encodeValue(n.Old)
	if err != nil {
		return nil, fmt.Errorf("failed to encode old value of %s: %w", n.Field, err)
	}
	nw, err := encodeValue(n.New)
	if err != nil {
		return nil, fmt.Errorf("failed to encode new value of %s: %w", n.Field, err)
	}
	return &Entry{
		Seq:        n.Seq,
		RecordedAt: n.At,
		Type:       string(n.Type),
		Kind:       string(n.Kind),
		ItemID:     n.ItemID,
		ItemKind:   string(n.ItemKind),
		Item:       n.Item,
		Field:      n.Field,
		Old:        old,
		New:        nw,
		Index:      n.Index,
		OldIndex:   n.OldIndex,
		NewIndex:   n.NewIndex,
		Path:       strings.Join(n.Path, PathSeparator),
	}, nil
}

// PathSeparator joins path labels in the path column
const PathSeparator = " > "

func encodeValue(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Store reads and writes journal entries
type Store struct {
	db      *sql.DB
	dialect Dialect
	closed  bool
}

// NewStore creates a new journal store on an open database
func NewStore(db *sql.DB, driver string) (*Store, error) {
	d, err := LookupDialect(driver)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: d}, nil
}

// Open opens the database and verifies the connection
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, err := LookupDialect(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s journal: %w", driver, err)
	}
	if driver == "sqlite3" {
		// In-memory sqlite databases exist per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s journal: %w", driver, err)
	}
	return &Store{db: db, dialect: d}, nil
}

// Dialect returns the store's SQL dialect
func (s *Store) Dialect() Dialect { return s.dialect }

// Initialize ensures the journal table exists
func (s *Store) Initialize(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable()); err != nil {
		return fmt.Errorf("failed to initialize journal table: %w", err)
	}
	return nil
}

// Append inserts an entry
func (s *Store) Append(ctx context.Context, e *Entry) error {
	if s.closed {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx, s.dialect.insert(),
		int64(e.Seq), e.RecordedAt, e.Type, e.Kind, e.ItemID, e.ItemKind, e.Item, e.Field,
		nullable(e.Old), nullable(e.New), e.Index, e.OldIndex, e.NewIndex, e.Path,
	)
	if err != nil {
		return fmt.Errorf("failed to append journal entry %d: %w", e.Seq, err)
	}
	return nil
}

// List returns entries in insertion order. A limit of zero or less returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.query(ctx, s.dialect.list(limit))
}

// ForItem returns the entries whose origin is the item with the given id
func (s *Store) ForItem(ctx context.Context, itemID string) ([]*Entry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.query(ctx, s.dialect.forItem(), itemID)
}

// Count returns the number of stored entries
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return count, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var seq int64
		var old, nw sql.NullString
		if err := rows.Scan(&e.ID, &seq, &e.RecordedAt, &e.Type, &e.Kind, &e.ItemID, &e.ItemKind,
			&e.Item, &e.Field, &old, &nw, &e.Index, &e.OldIndex, &e.NewIndex, &e.Path); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Seq = uint64(seq)
		if old.Valid {
			e.Old = old.String
		}
		if nw.Valid {
			e.New = nw.String
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}
	return entries, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
