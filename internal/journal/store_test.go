package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/feed"
	"github.com/conduit-lang/cascade/internal/kanban"
)

var entryColumns = []string{
	"id", "seq", "recorded_at", "type", "kind", "item_id", "item_kind", "item",
	"field", "old_value", "new_value", "idx", "old_idx", "new_idx", "path",
}

func setupMockStore(t *testing.T, driver string) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewStore(db, driver)
	require.NoError(t, err)
	return db, mock, store
}

func sampleNotification() feed.Notification {
	return feed.Notification{
		Seq:      7,
		At:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Type:     feed.Updated,
		Kind:     kanban.KindCard,
		ItemID:   "0b6f4c1e-1c1d-4b59-9b59-5d3f4f0b2a11",
		ItemKind: kanban.KindCard,
		Item:     "card:0b6f4c1e",
		Field:    "title",
		Old:      "Write docs",
		New:      "Write the docs",
		Index:    -1,
		OldIndex: -1,
		NewIndex: -1,
		Path:     []string{"column:11111111", "board:22222222"},
	}
}

func TestNewStore_UnknownDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewStore(db, "mysql")
	assert.ErrorIs(t, err, ErrUnknownDriver)
	assert.Contains(t, err.Error(), "sqlite3, pgx, postgres")
}

func TestDialect_Placeholders(t *testing.T) {
	sqlite, err := LookupDialect("sqlite3")
	require.NoError(t, err)
	pg, err := LookupDialect("pgx")
	require.NoError(t, err)
	pq, err := LookupDialect("postgres")
	require.NoError(t, err)

	assert.Equal(t, "?, ?, ?", sqlite.placeholders(3))
	assert.Equal(t, "$1, $2, $3", pg.placeholders(3))
	assert.Contains(t, pq.insert(), "$14")
	assert.NotContains(t, sqlite.insert(), "$")
	assert.Contains(t, sqlite.createTable(), "AUTOINCREMENT")
	assert.Contains(t, pg.createTable(), "BIGSERIAL")
	assert.Contains(t, sqlite.list(5), "LIMIT 5")
	assert.NotContains(t, sqlite.list(0), "LIMIT")
}

func TestFromNotification(t *testing.T) {
	e, err := FromNotification(sampleNotification())
	require.NoError(t, err)

	assert.Equal(t, uint64(7), e.Seq)
	assert.Equal(t, "updated", e.Type)
	assert.Equal(t, `"Write docs"`, e.Old)
	assert.Equal(t, `"Write the docs"`, e.New)
	assert.Equal(t, "column:11111111 > board:22222222", e.Path)

	n := sampleNotification()
	n.Old, n.New = nil, 3
	e, err = FromNotification(n)
	require.NoError(t, err)
	assert.Empty(t, e.Old)
	assert.Equal(t, "3", e.New)

	n.New = make(chan int)
	_, err = FromNotification(n)
	assert.Error(t, err)
}

func TestStore_Initialize(t *testing.T) {
	db, mock, store := setupMockStore(t, "postgres")
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS cascade_journal`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Initialize(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InitializeError(t *testing.T) {
	db, mock, store := setupMockStore(t, "sqlite3")
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("disk full"))

	err := store.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize journal table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Append(t *testing.T) {
	db, mock, store := setupMockStore(t, "sqlite3")
	defer db.Close()

	e, err := FromNotification(sampleNotification())
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO cascade_journal`).
		WithArgs(
			int64(7), sqlmock.AnyArg(), "updated", "card", e.ItemID, "card", e.Item, "title",
			`"Write docs"`, `"Write the docs"`, -1, -1, -1, e.Path,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Append(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_List(t *testing.T) {
	db, mock, store := setupMockStore(t, "pgx")
	defer db.Close()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(entryColumns).
		AddRow(1, 1, at, "item_added", "card", "id-1", "card", "card:aaaa", "", nil, nil, 0, -1, -1, "column:bbbb").
		AddRow(2, 2, at, "updated", "card", "id-1", "card", "card:aaaa", "done", "false", "true", -1, -1, -1, "column:bbbb")
	mock.ExpectQuery(`SELECT (.+) FROM cascade_journal\s+ORDER BY id ASC\s+LIMIT 2`).WillReturnRows(rows)

	entries, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(1), entries[0].ID)
	assert.Equal(t, "item_added", entries[0].Type)
	assert.Empty(t, entries[0].Old)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, "true", entries[1].New)
	assert.Equal(t, at, entries[1].RecordedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ForItem(t *testing.T) {
	db, mock, store := setupMockStore(t, "postgres")
	defer db.Close()

	mock.ExpectQuery(`WHERE item_id = \$1`).
		WithArgs("id-9").
		WillReturnRows(sqlmock.NewRows(entryColumns))

	entries, err := store.ForItem(context.Background(), "id-9")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListQueryError(t *testing.T) {
	db, mock, store := setupMockStore(t, "sqlite3")
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrConnDone)

	_, err := store.List(context.Background(), 0)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestStore_Count(t *testing.T) {
	db, mock, store := setupMockStore(t, "sqlite3")
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM cascade_journal`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Closed(t *testing.T) {
	_, mock, store := setupMockStore(t, "sqlite3")
	mock.ExpectClose()

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	ctx := context.Background()
	assert.ErrorIs(t, store.Initialize(ctx), ErrClosed)
	assert.ErrorIs(t, store.Append(ctx, &Entry{}), ErrClosed)
	_, err := store.List(ctx, 0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.Count(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_KeepsFirstError(t *testing.T) {
	db, mock, store := setupMockStore(t, "sqlite3")
	defer db.Close()

	mock.ExpectExec(`INSERT INTO cascade_journal`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO cascade_journal`).WillReturnError(errors.New("first"))
	mock.ExpectExec(`INSERT INTO cascade_journal`).WillReturnError(errors.New("second"))

	r := NewRecorder(context.Background(), store, zap.NewNop())
	for i := 0; i < 3; i++ {
		r.Record(sampleNotification())
	}

	assert.Equal(t, 1, r.Written())
	assert.Equal(t, 2, r.Failed())
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "first")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, "sqlite3", ":memory:")
	if err != nil {
		t.Skip("sqlite3 not available:", err)
	}
	defer store.Close()

	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, store.Initialize(ctx))

	board, err := kanban.Seed(nil)
	require.NoError(t, err)

	r := NewRecorder(ctx, store, nil)
	sub := feed.Subscribe(board, r.Record, feed.WithoutBefore())
	require.NoError(t, kanban.Run(board, kanban.Scenario()))
	sub.Close()
	require.NoError(t, r.Err())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Written(), count)

	entries, err := store.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, "updated", entries[0].Type)
	assert.Equal(t, `"Write the docs"`, entries[0].New)

	perItem, err := store.ForItem(ctx, entries[0].ItemID)
	require.NoError(t, err)
	assert.NotEmpty(t, perItem)
}
