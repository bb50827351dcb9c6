package journal

import (
	"fmt"
	"strconv"
	"strings"

	// Registered database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect holds the SQL differences between the supported drivers
type Dialect struct {
	Name     string
	idColumn string
	timeType string
	numbered bool
}

var dialects = map[string]Dialect{
	"sqlite3": {
		Name:     "sqlite3",
		idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT",
		timeType: "TIMESTAMP",
	},
	"pgx": {
		Name:     "pgx",
		idColumn: "BIGSERIAL PRIMARY KEY",
		timeType: "TIMESTAMPTZ",
		numbered: true,
	},
	"postgres": {
		Name:     "postgres",
		idColumn: "BIGSERIAL PRIMARY KEY",
		timeType: "TIMESTAMPTZ",
		numbered: true,
	},
}

// Drivers returns the supported driver names
func Drivers() []string {
	return []string{"sqlite3", "pgx", "postgres"}
}

// LookupDialect returns the dialect for a database/sql driver name
func LookupDialect(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownDriver, driver, strings.Join(Drivers(), ", "))
	}
	return d, nil
}

// placeholders returns n bind parameters starting at 1
func (d Dialect) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

func (d Dialect) placeholder(i int) string {
	if d.numbered {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func (d Dialect) createTable() string {
	return `
CREATE TABLE IF NOT EXISTS ` + tableName + ` (
	id ` + d.idColumn + `,
	seq BIGINT NOT NULL,
	recorded_at ` + d.timeType + ` NOT NULL,
	type VARCHAR(32) NOT NULL,
	kind VARCHAR(64) NOT NULL,
	item_id VARCHAR(36) NOT NULL,
	item_kind VARCHAR(64) NOT NULL,
	item VARCHAR(128) NOT NULL,
	field VARCHAR(64) NOT NULL DEFAULT '',
	old_value TEXT,
	new_value TEXT,
	idx INTEGER NOT NULL DEFAULT -1,
	old_idx INTEGER NOT NULL DEFAULT -1,
	new_idx INTEGER NOT NULL DEFAULT -1,
	path TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_` + tableName + `_item_id
ON ` + tableName + `(item_id);
`
}

func (d Dialect) insert() string {
	return `
INSERT INTO ` + tableName + ` (seq, recorded_at, type, kind, item_id, item_kind, item, field, old_value, new_value, idx, old_idx, new_idx, path)
VALUES (` + d.placeholders(14) + `)
`
}

func (d Dialect) list(limit int) string {
	q := `
SELECT id, seq, recorded_at, type, kind, item_id, item_kind, item, field, old_value, new_value, idx, old_idx, new_idx, path
FROM ` + tableName + `
ORDER BY id ASC`
	if limit > 0 {
		q += "\nLIMIT " + strconv.Itoa(limit)
	}
	return q + "\n"
}

func (d Dialect) forItem() string {
	return `
SELECT id, seq, recorded_at, type, kind, item_id, item_kind, item, field, old_value, new_value, idx, old_idx, new_idx, path
FROM ` + tableName + `
WHERE item_id = ` + d.placeholder(1) + `
ORDER BY id ASC
`
}
