package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZaguanLabs/langsys"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Schema creates the registered_items table.
const Schema = `
CREATE TABLE IF NOT EXISTS registered_items (
	category TEXT NOT NULL,
	kind TEXT NOT NULL,
	value TEXT NOT NULL,
	registered_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	PRIMARY KEY (category, kind, value)
);
`

const (
	kindPhrase = "phrase"
	kindBlock  = "block"
)

// SQLiteLedger keeps registered items in a SQLite table, for deployments
// whose cache is volatile.
type SQLiteLedger struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies Schema.
func Open(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	db.SetMaxOpenConns(1)
	l, err := NewSQLiteLedger(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// NewSQLiteLedger uses an open database and applies Schema.
func NewSQLiteLedger(db *sql.DB) (*SQLiteLedger, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Registered returns what was registered for category, in registration order.
func (l *SQLiteLedger) Registered(ctx context.Context, category string) (langsys.RegisteredItems, error) {
	var items langsys.RegisteredItems
	rows, err := l.db.QueryContext(ctx,
		`SELECT kind, value FROM registered_items WHERE category = ? ORDER BY rowid`,
		langsys.CategoryOr(category, ""))
	if err != nil {
		return items, fmt.Errorf("querying registered items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return items, fmt.Errorf("scanning registered item: %w", err)
		}
		switch kind {
		case kindPhrase:
			items.Phrases = append(items.Phrases, value)
		case kindBlock:
			items.ContentBlocks = append(items.ContentBlocks, value)
		}
	}
	return items, rows.Err()
}

// MarkRegistered records phrases and blockIDs for category in one transaction.
func (l *SQLiteLedger) MarkRegistered(ctx context.Context, category string, phrases, blockIDs []string) error {
	category = langsys.CategoryOr(category, "")

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO registered_items (category, kind, value) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing ledger insert: %w", err)
	}
	defer stmt.Close()

	insert := func(kind string, values []string) error {
		for _, v := range values {
			if _, err := stmt.ExecContext(ctx, category, kind, v); err != nil {
				return fmt.Errorf("recording %s: %w", kind, err)
			}
		}
		return nil
	}
	if err := insert(kindPhrase, phrases); err != nil {
		tx.Rollback()
		return err
	}
	if err := insert(kindBlock, blockIDs); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Forget drops every entry of category.
func (l *SQLiteLedger) Forget(ctx context.Context, category string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM registered_items WHERE category = ?`, langsys.CategoryOr(category, ""))
	return err
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

var _ langsys.RegisteredItemsLedger = (*SQLiteLedger)(nil)
