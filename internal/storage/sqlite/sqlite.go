package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/auger/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS employees (
	id TEXT NOT NULL,
	name TEXT NOT NULL,
	profile_url TEXT PRIMARY KEY,
	snippet TEXT,
	inferred_emails TEXT NOT NULL,
	role_hints TEXT NOT NULL,
	source_query TEXT,
	found_at DATETIME NOT NULL
);
`

// New creates a SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create employees table: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

// Save upserts the employee keyed by profile URL. The latest write wins.
func (b *sqliteBackend) Save(ctx context.Context, emp *storage.Employee) error {
	emailsJSON, err := marshalList(emp.InferredEmails)
	if err != nil {
		return fmt.Errorf("marshal emails: %w", err)
	}
	hintsJSON, err := marshalList(emp.RoleHints)
	if err != nil {
		return fmt.Errorf("marshal role hints: %w", err)
	}

	query := `
	INSERT INTO employees (
		id, name, profile_url, snippet, inferred_emails, role_hints, source_query, found_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(profile_url) DO UPDATE SET
		id = excluded.id,
		name = excluded.name,
		snippet = excluded.snippet,
		inferred_emails = excluded.inferred_emails,
		role_hints = excluded.role_hints,
		source_query = excluded.source_query,
		found_at = excluded.found_at
	`

	_, err = b.db.ExecContext(ctx, query,
		emp.ID,
		emp.Name,
		emp.ProfileURL,
		emp.Snippet,
		emailsJSON,
		hintsJSON,
		emp.SourceQuery,
		emp.FoundAt,
	)

	if err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Employee, error) {
	query := `SELECT id, name, profile_url, snippet, inferred_emails, role_hints, source_query, found_at FROM employees WHERE 1=1`
	args := []any{}

	if filter.ProfileURL != "" {
		query += ` AND profile_url = ?`
		args = append(args, filter.ProfileURL)
	}
	if filter.HasEmail != nil {
		// Lists are stored normalized, so no emails is always the literal []
		if *filter.HasEmail {
			query += ` AND inferred_emails <> '[]'`
		} else {
			query += ` AND inferred_emails = '[]'`
		}
	}
	if filter.RoleHint != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(employees.role_hints) WHERE lower(json_each.value) = lower(?))`
		args = append(args, filter.RoleHint)
	}
	if filter.Since != nil {
		query += ` AND found_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY found_at DESC`

	if filter.Limit > 0 || filter.Offset > 0 {
		// SQLite requires LIMIT before OFFSET; -1 means unlimited
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ?`
		args = append(args, limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var results []*storage.Employee
	for rows.Next() {
		var e storage.Employee
		var emailsJSON, hintsJSON string

		err := rows.Scan(
			&e.ID, &e.Name, &e.ProfileURL, &e.Snippet,
			&emailsJSON, &hintsJSON, &e.SourceQuery, &e.FoundAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}

		if err := json.Unmarshal([]byte(emailsJSON), &e.InferredEmails); err != nil {
			return nil, fmt.Errorf("unmarshal emails: %w", err)
		}
		if err := json.Unmarshal([]byte(hintsJSON), &e.RoleHints); err != nil {
			return nil, fmt.Errorf("unmarshal role hints: %w", err)
		}

		results = append(results, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}

	return results, nil
}

// Flush is a no-op; every Save is durable on return.
func (b *sqliteBackend) Flush(ctx context.Context) error {
	return nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}

// marshalList normalizes nil to an empty JSON array so SQL filters can rely
// on the [] literal.
func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
