package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/auger/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS employees (
	id TEXT NOT NULL,
	name TEXT NOT NULL,
	profile_url TEXT PRIMARY KEY,
	snippet TEXT,
	inferred_emails JSONB NOT NULL,
	role_hints JSONB NOT NULL,
	source_query TEXT,
	found_at TIMESTAMPTZ NOT NULL
);
`

// New creates a Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create employees table: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

// Save upserts the employee keyed by profile URL. The latest write wins.
func (b *postgresBackend) Save(ctx context.Context, emp *storage.Employee) error {
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
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (profile_url) DO UPDATE SET
		id = EXCLUDED.id,
		name = EXCLUDED.name,
		snippet = EXCLUDED.snippet,
		inferred_emails = EXCLUDED.inferred_emails,
		role_hints = EXCLUDED.role_hints,
		source_query = EXCLUDED.source_query,
		found_at = EXCLUDED.found_at
	`

	_, err = b.pool.Exec(ctx, query,
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

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Employee, error) {
	query := `SELECT id, name, profile_url, snippet, inferred_emails, role_hints, source_query, found_at FROM employees WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.ProfileURL != "" {
		query += fmt.Sprintf(` AND profile_url = $%d`, paramCount)
		args = append(args, filter.ProfileURL)
		paramCount++
	}
	if filter.HasEmail != nil {
		if *filter.HasEmail {
			query += ` AND jsonb_array_length(inferred_emails) > 0`
		} else {
			query += ` AND jsonb_array_length(inferred_emails) = 0`
		}
	}
	if filter.RoleHint != "" {
		query += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM jsonb_array_elements_text(role_hints) AS h WHERE lower(h) = lower($%d))`, paramCount)
		args = append(args, filter.RoleHint)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND found_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY found_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var results []*storage.Employee
	for rows.Next() {
		var e storage.Employee
		var emailsJSON, hintsJSON []byte

		err := rows.Scan(
			&e.ID, &e.Name, &e.ProfileURL, &e.Snippet,
			&emailsJSON, &hintsJSON, &e.SourceQuery, &e.FoundAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}

		if err := json.Unmarshal(emailsJSON, &e.InferredEmails); err != nil {
			return nil, fmt.Errorf("unmarshal emails: %w", err)
		}
		if err := json.Unmarshal(hintsJSON, &e.RoleHints); err != nil {
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
func (b *postgresBackend) Flush(ctx context.Context) error {
	return nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}

// marshalList normalizes nil to an empty JSON array so the JSONB columns
// always hold arrays.
func marshalList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}
