package storage

import (
	"context"
	"time"
)

// Employee represents a single public profile discovered during a harvest run.
type Employee struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ProfileURL     string    `json:"profile_url"`
	Snippet        string    `json:"snippet"`
	InferredEmails []string  `json:"inferred_emails"`
	RoleHints      []string  `json:"role_hints,omitempty"`
	SourceQuery    string    `json:"source_query"`
	FoundAt        time.Time `json:"found_at"`
}

// Filter allows querying for specific Employees.
type Filter struct {
	ProfileURL string
	HasEmail   *bool
	RoleHint   string
	Since      *time.Time
	Limit      int
	Offset     int
}

// Backend defines the interface for storing and querying discovered profiles.
// Save upserts by ProfileURL. Flush forces buffered backends to write out;
// backends that persist on every Save treat it as a no-op.
type Backend interface {
	Save(ctx context.Context, emp *Employee) error
	Query(ctx context.Context, filter Filter) ([]*Employee, error)
	Flush(ctx context.Context) error
	Close() error
}
