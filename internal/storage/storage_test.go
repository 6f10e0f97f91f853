package storage

import (
	"context"
	"testing"
	"time"
)

// ensure Employee compiles and has the fields expected
func TestEmployee_Types(t *testing.T) {
	_ = Employee{
		ID:             "test1234",
		Name:           "Jane Doe",
		ProfileURL:     "https://www.linkedin.com/in/janedoe",
		Snippet:        "Marketing Manager at Acme",
		InferredEmails: []string{"jane.doe@acme.com"},
		RoleHints:      []string{"Marketing"},
		SourceQuery:    `"Acme" Marketing`,
		FoundAt:        time.Now(),
	}

	boolTrue := true
	now := time.Now()
	_ = Filter{
		ProfileURL: "https://www.linkedin.com/in/janedoe",
		HasEmail:   &boolTrue,
		RoleHint:   "Marketing",
		Since:      &now,
		Limit:      10,
		Offset:     0,
	}
}

// Ensure Backend interface exists and is implementable
type mockBackend struct{}

func (m *mockBackend) Save(ctx context.Context, emp *Employee) error { return nil }
func (m *mockBackend) Query(ctx context.Context, filter Filter) ([]*Employee, error) {
	return nil, nil
}
func (m *mockBackend) Flush(ctx context.Context) error { return nil }
func (m *mockBackend) Close() error                    { return nil }

func TestBackendInterface(t *testing.T) {
	var b Backend = &mockBackend{}
	_ = b
}
