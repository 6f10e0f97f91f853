package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/auger/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"name",
	"profile_url",
	"snippet",
	"emails_json",
	"role_hints_json",
	"source_query",
	"found_at",
}

// New creates a CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	// Open file for appending, create if it doesn't exist
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	// Check if file is empty to write headers
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv file: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

// Save appends a row for the employee. The file is append-only, so repeated
// saves for the same profile URL land as separate rows and Query resolves
// them to the latest one.
func (b *csvBackend) Save(ctx context.Context, emp *storage.Employee) error {
	emailsJSON, err := json.Marshal(emp.InferredEmails)
	if err != nil {
		return fmt.Errorf("marshal emails: %w", err)
	}
	hintsJSON, err := json.Marshal(emp.RoleHints)
	if err != nil {
		return fmt.Errorf("marshal role hints: %w", err)
	}

	record := []string{
		emp.ID,
		emp.Name,
		emp.ProfileURL,
		emp.Snippet,
		string(emailsJSON),
		string(hintsJSON),
		emp.SourceQuery,
		emp.FoundAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Ensure we're at the end of the file for appending (just in case)
	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek csv file: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Employee, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Seek to the beginning of the file to read all entries
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek csv file: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Read headers
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.Employee{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	// First pass collapses duplicate profile URLs, later rows superseding
	// earlier ones in place.
	var allRows []*storage.Employee
	index := map[string]int{}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}

		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		var emails []string
		if err := json.Unmarshal([]byte(record[4]), &emails); err != nil {
			emails = nil
		}
		var hints []string
		if err := json.Unmarshal([]byte(record[5]), &hints); err != nil {
			hints = nil
		}
		foundAt, _ := time.Parse(time.RFC3339Nano, record[7])

		emp := &storage.Employee{
			ID:             record[0],
			Name:           record[1],
			ProfileURL:     record[2],
			Snippet:        record[3],
			InferredEmails: emails,
			RoleHints:      hints,
			SourceQuery:    record[6],
			FoundAt:        foundAt,
		}

		if i, ok := index[emp.ProfileURL]; ok {
			allRows[i] = emp
			continue
		}
		index[emp.ProfileURL] = len(allRows)
		allRows = append(allRows, emp)
	}

	var allFiltered []*storage.Employee
	for _, emp := range allRows {
		// Apply filters
		if filter.ProfileURL != "" && emp.ProfileURL != filter.ProfileURL {
			continue
		}
		if filter.HasEmail != nil && (len(emp.InferredEmails) > 0) != *filter.HasEmail {
			continue
		}
		if filter.RoleHint != "" && !hasHint(emp.RoleHints, filter.RoleHint) {
			continue
		}
		if filter.Since != nil && emp.FoundAt.Before(*filter.Since) {
			continue
		}

		allFiltered = append(allFiltered, emp)
	}

	// Order by insertion DESC (reverse the slice)
	for i, j := 0, len(allFiltered)-1; i < j; i, j = i+1, j-1 {
		allFiltered[i], allFiltered[j] = allFiltered[j], allFiltered[i]
	}

	// Apply Offset
	if filter.Offset > 0 {
		if filter.Offset >= len(allFiltered) {
			return []*storage.Employee{}, nil
		}
		allFiltered = allFiltered[filter.Offset:]
	}

	// Apply Limit
	if filter.Limit > 0 && filter.Limit < len(allFiltered) {
		allFiltered = allFiltered[:filter.Limit]
	}

	return allFiltered, nil
}

// Flush forces appended rows to disk. Rows are already written per Save, so
// this only fsyncs.
func (b *csvBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Sync()
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

func hasHint(hints []string, hint string) bool {
	for _, h := range hints {
		if strings.EqualFold(h, hint) {
			return true
		}
	}
	return false
}
