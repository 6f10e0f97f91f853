package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"
)

// RunMetrics captures the aggregate outcome of a harvest run. It is written
// alongside the employee output so runs can be compared and quota spend audited.
type RunMetrics struct {
	Organization         string  `json:"organization"`
	Timestamp            string  `json:"timestamp"`
	APIRequests          int64   `json:"api_requests"`
	ProfilesFound        int     `json:"profiles_found"`
	QueriesIssued        int     `json:"queries_issued"`
	ResultsDiscarded     int     `json:"results_discarded"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	RunID                string  `json:"run_id"`
}

// Collector tracks run timing and produces the final metrics snapshot.
// The normal exit path and the interrupt path can both reach Finalize;
// only the first call takes the measurement.
type Collector struct {
	org     string
	runID   string
	started time.Time

	mu        sync.Mutex
	finalized bool
	final     RunMetrics
}

// NewCollector starts timing a run for the given organization.
func NewCollector(org string) *Collector {
	return &Collector{
		org:     org,
		runID:   uuid.New().String(),
		started: time.Now(),
	}
}

// Finalize closes the measurement and returns the run metrics. Repeated calls
// return the snapshot from the first.
func (c *Collector) Finalize(apiRequests int64, profiles, queries, discarded int) RunMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		return c.final
	}
	elapsed := time.Since(c.started).Seconds()
	c.final = RunMetrics{
		Organization:         c.org,
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
		APIRequests:          apiRequests,
		ProfilesFound:        profiles,
		QueriesIssued:        queries,
		ResultsDiscarded:     discarded,
		ExecutionTimeSeconds: math.Round(elapsed*100) / 100,
		RunID:                c.runID,
	}
	c.finalized = true
	return c.final
}

// WriteJSON writes the metrics to the provided writer in JSON format.
func WriteJSON(w io.Writer, m RunMetrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	return nil
}

// WriteFile writes the metrics to the given path, replacing any existing file.
func WriteFile(path string, m RunMetrics) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	if err := WriteJSON(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close metrics file: %w", err)
	}
	return nil
}

// WriteText writes a human-readable run summary to the provided writer.
func WriteText(w io.Writer, m RunMetrics) error {
	const textTmpl = `Auger Harvest Summary
---------------------
Organization:   {{.Organization}}
Run ID:         {{.RunID}}
Finished:       {{.Timestamp}}
API Requests:   {{.APIRequests}}
Queries:        {{.QueriesIssued}}
Profiles Found: {{.ProfilesFound}}
Discarded:      {{.ResultsDiscarded}}
Duration:       {{.ExecutionTimeSeconds}}s
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	if err := t.Execute(w, m); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	return nil
}
