package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(8888)
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	// Record activity to verify metrics format correctly
	RecordRequest("200", 1*time.Second)
	RecordProfile()
	RecordDiscard("listing_page")

	resp, err := http.Get("http://localhost:8888/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	if !strings.Contains(output, `auger_api_requests_total{status="200"}`) {
		t.Errorf("expected auger_api_requests_total metric")
	}

	if !strings.Contains(output, "auger_request_duration_seconds_bucket") {
		t.Errorf("expected auger_request_duration_seconds metric")
	}

	if !strings.Contains(output, "auger_profiles_total") {
		t.Errorf("expected auger_profiles_total metric")
	}

	if !strings.Contains(output, `auger_discarded_results_total{reason="listing_page"}`) {
		t.Errorf("expected auger_discarded_results_total metric")
	}
}
