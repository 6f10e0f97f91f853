package cse

import "testing"

func TestResultDisplay(t *testing.T) {
	// Plain fields win when present
	r := Result{
		Title:     "Jane Doe - Engineer - Acme | LinkedIn",
		HTMLTitle: "<b>Jane</b> Doe - Engineer - Acme | LinkedIn",
		Snippet:   "Jane builds things at Acme.",
	}
	if got := r.DisplayTitle(); got != "Jane Doe - Engineer - Acme | LinkedIn" {
		t.Errorf("expected plain title, got %q", got)
	}
	if got := r.DisplaySnippet(); got != "Jane builds things at Acme." {
		t.Errorf("expected plain snippet, got %q", got)
	}

	// Markup is stripped and entities decoded when only the HTML variant exists
	r = Result{HTMLTitle: "<b>Jane</b> Doe &amp; Co"}
	if got := r.DisplayTitle(); got != "Jane Doe & Co" {
		t.Errorf("expected stripped title, got %q", got)
	}

	r = Result{HTMLSnippet: "Senior <b>Engineer</b> at Acme Corp."}
	if got := r.DisplaySnippet(); got != "Senior Engineer at Acme Corp." {
		t.Errorf("expected stripped snippet, got %q", got)
	}

	// Empty result stays empty
	r = Result{}
	if got := r.DisplayTitle(); got != "" {
		t.Errorf("expected empty title, got %q", got)
	}
}
