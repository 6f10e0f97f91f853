// Package cse provides access to the Google Custom Search JSON API. It exposes
// a Provider interface so the harvesting pipeline can run against stub
// implementations in tests, and maps non-OK API responses to typed errors that
// callers can branch on.
package cse

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Result is a single item returned by a Custom Search query. The API returns
// both plain and HTML-decorated variants of the title and snippet; the HTML
// variants carry <b> highlighting around query terms.
type Result struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	HTMLTitle   string `json:"htmlTitle"`
	Snippet     string `json:"snippet"`
	HTMLSnippet string `json:"htmlSnippet"`
}

// DisplayTitle returns the plain title, falling back to the HTML title with
// markup stripped when the API omitted the plain variant.
func (r Result) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return stripMarkup(r.HTMLTitle)
}

// DisplaySnippet returns the plain snippet, falling back to the HTML snippet
// with markup stripped.
func (r Result) DisplaySnippet() string {
	if r.Snippet != "" {
		return r.Snippet
	}
	return stripMarkup(r.HTMLSnippet)
}

// stripMarkup removes tags and decodes entities from an HTML fragment.
func stripMarkup(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// searchResponse is the subset of the API response body the harvester
// consumes. A page past the end of the result set carries no items key at all.
type searchResponse struct {
	Items []Result `json:"items"`
}

// Provider abstracts a paged search backend. The start parameter is the
// 1-based index of the first result to return. Implementations return an empty
// slice for pages past the end of the result set.
type Provider interface {
	Search(ctx context.Context, query string, start int) ([]Result, error)
}

// ThrottleError reports that the API refused the request because of rate
// limiting or quota exhaustion. Callers should stop paging the current query
// but may continue with the rest of the plan after backing off.
type ThrottleError struct {
	StatusCode int
	Reason     string
}

func (e *ThrottleError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("search api throttled (status %d, reason %s)", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("search api throttled (status %d)", e.StatusCode)
}

// AuthError reports that the API rejected the configured credentials. Retrying
// with the same key and engine ID cannot succeed, so callers should abort.
type AuthError struct {
	StatusCode int
	Reason     string
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("search api rejected credentials (status %d, reason %s)", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("search api rejected credentials (status %d)", e.StatusCode)
}

// TransientError wraps failures that do not condemn the whole run: network
// errors, unreadable responses, and server-side 5xx statuses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient search failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
