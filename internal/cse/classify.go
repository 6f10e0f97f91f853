package cse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// apiError mirrors the error envelope the Custom Search JSON API wraps around
// non-OK responses.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

func parseAPIError(body []byte) (reason, message string) {
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", ""
	}
	if len(envelope.Error.Errors) > 0 {
		reason = envelope.Error.Errors[0].Reason
	}
	return reason, envelope.Error.Message
}

// Classifier examines a non-OK API response and maps it to a typed error.
// A nil return means the classifier did not recognize the response.
type Classifier func(status int, body []byte) error

// DefaultClassifiers returns the standard list of response classifiers.
// Throttle detection runs first because quota exhaustion surfaces as 403,
// which would otherwise read as a credential failure.
func DefaultClassifiers() []Classifier {
	return []Classifier{
		classifyThrottle,
		classifyAuth,
		classifyServer,
	}
}

// Classify runs the response through all provided classifiers and returns the
// first match. Unrecognized responses come back as transient failures.
func Classify(status int, body []byte, classifiers []Classifier) error {
	for _, c := range classifiers {
		if err := c(status, body); err != nil {
			return err
		}
	}
	return &TransientError{Err: fmt.Errorf("unexpected status %d", status)}
}

var throttleReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"dailyLimitExceeded":    true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// classifyThrottle looks for rate limit and quota exhaustion responses.
func classifyThrottle(status int, body []byte) error {
	if status == http.StatusTooManyRequests {
		reason, _ := parseAPIError(body)
		return &ThrottleError{StatusCode: status, Reason: reason}
	}
	if status == http.StatusForbidden {
		reason, message := parseAPIError(body)
		if throttleReasons[reason] || strings.Contains(message, "Quota exceeded") {
			return &ThrottleError{StatusCode: status, Reason: reason}
		}
	}
	return nil
}

var authReasons = map[string]bool{
	"keyInvalid":          true,
	"accessNotConfigured": true,
	"forbidden":           true,
	"invalid":             true,
}

// classifyAuth looks for rejected or misconfigured credentials. Any 400 or 401
// qualifies; a 403 qualifies only with a known credential reason, since the
// remaining 403s are ambiguous and better treated as transient.
func classifyAuth(status int, body []byte) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized:
		reason, _ := parseAPIError(body)
		return &AuthError{StatusCode: status, Reason: reason}
	case http.StatusForbidden:
		reason, _ := parseAPIError(body)
		if authReasons[reason] {
			return &AuthError{StatusCode: status, Reason: reason}
		}
	}
	return nil
}

// classifyServer treats server-side errors as transient.
func classifyServer(status int, body []byte) error {
	if status >= http.StatusInternalServerError {
		return &TransientError{Err: fmt.Errorf("server error %d", status)}
	}
	return nil
}
