package models

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigurationError lists every required setting that is missing or invalid.
type ConfigurationError struct {
	Missing []string
	Invalid map[string]string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	keys := make([]string, 0, len(e.Invalid))
	for key := range e.Invalid {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("invalid %s: %s", key, e.Invalid[key]))
	}
	return "config: " + strings.Join(parts, "; ")
}

// QueryFailure is one error entry reported by the reporting service.
type QueryFailure struct {
	Message   string
	FieldPath []string
	// Codes maps error code type (e.g. "queryError") to its value.
	Codes map[string]string
}

// UpstreamQueryError is returned when the reporting service rejects the query.
type UpstreamQueryError struct {
	StatusCode int
	Status     string
	Message    string
	RequestID  string
	Failures   []QueryFailure
	Err        error
}

func (e *UpstreamQueryError) Error() string {
	msg := e.Message
	if msg == "" && len(e.Failures) > 0 {
		msg = e.Failures[0].Message
	}
	if e.Err != nil {
		if msg == "" {
			return fmt.Sprintf("report query: %v", e.Err)
		}
		return fmt.Sprintf("report query: %s: %v", msg, e.Err)
	}
	return fmt.Sprintf("report query: %d %s: %s", e.StatusCode, e.Status, msg)
}

func (e *UpstreamQueryError) Unwrap() error { return e.Err }

// QuoteServiceError describes a failed quote lookup for one route.
type QuoteServiceError struct {
	Route      Route
	StatusCode int
	Err        error
}

func (e *QuoteServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("quote %s: status %d: %v", e.Route, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("quote %s: %v", e.Route, e.Err)
}

func (e *QuoteServiceError) Unwrap() error { return e.Err }

// SchemaError is returned when a feed row lacks an expected attribute slot.
type SchemaError struct {
	Row   string
	Field string
	Slot  int64
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("feed row %s: attribute %q (slot %d) not present", e.Row, e.Field, e.Slot)
}

// WriteError wraps a failure to produce the report file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("report %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
