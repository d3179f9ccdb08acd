package model

import (
	"errors"
	"fmt"
)

// Request errors.
var (
	ErrMissingParams  = errors.New("Missing required parameters")
	ErrMissingText    = errors.New("Missing required parameter: text")
	ErrMissingReplies = errors.New("Missing required parameter: replies")
	ErrBearerMissing  = errors.New("Bearer token not found in request headers")
	ErrNoSelectedFile = errors.New("No selected file")
	ErrFileNotAllowed = errors.New("File type not allowed")
)

// Session errors.
var (
	ErrNotAuthenticated = errors.New("not authenticated with Twitter")
	ErrSessionNotFound  = errors.New("session not found")
)

// ErrNoCompleter is returned when reply generation has no completion client to schedule on.
var ErrNoCompleter = errors.New("no completion client configured")

// UpstreamError is a non-success answer from a third-party API.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
	// Public replaces the default message shown to callers when set.
	Public string
}

func (e *UpstreamError) Error() string {
	if e.Public != "" {
		return e.Public
	}
	if e.Body == "" {
		return fmt.Sprintf("%s API error: status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s API error: %s", e.Service, e.Body)
}
