package receipt

import (
	"errors"
	"io"
)

// ErrInFlight is returned when a component is asked to submit while its
// previous request has not resolved yet
var ErrInFlight = errors.New("request already in progress")

// Phase is the lifecycle position of a component
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// File is a user-selected upload
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadState is a snapshot of the upload component.
// ID is set only in PhaseSuccess, Error only in PhaseFailed.
type UploadState struct {
	Phase    Phase
	Filename string
	ID       int64
	Error    string
}

// Pending reports whether the submit control must be disabled
func (s UploadState) Pending() bool {
	return s.Phase == PhaseSubmitting
}

// Succeeded reports whether ID holds a freshly assigned identifier
func (s UploadState) Succeeded() bool {
	return s.Phase == PhaseSuccess
}

// StatusState is a snapshot of the status component.
// Input is what the user last typed; Default is the identifier handed down
// from the most recent upload.
type StatusState struct {
	Phase   Phase
	Input   string
	Default string
	Record  *Record
	Error   string
}

// Value is the identifier shown in the input field
func (s StatusState) Value() string {
	if s.Input != "" {
		return s.Input
	}
	return s.Default
}

// Pending reports whether a lookup is in flight
func (s StatusState) Pending() bool {
	return s.Phase == PhaseSubmitting
}

// SubmitDisabled mirrors the check button: off while pending or with nothing to look up
func (s StatusState) SubmitDisabled() bool {
	return s.Pending() || s.Value() == ""
}
