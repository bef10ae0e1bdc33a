package receipt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

const (
	msgSelectFile   = "Please select a file."
	msgUploadFailed = "Upload failed. "
)

// The server assigns identifiers; zero is never one of them
var errNoReceiptID = errors.New("no receipt id in response")

// Backend is the receipt API the components talk to
type Backend interface {
	// UploadReceipt sends the file as multipart field "file" and returns the new identifier
	UploadReceipt(ctx context.Context, filename, contentType string, body io.Reader) (*UploadResult, error)

	// GetReceipt fetches the current record for an identifier
	GetReceipt(ctx context.Context, id string) (*Record, error)
}

// UploadComponent submits one receipt file at a time
type UploadComponent struct {
	backend   Backend
	onSuccess func(id int64)

	mu    sync.Mutex
	state UploadState
}

// NewUploadComponent creates an idle upload component.
// onSuccess is called with the new identifier after every successful upload and may be nil.
func NewUploadComponent(backend Backend, onSuccess func(id int64)) *UploadComponent {
	return &UploadComponent{
		backend:   backend,
		onSuccess: onSuccess,
	}
}

// State returns a snapshot of the component
func (u *UploadComponent) State() UploadState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Submit uploads the file. A nil file is rejected locally without a request.
func (u *UploadComponent) Submit(ctx context.Context, file *File) (UploadState, error) {
	u.mu.Lock()
	if u.state.Pending() {
		st := u.state
		u.mu.Unlock()
		return st, ErrInFlight
	}
	if file == nil || file.Body == nil {
		u.state = UploadState{Phase: PhaseFailed, Error: msgSelectFile}
		st := u.state
		u.mu.Unlock()
		return st, nil
	}
	u.state = UploadState{Phase: PhaseSubmitting, Filename: file.Name}
	u.mu.Unlock()

	result, err := u.backend.UploadReceipt(ctx, file.Name, file.ContentType, file.Body)
	if err == nil && (result == nil || result.ID == 0) {
		err = errNoReceiptID
	}

	u.mu.Lock()
	if err != nil {
		slog.Warn("Receipt upload failed", "filename", file.Name, "error", err)
		u.state = UploadState{Phase: PhaseFailed, Filename: file.Name, Error: msgUploadFailed + err.Error()}
		st := u.state
		u.mu.Unlock()
		return st, nil
	}
	u.state = UploadState{Phase: PhaseSuccess, Filename: file.Name, ID: result.ID}
	st := u.state
	u.mu.Unlock()

	slog.Info("Receipt uploaded", "filename", file.Name, "id", result.ID)
	if u.onSuccess != nil {
		u.onSuccess(result.ID)
	}
	return st, nil
}
