package emulator

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-client/internal/receipt"
)

// KeyGenerator names stored files
type KeyGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidKeyGenerator struct{}

func (g *uuidKeyGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service accepts uploads and serves their records
type Service struct {
	db         DB
	storage    Storage
	keys       KeyGenerator
	timeSource TimeSource
}

// NewService creates a new Service with uuid file keys and the wall clock
func NewService(db DB, storage Storage) *Service {
	return NewServiceWithDeps(db, storage, &uuidKeyGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, keys KeyGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:         db,
		storage:    storage,
		keys:       keys,
		timeSource: timeSrc,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// sanitizeFilename makes a client-supplied name safe to store on disk
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaceRuns.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	if unsafeChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	return base + ext
}

// Accept stores the file and creates a pending record for it
func (s *Service) Accept(filename, contentType string, body io.Reader) (*Receipt, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("filename is required")
	}
	now := s.timeSource.Now()

	storedAs := fmt.Sprintf("%s_%s", s.keys.Generate(), sanitizeFilename(filename))
	size, err := s.storage.Save(storedAs, body)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	rec := &Receipt{
		Record: receipt.Record{
			Filename: filename,
			Status:   StatusPending,
		},
		StoredAs:    storedAs,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.CreateReceipt(rec); err != nil {
		if derr := s.storage.Delete(storedAs); derr != nil {
			slog.Warn("Failed to delete file", "stored_as", storedAs, "error", derr)
		}
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Receipt accepted", "id", rec.ID, "filename", filename, "size", size)
	return rec, nil
}

// GetReceipt retrieves a receipt by id
func (s *Service) GetReceipt(id int64) (*Receipt, error) {
	rec, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return rec, nil
}

// ListReceipts returns all receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// Settle records the outcome of processing. An empty status means processed.
func (s *Service) Settle(id int64, st Settlement) (*Receipt, error) {
	rec, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt for settlement: %w", err)
	}

	rec.Status = st.Status
	if rec.Status == "" {
		rec.Status = StatusProcessed
	}
	if st.Merchant != nil {
		rec.Merchant = st.Merchant
	}
	if st.Date != nil {
		rec.Date = st.Date
	}
	if st.Total != nil {
		rec.Total = st.Total
	}
	if st.GroupID != nil {
		rec.GroupID = st.GroupID
	}
	rec.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveReceipt(rec); err != nil {
		return nil, fmt.Errorf("saving settled receipt: %w", err)
	}
	return rec, nil
}
