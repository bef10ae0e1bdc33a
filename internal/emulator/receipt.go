package emulator

import (
	"time"

	"github.com/zombor/receipt-client/internal/receipt"
)

// Status values the emulator assigns on its own. Settle accepts any string.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
)

// Receipt is a stored upload: the public record plus where the bytes live
type Receipt struct {
	receipt.Record
	StoredAs    string    `json:"stored_as"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Settlement is what the processing worker would write back once it is done.
// A nil field leaves the stored value unchanged.
type Settlement struct {
	Status   string         `json:"status"`
	Merchant *string        `json:"merchant"`
	Date     *string        `json:"date"`
	Total    *receipt.Total `json:"total"`
	GroupID  *int64         `json:"group_id"`
}
