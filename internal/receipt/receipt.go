package receipt

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// PlaceholderNotFound is shown for extracted fields the backend has not filled yet
	PlaceholderNotFound = "Not found"
	// PlaceholderNotAssigned is shown when a receipt has no group
	PlaceholderNotAssigned = "Not assigned"
)

// Record is the backend's view of one uploaded receipt.
// Only ID is guaranteed; the optional fields stay nil until processing finishes.
type Record struct {
	ID       int64   `json:"id"`
	Filename string  `json:"filename"`
	Status   string  `json:"status"`
	Merchant *string `json:"merchant"`
	Date     *string `json:"date"`
	Total    *Total  `json:"total"`
	GroupID  *int64  `json:"group_id"`
}

// UploadResult is what the upload endpoint hands back
type UploadResult struct {
	ID int64 `json:"id"`
}

// Field is one labelled line of a rendered record
type Field struct {
	Label       string
	Value       string
	Placeholder bool
}

// Fields returns the record's display lines in render order
func (r Record) Fields() []Field {
	fields := []Field{
		{Label: "Status", Value: r.Status},
		{Label: "Filename", Value: r.Filename},
		optionalString("Merchant", r.Merchant),
		optionalString("Date", r.Date),
	}

	if r.Total == nil || r.Total.IsZero() {
		fields = append(fields, Field{Label: "Total", Value: PlaceholderNotFound, Placeholder: true})
	} else {
		fields = append(fields, Field{Label: "Total", Value: r.Total.String()})
	}

	if r.GroupID == nil || *r.GroupID == 0 {
		fields = append(fields, Field{Label: "Group ID", Value: PlaceholderNotAssigned, Placeholder: true})
	} else {
		fields = append(fields, Field{Label: "Group ID", Value: strconv.FormatInt(*r.GroupID, 10)})
	}

	return fields
}

func optionalString(label string, v *string) Field {
	if v == nil || *v == "" {
		return Field{Label: label, Value: PlaceholderNotFound, Placeholder: true}
	}
	return Field{Label: label, Value: *v}
}

// Total is a receipt total exactly as the backend sent it.
// The backend may send a JSON number or a string ("12.50 EUR").
type Total struct {
	raw    string
	number bool
}

// NewTotal wraps a textual total
func NewTotal(s string) *Total {
	return &Total{raw: s}
}

// String returns the total verbatim
func (t Total) String() string {
	return t.raw
}

// IsZero reports whether the total should be treated as missing.
// A numeric zero counts as missing, the string "0" does not.
func (t Total) IsZero() bool {
	if t.raw == "" {
		return true
	}
	if !t.number {
		return false
	}
	f, err := strconv.ParseFloat(t.raw, 64)
	return err == nil && f == 0
}

// UnmarshalJSON accepts a JSON string or number
func (t *Total) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Total{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Total{raw: s}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("total must be a number or a string: %w", err)
	}
	*t = Total{raw: n.String(), number: true}
	return nil
}

// MarshalJSON writes the total back in the form it arrived in
func (t Total) MarshalJSON() ([]byte, error) {
	if t.number {
		return []byte(t.raw), nil
	}
	return json.Marshal(t.raw)
}
