package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate accepts the date shapes the backend has been seen to emit.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// SalesRecord is one sales transaction.
type SalesRecord struct {
	Date     time.Time
	Amount   float64
	Category string
	Region   string
}

type salesRecordJSON struct {
	Date     string  `json:"date"`
	Amount   float64 `json:"sales"`
	Category string  `json:"category"`
	Region   string  `json:"region"`
}

func (s SalesRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(salesRecordJSON{
		Date:     s.Date.Format(DateLayout),
		Amount:   s.Amount,
		Category: s.Category,
		Region:   s.Region,
	})
}

func (s *SalesRecord) UnmarshalJSON(data []byte) error {
	var raw salesRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	*s = SalesRecord{
		Date:     date,
		Amount:   raw.Amount,
		Category: raw.Category,
		Region:   raw.Region,
	}
	return nil
}

// CustomerRecord is one customer with a 1-5 satisfaction score.
type CustomerRecord struct {
	ID             int     `json:"customer_id"`
	Age            int     `json:"age"`
	Gender         string  `json:"gender"`
	PurchaseAmount float64 `json:"purchase_amount"`
	Satisfaction   int     `json:"satisfaction"`
}
