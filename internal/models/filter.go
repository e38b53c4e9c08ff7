package models

import (
	"fmt"
	"slices"
	"time"
)

// SatisfactionFilter is a free-text bucket name; unknown values match everything.
type SatisfactionFilter string

const (
	SatisfactionAny    SatisfactionFilter = ""
	SatisfactionHigh   SatisfactionFilter = "高満足度 (4-5)"
	SatisfactionMedium SatisfactionFilter = "中満足度 (3)"
	SatisfactionLow    SatisfactionFilter = "低満足度 (1-2)"
)

// SatisfactionFilters lists the choices offered by the filter panel.
var SatisfactionFilters = []SatisfactionFilter{
	SatisfactionAny,
	SatisfactionHigh,
	SatisfactionMedium,
	SatisfactionLow,
}

// Matches reports whether a 1-5 score falls in the bucket.
func (f SatisfactionFilter) Matches(score int) bool {
	switch f {
	case SatisfactionHigh:
		return score >= 4
	case SatisfactionMedium:
		return score == 3
	case SatisfactionLow:
		return score <= 2
	default:
		return true
	}
}

// DateRange is an inclusive pair of YYYY-MM-DD dates.
type DateRange [2]string

// Bounds parses both ends.
func (r DateRange) Bounds() (time.Time, time.Time, error) {
	start, err := ParseDate(r[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("range start: %w", err)
	}
	end, err := ParseDate(r[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("range end: %w", err)
	}
	return start, end, nil
}

// FloatRange is an inclusive [min, max] pair.
type FloatRange [2]float64

func (r FloatRange) Contains(v float64) bool { return r[0] <= v && v <= r[1] }

// IntRange is an inclusive [min, max] pair.
type IntRange [2]int

func (r IntRange) Contains(v int) bool { return r[0] <= v && v <= r[1] }

// FilterSelection is the dashboard-wide filter. Nil or empty fields do not filter.
type FilterSelection struct {
	DateRange          *DateRange         `json:"date_range,omitempty"`
	Categories         []string           `json:"categories,omitempty"`
	Regions            []string           `json:"regions,omitempty"`
	SalesRange         *FloatRange        `json:"sales_range,omitempty"`
	AgeRange           *IntRange          `json:"age_range,omitempty"`
	Genders            []string           `json:"genders,omitempty"`
	SatisfactionFilter SatisfactionFilter `json:"satisfaction_filter,omitempty"`
}

// Clone returns a deep copy that shares no memory with s.
func (s FilterSelection) Clone() FilterSelection {
	out := FilterSelection{
		Categories:         slices.Clone(s.Categories),
		Regions:            slices.Clone(s.Regions),
		Genders:            slices.Clone(s.Genders),
		SatisfactionFilter: s.SatisfactionFilter,
	}
	if s.DateRange != nil {
		r := *s.DateRange
		out.DateRange = &r
	}
	if s.SalesRange != nil {
		r := *s.SalesRange
		out.SalesRange = &r
	}
	if s.AgeRange != nil {
		r := *s.AgeRange
		out.AgeRange = &r
	}
	return out
}

// Validate reports malformed or inverted ranges. Callers log the result;
// the selection is never rejected or corrected.
func (s FilterSelection) Validate() error {
	if s.DateRange != nil {
		start, end, err := s.DateRange.Bounds()
		if err != nil {
			return fmt.Errorf("date_range: %w", err)
		}
		if start.After(end) {
			return fmt.Errorf("date_range: start %s is after end %s", s.DateRange[0], s.DateRange[1])
		}
	}
	if s.SalesRange != nil && s.SalesRange[0] > s.SalesRange[1] {
		return fmt.Errorf("sales_range: min %g is greater than max %g", s.SalesRange[0], s.SalesRange[1])
	}
	if s.AgeRange != nil && s.AgeRange[0] > s.AgeRange[1] {
		return fmt.Errorf("age_range: min %d is greater than max %d", s.AgeRange[0], s.AgeRange[1])
	}
	return nil
}

// FilterOptions are the choices the backend offers for the filter panel.
type FilterOptions struct {
	Categories []string   `json:"categories"`
	Regions    []string   `json:"regions"`
	SalesRange FloatRange `json:"sales_range"`
	AgeRange   IntRange   `json:"age_range"`
	Genders    []string   `json:"genders"`
}
