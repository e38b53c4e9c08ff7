package filters

import (
	"slices"
	"time"

	"sales-dashboard/internal/models"
)

// Defaults builds the initial selection: the given date range, every option
// selected, the full sales and age ranges and no satisfaction filter.
func Defaults(options models.FilterOptions, start, end string) models.FilterSelection {
	salesRange := options.SalesRange
	ageRange := options.AgeRange
	return models.FilterSelection{
		DateRange:          &models.DateRange{start, end},
		Categories:         slices.Clone(options.Categories),
		Regions:            slices.Clone(options.Regions),
		SalesRange:         &salesRange,
		AgeRange:           &ageRange,
		Genders:            slices.Clone(options.Genders),
		SatisfactionFilter: models.SatisfactionAny,
	}
}

// MatchSales applies the date, category, region and amount parts of sel.
// A date range that does not parse filters nothing.
func MatchSales(rec models.SalesRecord, sel models.FilterSelection) bool {
	if sel.DateRange != nil {
		if start, end, err := sel.DateRange.Bounds(); err == nil {
			day := dateOnly(rec.Date)
			if day.Before(dateOnly(start)) || day.After(dateOnly(end)) {
				return false
			}
		}
	}
	if len(sel.Categories) > 0 && !slices.Contains(sel.Categories, rec.Category) {
		return false
	}
	if len(sel.Regions) > 0 && !slices.Contains(sel.Regions, rec.Region) {
		return false
	}
	if sel.SalesRange != nil && !sel.SalesRange.Contains(rec.Amount) {
		return false
	}
	return true
}

// MatchCustomer applies the age, gender and satisfaction parts of sel.
func MatchCustomer(rec models.CustomerRecord, sel models.FilterSelection) bool {
	if sel.AgeRange != nil && !sel.AgeRange.Contains(rec.Age) {
		return false
	}
	if len(sel.Genders) > 0 && !slices.Contains(sel.Genders, rec.Gender) {
		return false
	}
	return sel.SatisfactionFilter.Matches(rec.Satisfaction)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
