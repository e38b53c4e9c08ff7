package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"sales-dashboard/internal/models"
)

// numberSignal is a bound <input type="number">. Browsers send numbers,
// numeric strings or "" when the field is cleared.
type numberSignal struct {
	value float64
	set   bool
}

func number(v float64) numberSignal { return numberSignal{value: v, set: true} }

func (n numberSignal) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte(`""`), nil
	}
	return json.Marshal(n.value)
}

func (n *numberSignal) UnmarshalJSON(data []byte) error {
	*n = numberSignal{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}

// FilterSignals is the filter panel as datastar sees it.
type FilterSignals struct {
	StartDate    string       `json:"startDate"`
	EndDate      string       `json:"endDate"`
	Categories   []string     `json:"categories"`
	Regions      []string     `json:"regions"`
	SalesMin     numberSignal `json:"salesMin"`
	SalesMax     numberSignal `json:"salesMax"`
	AgeMin       numberSignal `json:"ageMin"`
	AgeMax       numberSignal `json:"ageMax"`
	Genders      []string     `json:"genders"`
	Satisfaction string       `json:"satisfaction"`
}

func SignalsFromSelection(sel models.FilterSelection) FilterSignals {
	s := FilterSignals{
		Categories:   nonNil(sel.Categories),
		Regions:      nonNil(sel.Regions),
		Genders:      nonNil(sel.Genders),
		Satisfaction: string(sel.SatisfactionFilter),
	}
	if sel.DateRange != nil {
		s.StartDate, s.EndDate = sel.DateRange[0], sel.DateRange[1]
	}
	if sel.SalesRange != nil {
		s.SalesMin, s.SalesMax = number(sel.SalesRange[0]), number(sel.SalesRange[1])
	}
	if sel.AgeRange != nil {
		s.AgeMin, s.AgeMax = number(float64(sel.AgeRange[0])), number(float64(sel.AgeRange[1]))
	}
	return s
}

// Selection converts the panel back into a filter. A range is set only when
// both of its ends are filled in.
func (s FilterSignals) Selection() models.FilterSelection {
	sel := models.FilterSelection{
		Categories:         clean(s.Categories),
		Regions:            clean(s.Regions),
		Genders:            clean(s.Genders),
		SatisfactionFilter: models.SatisfactionFilter(strings.TrimSpace(s.Satisfaction)),
	}
	start, end := strings.TrimSpace(s.StartDate), strings.TrimSpace(s.EndDate)
	if start != "" && end != "" {
		sel.DateRange = &models.DateRange{start, end}
	}
	if s.SalesMin.set && s.SalesMax.set {
		sel.SalesRange = &models.FloatRange{s.SalesMin.value, s.SalesMax.value}
	}
	if s.AgeMin.set && s.AgeMax.set {
		sel.AgeRange = &models.IntRange{int(math.Round(s.AgeMin.value)), int(math.Round(s.AgeMax.value))}
	}
	return sel
}

// pageSignals seeds data-signals on first render.
type pageSignals struct {
	FilterSignals
	MatrixTab string             `json:"matrixTab"`
	Charts    models.ChartSeries `json:"charts"`
}

func newPageSignals(sel models.FilterSelection, charts models.ChartSeries) ([]byte, error) {
	return json.Marshal(pageSignals{
		FilterSignals: SignalsFromSelection(sel),
		MatrixTab:     defaultMatrixTab,
		Charts:        charts,
	})
}

func clean(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
