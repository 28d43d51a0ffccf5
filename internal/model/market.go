package model

import (
	"fmt"
	"strings"
	"time"
)

// PricePoint is a single closing price observation.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// PriceSeries holds a time-ordered closing price history for one instrument.
type PriceSeries struct {
	Symbol    string       `json:"symbol"`
	Lookback  Lookback     `json:"lookback"`
	Points    []PricePoint `json:"points"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Len returns the number of observations.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Closes extracts the closing prices in order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent observation. The series must not be empty.
func (s *PriceSeries) Last() PricePoint {
	return s.Points[len(s.Points)-1]
}

// Lookback is the requested historical window, expressed as a Yahoo range.
type Lookback string

const (
	Lookback1mo Lookback = "1mo"
	Lookback3mo Lookback = "3mo"
	Lookback6mo Lookback = "6mo"
	Lookback1y  Lookback = "1y"
	Lookback2y  Lookback = "2y"
	Lookback5y  Lookback = "5y"
	Lookback10y Lookback = "10y"
	LookbackYTD Lookback = "ytd"
	LookbackMax Lookback = "max"
)

// Lookbacks lists every supported window in display order.
var Lookbacks = []Lookback{
	Lookback1mo, Lookback3mo, Lookback6mo, Lookback1y, Lookback2y,
	Lookback5y, Lookback10y, LookbackYTD, LookbackMax,
}

var lookbackLabels = map[Lookback]string{
	Lookback1mo: "1 month",
	Lookback3mo: "3 months",
	Lookback6mo: "6 months",
	Lookback1y:  "1 year",
	Lookback2y:  "2 years",
	Lookback5y:  "5 years",
	Lookback10y: "10 years",
	LookbackYTD: "Year to date",
	LookbackMax: "Max",
}

// ParseLookback validates a user-supplied window.
func ParseLookback(s string) (Lookback, error) {
	lb := Lookback(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := lookbackLabels[lb]; !ok {
		return "", fmt.Errorf("unsupported lookback %q", s)
	}
	return lb, nil
}

// Label returns a human readable name.
func (l Lookback) Label() string {
	if v, ok := lookbackLabels[l]; ok {
		return v
	}
	return string(l)
}

// Interval returns the sampling interval used for the window. Long windows
// are sampled weekly or monthly so that responses stay small.
func (l Lookback) Interval() string {
	switch l {
	case Lookback5y, Lookback10y:
		return "1wk"
	case LookbackMax:
		return "1mo"
	default:
		return "1d"
	}
}
