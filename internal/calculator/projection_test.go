package calculator

import (
	"errors"
	"testing"
	"time"

	"ETFScope/internal/model"
)

func TestProjectPrice_LinearSeries(t *testing.T) {
	res, err := ProjectPrice(series(10, 20, 30, 40), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{50, 60}
	got := res.Prices()
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-9) {
			t.Errorf("point %d: want %v, got %v", i, want[i], got[i])
		}
	}
	if res.Points[0].Step != 4 || res.Points[1].Step != 5 {
		t.Errorf("unexpected steps: %d, %d", res.Points[0].Step, res.Points[1].Step)
	}
	if !almostEqual(res.Slope, 10, 1e-9) || !almostEqual(res.Intercept, 10, 1e-9) {
		t.Errorf("expected intercept 10 slope 10, got %v / %v", res.Intercept, res.Slope)
	}
}

func TestProjectPrice_InsufficientData(t *testing.T) {
	for _, s := range []*model.PriceSeries{series(), series(10), nil} {
		if _, err := ProjectPrice(s, 3); !errors.Is(err, ErrInsufficientData) {
			t.Errorf("len %d: expected ErrInsufficientData, got %v", s.Len(), err)
		}
	}
}

func TestProjectPrice_BadHorizon(t *testing.T) {
	if _, err := ProjectPrice(series(1, 2, 3), 0); !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("expected ErrDegenerateInput, got %v", err)
	}
}

func TestProjectPrice_NonFiniteFit(t *testing.T) {
	for _, s := range []*model.PriceSeries{
		series(1e308, 1e308, 1e-300),
		series(1e308, 1e-300, 1e308, 1e-300),
	} {
		if _, err := ProjectPrice(s, 1); !errors.Is(err, ErrDegenerateInput) {
			t.Errorf("%v: expected ErrDegenerateInput, got %v", s.Closes(), err)
		}
	}
}

func TestProjectPrice_OverflowingHorizon(t *testing.T) {
	if _, err := ProjectPrice(series(1, 1e307, 1e308), 5); !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("expected ErrDegenerateInput, got %v", err)
	}
}

func TestProjectPrice_SkipsWeekends(t *testing.T) {
	// Mon..Fri 2024-01-01..2024-01-05
	s := series(1, 2, 3, 4, 5)
	res, err := ProjectPrice(s, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wd := res.Points[0].Time.Weekday(); wd != time.Monday {
		t.Errorf("first projected day should be Monday, got %s", wd)
	}
	if wd := res.Points[1].Time.Weekday(); wd != time.Tuesday {
		t.Errorf("second projected day should be Tuesday, got %s", wd)
	}
}

func TestProjectPrice_WeeklySpacing(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	s := &model.PriceSeries{}
	for i := 0; i < 4; i++ {
		s.Points = append(s.Points, model.PricePoint{Time: start.AddDate(0, 0, 7*i), Close: float64(100 + i)})
	}
	res, err := ProjectPrice(s, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := s.Last().Time.AddDate(0, 0, 7)
	if !res.Points[0].Time.Equal(want) {
		t.Errorf("expected %s, got %s", want, res.Points[0].Time)
	}
}

func TestSMA(t *testing.T) {
	got, err := SMA(series(1, 2, 3, 4, 5), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Errorf("sma[%d]: want %v, got %v", i, want[i], got[i])
		}
	}

	if _, err := SMA(series(1, 2), 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := SMA(series(1, 2), 0); !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("expected ErrDegenerateInput, got %v", err)
	}
	if _, err := SMA(series(), 2); !errors.Is(err, ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
}

func TestPeriodRange(t *testing.T) {
	r, err := PeriodRange(series(10, 14, 8, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.High != 14 || r.Low != 8 {
		t.Errorf("expected 14/8, got %v/%v", r.High, r.Low)
	}
	if pos := RangePosition(12, r); !almostEqual(pos, 4.0/6, 1e-12) {
		t.Errorf("expected position 0.667, got %v", pos)
	}
	if pos := RangePosition(20, r); pos != 1 {
		t.Errorf("expected clamp to 1, got %v", pos)
	}
	if pos := RangePosition(5, model.PriceRange{High: 5, Low: 5}); pos != 0.5 {
		t.Errorf("flat range should give 0.5, got %v", pos)
	}
	if _, err := PeriodRange(series()); !errors.Is(err, ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
}
