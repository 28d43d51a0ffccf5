package calculator

import (
	"fmt"
	"sort"
	"time"

	"ETFScope/internal/model"
)

// ProjectPrice fits price = a + b*t by ordinary least squares, t being the
// zero-based position of each observation, and evaluates the line at
// t = n .. n+horizon-1. One step is one observation of the input series.
// The result is a curve fit, not a forecast.
func ProjectPrice(series *model.PriceSeries, horizon int) (*model.ProjectionResult, error) {
	n := series.Len()
	if n < 2 {
		return nil, fmt.Errorf("%w: projection needs at least 2 observations, got %d", ErrInsufficientData, n)
	}
	if err := validateSeries(series); err != nil {
		return nil, err
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d", ErrDegenerateInput, horizon)
	}

	intercept, slope := fitLine(series.Closes())
	if !finite(intercept, slope) {
		return nil, fmt.Errorf("%w: trend line is not finite", ErrDegenerateInput)
	}

	last := series.Last().Time
	step := observationStep(series)
	res := &model.ProjectionResult{
		Intercept: intercept,
		Slope:     slope,
		Points:    make([]model.ProjectedPoint, horizon),
	}
	t := last
	for i := 0; i < horizon; i++ {
		x := n + i
		t = advance(t, step)
		price := intercept + slope*float64(x)
		if !finite(price) {
			return nil, fmt.Errorf("%w: projected price at step %d is not finite", ErrDegenerateInput, x)
		}
		res.Points[i] = model.ProjectedPoint{
			Step:  x,
			Time:  t,
			Price: price,
		}
	}
	return res, nil
}

// fitLine returns the least-squares intercept and slope of y against 0..len(y)-1.
func fitLine(y []float64) (intercept, slope float64) {
	n := float64(len(y))
	tMean := (n - 1) / 2
	yMean := mean(y)
	var sxy, sxx float64
	for i, v := range y {
		dt := float64(i) - tMean
		sxy += dt * (v - yMean)
		sxx += dt * dt
	}
	slope = sxy / sxx
	intercept = yMean - slope*tMean
	return intercept, slope
}

// observationStep is the median spacing between consecutive observations.
func observationStep(series *model.PriceSeries) time.Duration {
	gaps := make([]time.Duration, 0, series.Len()-1)
	for i := 1; i < series.Len(); i++ {
		gaps = append(gaps, series.Points[i].Time.Sub(series.Points[i-1].Time))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[len(gaps)/2]
}

// advance moves one observation forward. Daily data moves to the next
// business day; coarser sampling moves by the observed spacing.
func advance(t time.Time, step time.Duration) time.Time {
	if step >= 4*24*time.Hour {
		return t.Add(step)
	}
	next := t.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
