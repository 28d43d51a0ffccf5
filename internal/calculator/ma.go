package calculator

import (
	"fmt"

	"ETFScope/internal/model"
)

// SMA returns the rolling simple moving average of the closes. Entry j is
// the average of observations j..j+window-1, so the result has
// len(series)-window+1 entries.
func SMA(series *model.PriceSeries, window int) ([]float64, error) {
	if series.Len() == 0 {
		return nil, ErrEmptyData
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrDegenerateInput)
	}
	closes := series.Closes()
	if len(closes) < window {
		return nil, fmt.Errorf("%w: SMA(%d) over %d prices", ErrInsufficientData, window, len(closes))
	}

	out := make([]float64, 0, len(closes)-window+1)
	sum := 0.0
	for i, c := range closes {
		sum += c
		if i >= window {
			sum -= closes[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out, nil
}
