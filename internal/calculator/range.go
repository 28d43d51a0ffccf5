package calculator

import (
	"math"

	"ETFScope/internal/model"
)

// PeriodRange scans the whole series and returns the highest and lowest close.
func PeriodRange(series *model.PriceSeries) (model.PriceRange, error) {
	if series.Len() == 0 {
		return model.PriceRange{}, ErrEmptyData
	}
	r := model.PriceRange{High: math.Inf(-1), Low: math.Inf(1)}
	for _, p := range series.Points {
		if p.Close > r.High {
			r.High = p.Close
		}
		if p.Close < r.Low {
			r.Low = p.Close
		}
	}
	return r, nil
}

// RangePosition returns where the current price sits within the range (0.0~1.0).
func RangePosition(current float64, r model.PriceRange) float64 {
	if r.High == r.Low {
		return 0.5
	}
	pos := (current - r.Low) / (r.High - r.Low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos
}
