package model

import "time"

// MetricsResult holds the return and risk figures computed for one series.
// All rates are fractions (0.05 = 5%).
type MetricsResult struct {
	AnnualizedReturn float64 `json:"annualized_return"`
	AnnualizedRisk   float64 `json:"annualized_risk"`
	PeriodReturn     float64 `json:"period_return"`
	Principal        float64 `json:"principal"`
	FinalAmount      float64 `json:"final_amount"`
	GainLoss         float64 `json:"gain_loss"`
	Observations     int     `json:"observations"`
	TradingDays      float64 `json:"trading_days"`
}

// ProjectedPoint is one step of a linear price projection.
type ProjectedPoint struct {
	Step  int       `json:"step"`
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// ProjectionResult is a least-squares trend line evaluated past the end of a series.
type ProjectionResult struct {
	Intercept float64          `json:"intercept"`
	Slope     float64          `json:"slope"`
	Points    []ProjectedPoint `json:"points"`
}

// Prices extracts the projected prices in order.
func (p *ProjectionResult) Prices() []float64 {
	if p == nil {
		return nil
	}
	out := make([]float64, len(p.Points))
	for i, pt := range p.Points {
		out[i] = pt.Price
	}
	return out
}

// PriceRange is the highest and lowest close over a window.
type PriceRange struct {
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}
