package calculator

import (
	"fmt"
	"math"

	"ETFScope/internal/model"
)

// TradingDaysPerYear is the default annualization constant.
const TradingDaysPerYear = 252

// Engine computes return and risk figures. TradingDays is the number of
// periods per year used to annualize the per-observation statistics.
type Engine struct {
	TradingDays float64
}

// DefaultEngine annualizes with 252 trading days.
var DefaultEngine = &Engine{TradingDays: TradingDaysPerYear}

// NewEngine returns an Engine with the given annualization constant.
func NewEngine(tradingDays float64) (*Engine, error) {
	if tradingDays <= 0 || math.IsNaN(tradingDays) || math.IsInf(tradingDays, 0) {
		return nil, fmt.Errorf("%w: trading days must be positive, got %v", ErrDegenerateInput, tradingDays)
	}
	return &Engine{TradingDays: tradingDays}, nil
}

// ComputeMetrics computes metrics with DefaultEngine.
func ComputeMetrics(series *model.PriceSeries, principal float64) (model.MetricsResult, error) {
	return DefaultEngine.ComputeMetrics(series, principal)
}

// ComputeMetrics turns a price series and a principal into annualized return,
// annualized risk, period return and the resulting investment value.
//
// A single observation has no period-over-period change: both annualized
// figures and the period return are 0. With two observations there is one
// change and the sample deviation is defined as 0.
func (e *Engine) ComputeMetrics(series *model.PriceSeries, principal float64) (model.MetricsResult, error) {
	if err := validateSeries(series); err != nil {
		return model.MetricsResult{}, err
	}
	if err := validatePrincipal(principal); err != nil {
		return model.MetricsResult{}, err
	}

	closes := series.Closes()
	n := len(closes)
	res := model.MetricsResult{
		Principal:    principal,
		Observations: n,
		TradingDays:  e.TradingDays,
	}

	if n >= 2 {
		changes := pctChange(closes)
		res.AnnualizedReturn = mean(changes) * e.TradingDays
		res.AnnualizedRisk = sampleStdDev(changes) * math.Sqrt(e.TradingDays)
		res.PeriodReturn = closes[n-1]/closes[0] - 1
	}

	res.FinalAmount = principal * (1 + res.PeriodReturn)
	res.GainLoss = res.FinalAmount - principal
	if !finite(res.PeriodReturn, res.AnnualizedReturn, res.AnnualizedRisk, res.FinalAmount, res.GainLoss) {
		return model.MetricsResult{}, fmt.Errorf("%w: price range too wide to evaluate", ErrDegenerateInput)
	}
	return res, nil
}

// InvestmentValue returns, for each observation, what the principal invested
// at the first close would be worth. The series itself is not modified.
func InvestmentValue(series *model.PriceSeries, principal float64) ([]float64, error) {
	if err := validateSeries(series); err != nil {
		return nil, err
	}
	if err := validatePrincipal(principal); err != nil {
		return nil, err
	}
	base := series.Points[0].Close
	values := make([]float64, series.Len())
	for i, p := range series.Points {
		values[i] = principal * p.Close / base
		if !finite(values[i]) {
			return nil, fmt.Errorf("%w: investment value at position %d is not finite", ErrDegenerateInput, i)
		}
	}
	return values, nil
}

// pctChange returns p[i]/p[i-1]-1 for i = 1..n-1.
func pctChange(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = prices[i]/prices[i-1] - 1
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev uses the n-1 denominator. Fewer than two values yield 0.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func validateSeries(series *model.PriceSeries) error {
	if series.Len() == 0 {
		return ErrEmptyData
	}
	for i, p := range series.Points {
		if p.Close <= 0 || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			return fmt.Errorf("%w: price %v at position %d", ErrDegenerateInput, p.Close, i)
		}
		if i > 0 && !p.Time.After(series.Points[i-1].Time) {
			return fmt.Errorf("%w: timestamp at position %d is not after its predecessor", ErrDegenerateInput, i)
		}
	}
	return nil
}

func validatePrincipal(principal float64) error {
	if principal < 0 || math.IsNaN(principal) || math.IsInf(principal, 0) {
		return fmt.Errorf("%w: principal must be a finite amount >= 0, got %v", ErrDegenerateInput, principal)
	}
	return nil
}
