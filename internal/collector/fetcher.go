package collector

import (
	"context"

	"ETFScope/internal/model"
)

// Fetcher defines the interface for fetching market data.
//
// FetchSeries returns the closing prices of symbol over the lookback window in
// chronological order. An unknown or delisted symbol yields an empty series,
// not an error.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol string, lookback model.Lookback) (*model.PriceSeries, error)
	Name() string
}
