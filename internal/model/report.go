package model

// ETF describes one fund of the catalog.
type ETF struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Symbol      string `yaml:"symbol" json:"symbol"`
}

// AnalysisReport is everything the presentation layer needs to render one instrument.
type AnalysisReport struct {
	ETF             ETF               `json:"etf"`
	Series          *PriceSeries      `json:"series"`
	Metrics         MetricsResult     `json:"metrics"`
	InvestmentValue []float64         `json:"investment_value"`
	Range           PriceRange        `json:"range"`
	MovingAverage   []float64         `json:"moving_average,omitempty"`
	MAWindow        int               `json:"ma_window,omitempty"`
	Projection      *ProjectionResult `json:"projection,omitempty"`
}
