// Package chart renders PNG line charts for the dashboard and the bot.
package chart

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	charts "github.com/vicanso/go-charts/v2"

	"ETFScope/internal/metrics"
	"ETFScope/internal/model"
)

const dateLayout = "2006-01-02"

// ErrNoSeries is returned when there is nothing to draw.
var ErrNoSeries = errors.New("chart: no data to draw")

// Size is the output image size in pixels.
type Size struct {
	Width  int
	Height int
}

// DefaultSize is used when a zero Size is passed.
var DefaultSize = Size{Width: 900, Height: 500}

func (s Size) orDefault() Size {
	if s.Width <= 0 || s.Height <= 0 {
		return DefaultSize
	}
	return s
}

// ValueChart draws the value of an investment over time for one or more
// instruments on a shared date axis.
func ValueChart(reports []*model.AnalysisReport, size Size) ([]byte, error) {
	var (
		names  []string
		series []dated
	)
	for _, r := range reports {
		if r == nil || r.Series.Len() == 0 || len(r.InvestmentValue) != r.Series.Len() {
			continue
		}
		names = append(names, r.ETF.Symbol)
		series = append(series, dated{times: times(r.Series), values: r.InvestmentValue})
	}
	if len(series) == 0 {
		return nil, ErrNoSeries
	}

	labels, values := align(series)
	if len(labels) < 2 {
		return nil, ErrNoSeries
	}
	yMin, yMax := bounds(values)

	principal := reports[0].Metrics.Principal
	title := "Investment value"
	if principal > 0 {
		title = fmt.Sprintf("Value of %.2f invested", principal)
	}
	subtitle := strings.Join(names, ", ")
	if len(reports[0].Series.Lookback) > 0 {
		subtitle += " • " + reports[0].Series.Lookback.Label()
	}

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	size = size.orDefault()
	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: splitFor(len(labels))}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.PNGTypeOption(),
		charts.WidthOptionFunc(size.Width),
		charts.HeightOptionFunc(size.Height),
	)
	if err != nil {
		return nil, fmt.Errorf("render value chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("value chart bytes: %w", err)
	}
	metrics.ChartsRendered.WithLabelValues("value").Inc()
	return buf, nil
}

// PriceChart draws closing prices with the optional moving average and
// linear projection from the report. The projection continues the date axis
// past the last observation.
func PriceChart(report *model.AnalysisReport, size Size) ([]byte, error) {
	if report == nil || report.Series.Len() < 2 {
		return nil, ErrNoSeries
	}
	closes := report.Series.Closes()
	n := len(closes)

	var projected []float64
	labels := make([]string, 0, n)
	for _, p := range report.Series.Points {
		labels = append(labels, p.Time.Format(dateLayout))
	}
	if report.Projection != nil {
		for _, p := range report.Projection.Points {
			labels = append(labels, p.Time.Format(dateLayout))
		}
		projected = report.Projection.Prices()
	}
	total := len(labels)

	names := []string{"Close"}
	values := [][]float64{pad(closes, 0, total)}
	if len(report.MovingAverage) > 0 {
		names = append(names, fmt.Sprintf("SMA %d", report.MAWindow))
		values = append(values, pad(report.MovingAverage, n-len(report.MovingAverage), total))
	}
	if len(projected) > 0 {
		// start the projection at the last close so the lines connect
		line := append([]float64{closes[n-1]}, projected...)
		names = append(names, "Projection")
		values = append(values, pad(line, n-1, total))
	}
	yMin, yMax := bounds(values)

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	title := report.ETF.Symbol
	if report.ETF.Name != "" && report.ETF.Name != report.ETF.Symbol {
		title = report.ETF.Name + " (" + report.ETF.Symbol + ")"
	}
	size = size.orDefault()
	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, report.Series.Lookback.Label()),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: splitFor(total)}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.PNGTypeOption(),
		charts.WidthOptionFunc(size.Width),
		charts.HeightOptionFunc(size.Height),
	)
	if err != nil {
		return nil, fmt.Errorf("render price chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("price chart bytes: %w", err)
	}
	metrics.ChartsRendered.WithLabelValues("price").Inc()
	return buf, nil
}

type dated struct {
	times  []time.Time
	values []float64
}

func times(s *model.PriceSeries) []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time
	}
	return out
}

// align merges series sampled on different dates onto the union of their
// calendar days. Gaps carry the previous value forward; days before a
// series starts are left empty.
func align(series []dated) ([]string, [][]float64) {
	seen := make(map[string]struct{})
	var days []string
	for _, s := range series {
		for _, t := range s.times {
			d := t.UTC().Format(dateLayout)
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				days = append(days, d)
			}
		}
	}
	sort.Strings(days)

	values := make([][]float64, len(series))
	for i, s := range series {
		byDay := make(map[string]float64, len(s.times))
		for j, t := range s.times {
			byDay[t.UTC().Format(dateLayout)] = s.values[j]
		}
		row := make([]float64, len(days))
		last, started := 0.0, false
		for k, d := range days {
			if v, ok := byDay[d]; ok {
				last, started = v, true
			}
			if started {
				row[k] = last
			} else {
				row[k] = charts.GetNullValue()
			}
		}
		values[i] = row
	}
	return days, values
}

// pad places vals at offset within a row of the given length, filling the
// rest with null values.
func pad(vals []float64, offset, length int) []float64 {
	row := make([]float64, length)
	for i := range row {
		row[i] = charts.GetNullValue()
	}
	for i, v := range vals {
		if j := offset + i; j >= 0 && j < length {
			row[j] = v
		}
	}
	return row
}

// bounds returns a padded y range over all non-null values.
func bounds(values [][]float64) (float64, float64) {
	null := charts.GetNullValue()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range values {
		for _, v := range row {
			if v == null || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	margin := (hi - lo) * 0.05
	if margin < hi*0.002 {
		margin = math.Abs(hi) * 0.002
	}
	if margin == 0 {
		margin = 1
	}
	lo -= margin
	if lo < 0 && lo+margin >= 0 {
		lo = 0
	}
	return lo, hi + margin
}

func splitFor(points int) int {
	switch {
	case points <= 10:
		return points
	case points <= 60:
		return 6
	default:
		return 8
	}
}
