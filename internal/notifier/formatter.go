package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ETFScope/internal/model"
)

// FormatReport formats one instrument analysis into a Telegram message.
func FormatReport(r *model.AnalysisReport) string {
	var b strings.Builder
	m := r.Metrics

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> (%s) | %s\n", html.EscapeString(r.ETF.Name), html.EscapeString(r.ETF.Symbol), r.Series.Lookback.Label()))
	if r.ETF.Description != "" {
		b.WriteString(fmt.Sprintf("<i>%s</i>\n", html.EscapeString(r.ETF.Description)))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Initial amount: %s\n", Money(m.Principal)))
	b.WriteString(fmt.Sprintf("Final amount: <b>%s</b>\n", Money(m.FinalAmount)))
	b.WriteString(fmt.Sprintf("%s %s: %s (%s)\n", gainIcon(m.GainLoss), gainWord(m.GainLoss), Money(math.Abs(m.GainLoss)), Percent(m.PeriodReturn)))
	b.WriteString(fmt.Sprintf("Annualized return: %s | risk: %s\n", Percent(m.AnnualizedReturn), Percent(m.AnnualizedRisk)))

	if r.Series.Len() > 0 {
		b.WriteString(fmt.Sprintf("\nLast close: %.2f (%s)\n", r.Series.Last().Close, r.Series.Last().Time.Format("2006-01-02")))
		b.WriteString(fmt.Sprintf("Range: %.2f – %.2f\n", r.Range.Low, r.Range.High))
	}
	if r.MAWindow > 0 && len(r.MovingAverage) > 0 {
		b.WriteString(fmt.Sprintf("SMA %d: %.2f\n", r.MAWindow, r.MovingAverage[len(r.MovingAverage)-1]))
	}
	if p := r.Projection; p != nil && len(p.Points) > 0 {
		last := p.Points[len(p.Points)-1]
		b.WriteString(fmt.Sprintf("Trend projection (%d steps, %s, linear fit, not a forecast): %.2f\n", len(p.Points), last.Time.Format("2006-01-02"), last.Price))
	}
	return b.String()
}

// FormatComparison puts several instruments side by side.
func FormatComparison(reports []*model.AnalysisReport) string {
	if len(reports) == 0 {
		return "No data to compare."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚖️ <b>Comparison</b> | %s, %s invested\n\n",
		reports[0].Series.Lookback.Label(), Money(reports[0].Metrics.Principal)))
	best := 0
	for i, r := range reports {
		m := r.Metrics
		b.WriteString(fmt.Sprintf("<b>%s</b>: %s %s (%s)\n", html.EscapeString(r.ETF.Symbol), Money(m.FinalAmount), gainIcon(m.GainLoss), Percent(m.PeriodReturn)))
		b.WriteString(fmt.Sprintf("   return %s/yr, risk %s/yr\n", Percent(m.AnnualizedReturn), Percent(m.AnnualizedRisk)))
		if m.FinalAmount > reports[best].Metrics.FinalAmount {
			best = i
		}
	}
	if len(reports) > 1 {
		b.WriteString(fmt.Sprintf("\n🏆 Best over the period: <b>%s</b>\n", html.EscapeString(reports[best].ETF.Symbol)))
	}
	return b.String()
}

// FormatWatchlist formats the scheduled watchlist summary. Failed symbols are
// listed with their error.
func FormatWatchlist(reports []*model.AnalysisReport, failures map[string]error, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗓 <b>ETFScope daily report</b> | %s\n\n", now.Format("2006-01-02")))
	for _, r := range reports {
		m := r.Metrics
		last := ""
		if r.Series.Len() > 0 {
			last = fmt.Sprintf("%.2f, ", r.Series.Last().Close)
		}
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %s%s over %s\n", gainIcon(m.GainLoss), html.EscapeString(r.ETF.Symbol), last, Percent(m.PeriodReturn), strings.ToLower(r.Series.Lookback.Label())))
	}
	failed := make([]string, 0, len(failures))
	for sym := range failures {
		failed = append(failed, sym)
	}
	sort.Strings(failed)
	for _, sym := range failed {
		b.WriteString(fmt.Sprintf("❌ <b>%s</b>: %s\n", html.EscapeString(sym), html.EscapeString(failures[sym].Error())))
	}
	if len(reports) == 0 && len(failures) == 0 {
		b.WriteString("Watchlist is empty.\n")
	}
	return b.String()
}

// FormatCatalog lists the known ETFs.
func FormatCatalog(etfs []model.ETF) string {
	var b strings.Builder
	b.WriteString("📚 <b>Available ETFs</b>\n\n")
	for _, e := range etfs {
		b.WriteString(fmt.Sprintf("<code>%s</code> %s\n", html.EscapeString(e.Symbol), html.EscapeString(e.Name)))
	}
	return b.String()
}

// HelpText describes the bot commands.
func HelpText() string {
	return "Available commands:\n" +
		"• /etf SYMBOL [period] [amount]\n" +
		"• /compare A B [period] [amount]\n" +
		"• /list\n" +
		"• /help\n\n" +
		"Periods: 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max"
}

// Money formats a dollar amount with thousands separators.
func Money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", math.Abs(v))
}

// Percent formats a fraction as a signed percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

func gainWord(v float64) string {
	if v >= 0 {
		return "Gain"
	}
	return "Loss"
}

func gainIcon(v float64) string {
	if v >= 0 {
		return "🟢"
	}
	return "🔴"
}
