package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ETFScope/internal/model"
)

type fakeSender struct {
	sent  []tgbotapi.Chattable
	fails int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.fails > 0 {
		f.fails--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func sampleReport() *model.AnalysisReport {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.AnalysisReport{
		ETF: model.ETF{Symbol: "QQQ", Name: "AZ QQQ NASDAQ 100", Description: "Tech & growth"},
		Series: &model.PriceSeries{Symbol: "QQQ", Lookback: model.Lookback1y, Points: []model.PricePoint{
			{Time: start, Close: 100}, {Time: start.AddDate(0, 0, 1), Close: 110},
		}},
		Metrics: model.MetricsResult{
			Principal: 1000, FinalAmount: 1100, GainLoss: 100, PeriodReturn: 0.1,
			AnnualizedReturn: 25.2, AnnualizedRisk: 0,
		},
		Range: model.PriceRange{High: 110, Low: 100},
	}
}

func TestSendUsesHTMLAndChat(t *testing.T) {
	fs := &fakeSender{}
	tn := NewWithSender(fs, 42)
	if err := tn.Send("<b>hi</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, ok := fs.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected MessageConfig, got %T", fs.sent[0])
	}
	if msg.ChatID != 42 || msg.ParseMode != tgbotapi.ModeHTML || msg.Text != "<b>hi</b>" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestSendWithRetry(t *testing.T) {
	fs := &fakeSender{fails: 2}
	tn := NewWithSender(fs, 1)
	tn.RetryBase = time.Millisecond
	if err := tn.SendWithRetry(context.Background(), "hello", 3); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(fs.sent) != 1 {
		t.Errorf("expected one delivered message, got %d", len(fs.sent))
	}

	fs = &fakeSender{fails: 10}
	tn = NewWithSender(fs, 1)
	tn.RetryBase = time.Millisecond
	if err := tn.SendWithRetry(context.Background(), "hello", 2); err == nil {
		t.Error("expected error after exhausting retries")
	}
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	tn := NewWithSender(&fakeSender{fails: 10}, 1)
	tn.RetryBase = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tn.SendWithRetry(ctx, "hello", 3); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDispatch(t *testing.T) {
	fs := &fakeSender{}
	tn := NewWithSender(fs, 1)
	var got string
	tn.Dispatch(context.Background(), 77, "  /etf SPY  ", func(_ context.Context, text string) []Reply {
		got = text
		return []Reply{
			{Text: "report"},
			{Text: "chart", Photo: []byte("png"), PhotoName: "spy.png"},
			{},
		}
	})
	if got != "/etf SPY" {
		t.Errorf("handler got %q", got)
	}
	if len(fs.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(fs.sent))
	}
	if msg := fs.sent[0].(tgbotapi.MessageConfig); msg.ChatID != 77 {
		t.Errorf("reply should go to the originating chat, got %d", msg.ChatID)
	}
	photo, ok := fs.sent[1].(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("expected PhotoConfig, got %T", fs.sent[1])
	}
	if photo.Caption != "chart" || photo.ChatID != 77 {
		t.Errorf("unexpected photo %+v", photo)
	}
}

func TestFormatReport(t *testing.T) {
	out := FormatReport(sampleReport())
	for _, want := range []string{
		"AZ QQQ NASDAQ 100",
		"Tech &amp; growth",
		"$1,100.00",
		"Gain: $100.00 (+10.00%)",
		"Last close: 110.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatReport_ProjectionCaveat(t *testing.T) {
	r := sampleReport()
	r.Projection = &model.ProjectionResult{Points: []model.ProjectedPoint{
		{Step: 2, Time: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Price: 120},
	}}
	out := FormatReport(r)
	if !strings.Contains(out, "linear fit, not a forecast") || !strings.Contains(out, "120.00") {
		t.Errorf("projection line missing or unlabelled:\n%s", out)
	}
}

func TestFormatters_EscapeSymbols(t *testing.T) {
	r := sampleReport()
	r.ETF.Symbol = "A&B<1>"
	const want = "A&amp;B&lt;1&gt;"

	outputs := map[string]string{
		"report":     FormatReport(r),
		"comparison": FormatComparison([]*model.AnalysisReport{r, sampleReport()}),
		"watchlist":  FormatWatchlist([]*model.AnalysisReport{r}, map[string]error{"X<Y": errors.New("no data")}, time.Now()),
		"catalog":    FormatCatalog([]model.ETF{r.ETF}),
	}
	for name, out := range outputs {
		if !strings.Contains(out, want) || strings.Contains(out, "A&B<1>") {
			t.Errorf("%s: symbol not escaped:\n%s", name, out)
		}
	}
	if !strings.Contains(outputs["watchlist"], "X&lt;Y") {
		t.Errorf("failed symbol not escaped:\n%s", outputs["watchlist"])
	}
}

func TestFormatComparison(t *testing.T) {
	a := sampleReport()
	b := sampleReport()
	b.ETF.Symbol = "SPY"
	b.Metrics.FinalAmount, b.Metrics.GainLoss, b.Metrics.PeriodReturn = 900, -100, -0.1
	out := FormatComparison([]*model.AnalysisReport{a, b})
	if !strings.Contains(out, "Best over the period: <b>QQQ</b>") {
		t.Errorf("expected QQQ to win:\n%s", out)
	}
	if !strings.Contains(out, "-10.00%") {
		t.Errorf("expected negative return for SPY:\n%s", out)
	}
}

func TestFormatWatchlist(t *testing.T) {
	now := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	out := FormatWatchlist([]*model.AnalysisReport{sampleReport()}, map[string]error{
		"ZZZ": errors.New("no data"),
		"AAA": errors.New("<timeout>"),
	}, now)
	if !strings.Contains(out, "2024-05-06") || !strings.Contains(out, "<b>QQQ</b>") {
		t.Errorf("unexpected watchlist:\n%s", out)
	}
	if strings.Index(out, "AAA") > strings.Index(out, "ZZZ") {
		t.Error("failures should be sorted")
	}
	if !strings.Contains(out, "&lt;timeout&gt;") {
		t.Error("errors should be escaped")
	}
}

func TestMoneyAndPercent(t *testing.T) {
	if got := Money(-1234.5); got != "-$1,234.50" {
		t.Errorf("Money: got %q", got)
	}
	if got := Percent(0.05); got != "+5.00%" {
		t.Errorf("Percent: got %q", got)
	}
}
