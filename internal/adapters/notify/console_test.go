package notify_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/alphaspike/internal/adapters/notify"
	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Notifier = (*notify.Console)(nil)

func symbols(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%06d.SZ", i)
	}
	return out
}

func TestConsole_NotifyScan(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	results := []domain.ScanResult{
		{Feature: "bbc", Date: "20240105", Hits: domain.NewHitList([]string{"600000.SH", "000001.SZ"}),
			Scanned: 10, Skipped: 2, Errors: 1},
		{Feature: "weak_to_strong", Date: "20240105", Hits: domain.HitList{}, Provenance: domain.ProvenanceCached},
	}
	require.NoError(t, n.NotifyScan(context.Background(), results))

	out := buf.String()
	assert.Contains(t, out, "bbc")
	assert.Contains(t, out, "scanned (10 ok, 2 skip, 1 err)")
	assert.Contains(t, out, "cached")
	assert.Contains(t, out, "000001.SZ, 600000.SH")
	assert.Contains(t, out, "Total signals: 2 | Features: 1 scanned, 1 cached")
}

func TestConsole_NotifyScan_TruncatesSignals(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	res := domain.ScanResult{Feature: "bbc", Hits: domain.NewHitList(symbols(25))}
	require.NoError(t, n.NotifyScan(context.Background(), []domain.ScanResult{res}))

	out := buf.String()
	assert.Contains(t, out, "000019.SZ, ... (+5 more)")
	assert.NotContains(t, out, "000020.SZ")
}

func TestConsole_NotifyScan_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)
	require.NoError(t, n.NotifyScan(context.Background(), nil))
	assert.Contains(t, buf.String(), "no features scanned")
}

func TestConsole_NotifyBacktest(t *testing.T) {
	stats := domain.YearlyStats{
		Feature: "bbc", Year: 2024, TotalSignals: 2, WinCount: 1, LossCount: 1,
		WinRate: 50, AvgReturn: 1.25, MaxReturn: 4.5, MinReturn: -2, TradingDays: 242,
	}
	trades := []domain.BacktestResult{
		{Symbol: "600000.SH", SignalDate: "20240105", EntryDate: "20240108", EntryPrice: 10,
			ExitDate: "20240112", ExitPrice: 10.45, TotalReturnPct: 4.5, MaxReturnPct: 6, HoldingDays: 5},
	}

	t.Run("stats only", func(t *testing.T) {
		var buf bytes.Buffer
		n := notify.NewConsoleWriter(&buf, false)
		require.NoError(t, n.NotifyBacktest(context.Background(), stats, trades))

		out := buf.String()
		assert.Contains(t, out, "Backtest bbc 2024")
		assert.Contains(t, out, "50.00%")
		assert.Contains(t, out, "-2.00%")
		assert.Contains(t, out, "242")
		assert.NotContains(t, out, "600000.SH")
	})

	t.Run("with trades", func(t *testing.T) {
		var buf bytes.Buffer
		n := notify.NewConsoleWriter(&buf, true)
		require.NoError(t, n.NotifyBacktest(context.Background(), stats, trades))

		out := buf.String()
		assert.Contains(t, out, "600000.SH")
		assert.Contains(t, out, "+4.50%")
		assert.Contains(t, out, "10.45")
	})
}

func TestConsole_NotifyPerformance(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	perf := domain.FeaturePerformance{
		Feature:      "bbc",
		TotalSignals: 3,
		Stats: map[int]domain.PeriodStats{
			1: {Period: 1, Count: 3, WinRate: 66.67, AvgReturn: 1.5, MaxReturn: 3, MaxSymbol: "600000.SH",
				MaxDate: "20240105", MinReturn: -1, MinSymbol: "000001.SZ", MinDate: "20240108"},
			2: {Period: 2},
			3: {Period: 3},
		},
	}
	require.NoError(t, n.NotifyPerformance(context.Background(), []domain.FeaturePerformance{perf}))

	out := buf.String()
	for _, title := range []string{"1D Performance", "2D Performance", "3D Performance"} {
		assert.Contains(t, out, title)
	}
	assert.Contains(t, out, "66.7%")
	assert.Contains(t, out, "+3.00% (600000.SH 01-05)")
	assert.Contains(t, out, "-1.00% (000001.SZ 01-08)")
	assert.Contains(t, out, "Total signals: 3")
}

func TestConsole_NotifyNegative(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	sig := func(sym string, a, b, c float64) domain.SignalReturn {
		return domain.SignalReturn{Symbol: sym, SignalDate: "20240105",
			Returns: map[int]*float64{1: f(a), 2: f(b), 3: f(c)}}
	}
	returns := []domain.SignalReturn{
		sig("DOWN", -1, -2, -3),
		sig("UP", 1, 2, 3),
		sig("MIX", 1, -1, 2),
	}

	t.Run("single feature shows breakdown", func(t *testing.T) {
		var buf bytes.Buffer
		n := notify.NewConsoleWriter(&buf, false)
		a := domain.AnalyzeNegative("bbc", returns, true)
		require.NoError(t, n.NotifyNegative(context.Background(), []domain.NegativeAnalysis{a}))

		out := buf.String()
		assert.Contains(t, out, "33.33%")
		assert.Contains(t, out, "bbc breakdown")
		assert.Contains(t, out, "all positive")
		assert.Contains(t, out, "negative: DOWN@20240105")
	})

	t.Run("all features summary only", func(t *testing.T) {
		var buf bytes.Buffer
		n := notify.NewConsoleWriter(&buf, false)
		a := domain.AnalyzeNegative("bbc", returns, false)
		require.NoError(t, n.NotifyNegative(context.Background(), []domain.NegativeAnalysis{a}))
		assert.NotContains(t, buf.String(), "breakdown")
	})
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{150 * time.Second, "2m 30s"},
		{75 * time.Minute, "1h 15m"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, notify.FormatDuration(tc.in))
	}
}

func TestProgress_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	p := notify.NewProgress(&buf, "bbc")

	p.Update(1, 4) // la primera siempre se imprime
	p.Update(2, 4) // throttled
	p.Update(4, 4) // la final siempre se imprime
	p.Update(4, 4) // ignorada tras terminar

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "bbc 1/4 (25%)")
	assert.Contains(t, lines[1], "bbc 4/4 (100%)")
}

func TestProgress_Finish(t *testing.T) {
	var buf bytes.Buffer
	p := notify.NewProgress(&buf, "bbc")
	p.Finish("(cached)")
	p.Update(4, 4)

	assert.Equal(t, "bbc (cached)\n", buf.String())
}
