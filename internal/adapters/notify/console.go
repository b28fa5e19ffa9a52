package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/alphaspike/internal/domain"
)

const (
	maxSignalsShown = 20 // símbolos por feature en el resumen de scan
	maxTradesShown  = 50 // filas de trades en el resumen de backtest
)

// Console implementa ports.Notifier.
type Console struct {
	out    io.Writer
	trades bool
}

// NewConsoleWriter crea un notificador que escribe en w.
// trades=true añade la tabla de trades al resumen de backtest.
func NewConsoleWriter(w io.Writer, trades bool) *Console {
	return &Console{out: w, trades: trades}
}

// Banner imprime la cabecera de un comando: título y pares "clave: valor".
func (c *Console) Banner(title string, fields ...string) {
	var sb strings.Builder
	for i := 0; i+1 < len(fields); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString("  |  ")
		}
		fmt.Fprintf(&sb, "%s: %s", fields[i], fields[i+1])
	}
	line := strings.Repeat("=", max(len(title), sb.Len())+4)
	fmt.Fprintf(c.out, "\n%s\n  %s\n  %s\n%s\n\n", line, title, sb.String(), line)
}

// NotifyScan imprime el resumen de un scan: tabla por feature, los símbolos
// con señal y una línea de totales.
func (c *Console) NotifyScan(_ context.Context, results []domain.ScanResult) error {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "no features scanned")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Feature", "Signals", "Status")
	for _, r := range results {
		status := "cached"
		if !r.FromCache() {
			status = fmt.Sprintf("scanned (%d ok, %d skip, %d err)", r.Scanned, r.Skipped, r.Errors)
		}
		if err := table.Append(r.Feature, fmt.Sprintf("%d", len(r.Hits)), status); err != nil {
			return fmt.Errorf("notify.NotifyScan: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("notify.NotifyScan: %w", err)
	}
	fmt.Fprintln(c.out)

	var total, cached int
	for _, r := range results {
		total += len(r.Hits)
		if r.FromCache() {
			cached++
		}
		if len(r.Hits) == 0 {
			continue
		}
		fmt.Fprintf(c.out, "%s - %d signals:\n  %s\n\n", r.Feature, len(r.Hits), signalLine(r.Hits))
	}

	fmt.Fprintf(c.out, "Total signals: %d | Features: %d scanned, %d cached\n",
		total, len(results)-cached, cached)
	return nil
}

// signalLine une los símbolos truncando a maxSignalsShown.
func signalLine(hits domain.HitList) string {
	if len(hits) <= maxSignalsShown {
		return strings.Join(hits, ", ")
	}
	return fmt.Sprintf("%s, ... (+%d more)",
		strings.Join(hits[:maxSignalsShown], ", "), len(hits)-maxSignalsShown)
}

// NotifyBacktest imprime las estadísticas anuales y, si está activado, los trades.
func (c *Console) NotifyBacktest(_ context.Context, stats domain.YearlyStats, results []domain.BacktestResult) error {
	fmt.Fprintf(c.out, "Backtest %s %d\n", stats.Feature, stats.Year)

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	rows := [][2]string{
		{"Total Signals", fmt.Sprintf("%d", stats.TotalSignals)},
		{"Win Count", fmt.Sprintf("%d", stats.WinCount)},
		{"Loss Count", fmt.Sprintf("%d", stats.LossCount)},
		{"Win Rate", pct(stats.WinRate)},
		{"Max Win Count", fmt.Sprintf("%d", stats.MaxWinCount)},
		{"Max Win Rate", pct(stats.MaxWinRate)},
		{"Cumulative Return", pct(stats.TotalReturnSum)},
		{"Win Return Sum", pct(stats.WinReturnSum)},
		{"Loss Return Sum", pct(stats.LossReturnSum)},
		{"Max Return Sum", pct(stats.MaxReturnSum)},
		{"Average Return", pct(stats.AvgReturn)},
		{"Max Return", pct(stats.MaxReturn)},
		{"Min Return", pct(stats.MinReturn)},
		{"Trading Days", fmt.Sprintf("%d", stats.TradingDays)},
	}
	for _, r := range rows {
		if err := table.Append(r[0], r[1]); err != nil {
			return fmt.Errorf("notify.NotifyBacktest: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("notify.NotifyBacktest: %w", err)
	}

	if !c.trades || len(results) == 0 {
		return nil
	}

	fmt.Fprintln(c.out)
	trades := tablewriter.NewWriter(c.out)
	trades.Header("Signal", "Symbol", "Entry", "Entry $", "Exit", "Exit $", "Return", "Max", "Days")
	for i, r := range results {
		if i >= maxTradesShown {
			break
		}
		if err := trades.Append(
			r.SignalDate, r.Symbol,
			r.EntryDate, fmt.Sprintf("%.2f", r.EntryPrice),
			r.ExitDate, fmt.Sprintf("%.2f", r.ExitPrice),
			signed(r.TotalReturnPct), signed(r.MaxReturnPct),
			fmt.Sprintf("%d", r.HoldingDays),
		); err != nil {
			return fmt.Errorf("notify.NotifyBacktest: %w", err)
		}
	}
	if err := trades.Render(); err != nil {
		return fmt.Errorf("notify.NotifyBacktest: %w", err)
	}
	if len(results) > maxTradesShown {
		fmt.Fprintf(c.out, "  ... (+%d more trades)\n", len(results)-maxTradesShown)
	}
	return nil
}

// NotifyPerformance imprime una tabla por horizonte (1D, 2D, 3D).
func (c *Console) NotifyPerformance(_ context.Context, perfs []domain.FeaturePerformance) error {
	if len(perfs) == 0 {
		fmt.Fprintln(c.out, "No valid signals found for analysis.")
		return nil
	}

	var total int
	for _, period := range domain.TrackPeriods {
		fmt.Fprintf(c.out, "%dD Performance\n", period)
		table := tablewriter.NewWriter(c.out)
		table.Header("Feature", "Signals", "Win Rate", "Avg Return", "Best", "Worst")
		for _, p := range perfs {
			st := p.Stats[period]
			if err := table.Append(
				p.Feature,
				fmt.Sprintf("%d", p.TotalSignals),
				fmt.Sprintf("%.1f%%", st.WinRate),
				signed(st.AvgReturn),
				withSymbol(st.MaxReturn, st.MaxSymbol, st.MaxDate),
				withSymbol(st.MinReturn, st.MinSymbol, st.MinDate),
			); err != nil {
				return fmt.Errorf("notify.NotifyPerformance: %w", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("notify.NotifyPerformance: %w", err)
		}
		fmt.Fprintln(c.out)
	}
	for _, p := range perfs {
		total += p.TotalSignals
	}
	fmt.Fprintf(c.out, "Total signals: %d\n", total)
	return nil
}

// NotifyNegative imprime la clasificación negativo/mixto/positivo por feature.
func (c *Console) NotifyNegative(_ context.Context, analyses []domain.NegativeAnalysis) error {
	if len(analyses) == 0 {
		fmt.Fprintln(c.out, "No complete signals to analyze.")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Feature", "Complete", "Negative", "Ratio", "Avg 1D", "Avg 2D", "Avg 3D")
	for _, a := range analyses {
		if err := table.Append(
			a.Feature,
			fmt.Sprintf("%d", a.TotalSignals),
			fmt.Sprintf("%d", a.Negative.Count),
			fmt.Sprintf("%.2f%%", a.NegativeRatio),
			signed(a.Negative.Avg[1]), signed(a.Negative.Avg[2]), signed(a.Negative.Avg[3]),
		); err != nil {
			return fmt.Errorf("notify.NotifyNegative: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("notify.NotifyNegative: %w", err)
	}

	// Con una sola feature hay desglose completo de categorías
	for _, a := range analyses {
		if a.Positive == nil || a.Mixed == nil {
			continue
		}
		fmt.Fprintf(c.out, "\n%s breakdown\n", a.Feature)
		cats := tablewriter.NewWriter(c.out)
		cats.Header("Category", "Count", "Ratio", "Avg 1D", "Avg 2D", "Avg 3D")
		for _, row := range []struct {
			name string
			cat  domain.SignalCategory
		}{
			{"all negative", a.Negative},
			{"mixed", *a.Mixed},
			{"all positive", *a.Positive},
		} {
			if err := cats.Append(
				row.name,
				fmt.Sprintf("%d", row.cat.Count),
				fmt.Sprintf("%.2f%%", row.cat.Ratio),
				signed(row.cat.Avg[1]), signed(row.cat.Avg[2]), signed(row.cat.Avg[3]),
			); err != nil {
				return fmt.Errorf("notify.NotifyNegative: %w", err)
			}
		}
		if err := cats.Render(); err != nil {
			return fmt.Errorf("notify.NotifyNegative: %w", err)
		}
		if n := len(a.Negative.Signals); n > 0 {
			syms := make([]string, 0, min(n, maxSignalsShown))
			for _, s := range a.Negative.Signals[:min(n, maxSignalsShown)] {
				syms = append(syms, s.Symbol+"@"+s.SignalDate)
			}
			more := ""
			if n > maxSignalsShown {
				more = fmt.Sprintf(", ... (+%d more)", n-maxSignalsShown)
			}
			fmt.Fprintf(c.out, "  negative: %s%s\n", strings.Join(syms, ", "), more)
		}
	}
	return nil
}

// Done imprime la línea final con la duración del comando.
func (c *Console) Done(what string, elapsed time.Duration) {
	fmt.Fprintf(c.out, "\n%s completed in %s\n", what, FormatDuration(elapsed))
}

// FormatDuration formatea como "1.5s", "2m 30s" o "1h 15m".
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	switch {
	case secs < 60:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", int(secs)/60, int(secs)%60)
	default:
		return fmt.Sprintf("%dh %dm", int(secs)/3600, (int(secs)%3600)/60)
	}
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func signed(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// withSymbol añade "(símbolo MM-DD)" al retorno.
func withSymbol(v float64, symbol, date string) string {
	if symbol == "" {
		return signed(v)
	}
	if len(date) == 8 {
		date = date[4:6] + "-" + date[6:8]
	}
	return fmt.Sprintf("%s (%s %s)", signed(v), symbol, date)
}
