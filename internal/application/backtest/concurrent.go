package backtest

// concurrent.go: un task por símbolo; cada worker recorre todos los días
// hábiles de su serie en memoria.

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

type task struct {
	symbol string
	series domain.Series
}

type taskConfig struct {
	detector ports.Detector
	days     []string
	holding  int
}

type taskResult struct {
	symbol  string
	results []domain.BacktestResult
	err     error
}

// takeTasks vacía el mapa cargado en tasks, en orden de símbolo. Tras la
// llamada el mapa queda vacío: cada serie vive sólo en su task.
func takeTasks(data map[string]domain.Series) []task {
	symbols := make([]string, 0, len(data))
	for s := range data {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	tasks := make([]task, 0, len(symbols))
	for _, s := range symbols {
		tasks = append(tasks, task{symbol: s, series: data[s].Sorted()})
		delete(data, s)
	}
	return tasks
}

// runTasks reparte los tasks entre workers. Un task fallido no aporta
// resultados y se cuenta en failures.
func runTasks(tasks []task, cfg taskConfig, workers int, progress ProgressFunc) (results []domain.BacktestResult, failures int) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(tasks), 1))
	total := len(tasks)

	workCh := make(chan task, len(tasks))
	resultCh := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range workCh {
				res, err := backtestSymbol(t, cfg)
				resultCh <- taskResult{symbol: t.symbol, results: res, err: err}
			}
		}()
	}

	for _, t := range tasks {
		workCh <- t
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	completed := 0
	results = []domain.BacktestResult{}
	for r := range resultCh {
		if r.err != nil {
			failures++
			slog.Debug("backtest task failed", "symbol", r.symbol, "err", r.err)
		} else {
			results = append(results, r.results...)
		}
		completed++
		if progress != nil {
			progress(completed, total)
		}
	}
	return results, failures
}

// backtestSymbol evalúa el detector en cada día hábil presente en la serie.
// Cualquier error o panic anula la contribución completa del símbolo.
func backtestSymbol(t task, cfg taskConfig) (out []domain.BacktestResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %s: panic: %v", domain.ErrDetector, t.symbol, r)
		}
	}()

	minDays := cfg.detector.MinDays()
	if len(t.series) < minDays {
		return nil, nil
	}

	days := make(map[string]struct{}, len(cfg.days))
	for _, d := range cfg.days {
		days[d] = struct{}{}
	}
	periods := []int{cfg.holding}

	for i, bar := range t.series {
		if _, ok := days[bar.Date]; !ok {
			continue
		}
		prefix := t.series[: i+1 : i+1]
		if len(prefix) < minDays {
			continue
		}
		signal, err := cfg.detector.Detect(prefix)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrDetector, t.symbol, bar.Date, err)
		}
		if !signal {
			continue
		}
		r, ok := domain.ComputeReturns(t.series, bar.Date, periods)
		if !ok {
			continue
		}
		if res, ok := domain.NewBacktestResult(r, cfg.holding); ok {
			out = append(out, res)
		}
	}
	return out, nil
}
