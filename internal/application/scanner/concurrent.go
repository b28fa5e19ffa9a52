package scanner

// concurrent.go: worker pool para evaluar todos los símbolos de un scan.
//
// Los detectores son CPU-bound; las goroutines se reparten entre los hilos del
// runtime, así que N workers usan N cores sin pools de procesos.

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/alphaspike/internal/domain"
)

// analyzeConcurrent despacha los items a un pool de workers y entrega cada
// outcome a onOutcome en orden de finalización, siempre desde la goroutine
// llamante. Si workers <= 0 usa runtime.NumCPU().
func analyzeConcurrent(
	analyzer *Analyzer,
	items []domain.WorkItem,
	workers int,
	onOutcome func(domain.WorkOutcome),
) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(items), 1))

	workCh := make(chan domain.WorkItem, len(items))
	resultCh := make(chan domain.WorkOutcome, len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				resultCh <- analyzer.Analyze(item)
			}
		}()
	}

	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for out := range resultCh {
		if out.Status == domain.StatusError {
			slog.Debug("detector failed", "symbol", out.Symbol, "err", out.Err)
		}
		onOutcome(out)
	}

	slog.Debug("concurrent analysis complete",
		"items", len(items),
		"workers", workers,
	)
}
