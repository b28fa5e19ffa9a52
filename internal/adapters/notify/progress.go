package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"golang.org/x/time/rate"
)

const barWidth = 30

// Progress imprime el avance de una operación larga. En una terminal
// redibuja una barra en la misma línea; fuera de ella emite una línea cada
// pocos segundos para no inundar logs de CI. Update no es thread-safe: se
// llama desde la goroutine que recoge los resultados.
type Progress struct {
	out   io.Writer
	label string
	tty   bool
	every rate.Sometimes
	start time.Time
	done  bool
}

// NewProgress crea un indicador para label. Detecta TTY si out es un *os.File.
func NewProgress(out io.Writer, label string) *Progress {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	interval := 5 * time.Second
	if tty {
		interval = 100 * time.Millisecond
	}
	return &Progress{
		out:   out,
		label: label,
		tty:   tty,
		every: rate.Sometimes{First: 1, Interval: interval},
		start: time.Now(),
	}
}

// Update registra completed/total. La última actualización siempre se imprime.
func (p *Progress) Update(completed, total int) {
	if p.done {
		return
	}
	if total > 0 && completed >= total {
		p.done = true
		p.render(completed, total)
		if p.tty {
			fmt.Fprintln(p.out)
		}
		return
	}
	p.every.Do(func() { p.render(completed, total) })
}

// Finish cierra la línea aunque no se haya llegado al total (p.ej. resultado cacheado).
func (p *Progress) Finish(note string) {
	if p.done {
		return
	}
	p.done = true
	if p.tty {
		fmt.Fprint(p.out, "\r")
	}
	fmt.Fprintf(p.out, "%s %s\n", p.label, note)
}

func (p *Progress) render(completed, total int) {
	frac := 0.0
	if total > 0 {
		frac = float64(completed) / float64(total)
	}
	elapsed := FormatDuration(time.Since(p.start))
	if !p.tty {
		fmt.Fprintf(p.out, "%s %d/%d (%.0f%%) %s\n", p.label, completed, total, frac*100, elapsed)
		return
	}
	filled := int(frac * barWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
	fmt.Fprintf(p.out, "\r%s [%s] %3.0f%% %d/%d %s", p.label, bar, frac*100, completed, total, elapsed)
}
