// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"strings"
	"time"
)

// ManualProgressBar implements a progress bar that the caller drives:
// Increment is called after each completed unit of work, and Display
// is called whenever an updated bar should be printed to the screen.
//
// ManualProgressBar does not use concurrency.
type ManualProgressBar struct {
	width     int
	max       int
	progress  int
	bar       strings.Builder
	startTime time.Time
}

// NewManualProgressBar returns a new progress bar that is width
// characters wide and reaches 100% after max calls to Increment.
func NewManualProgressBar(width, max int) *ManualProgressBar {
	return &ManualProgressBar{
		width:     width,
		max:       max,
		startTime: time.Now(),
	}
}

// Increment records one completed unit of work. Calls past max are
// ignored.
func (p *ManualProgressBar) Increment() {
	if p.progress < p.max {
		p.progress++
	}
}

// Display redraws the progress bar on the current terminal line
func (p *ManualProgressBar) Display() {
	p.bar.Reset()
	p.bar.WriteString("|")

	filled := p.progress * p.width / p.max
	for i := 0; i < filled; i++ {
		p.bar.WriteString("█")
	}
	for i := filled; i < p.width; i++ {
		p.bar.WriteString(" ")
	}

	percent := 100 * float64(p.progress) / float64(p.max)
	p.bar.WriteString(fmt.Sprintf("| [%.2f%v | elapsed: %v]", percent,
		"%", time.Since(p.startTime).Truncate(time.Second)))

	fmt.Printf("\n\033[1A\033[K%v", p.bar.String())
}
