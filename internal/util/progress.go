package util

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Byte formatting
// ──────────────────────────────────────────────────────────────────────────────

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// FormatBytes formats a byte count into a human-readable string,
// for example "99.0 B", "1.5 KiB", "98.9 GiB".
func FormatBytes(b float64) string {
	unitIdx := 0
	for b > 99 && unitIdx < len(byteUnits)-1 {
		b /= 1024
		unitIdx++
	}
	return fmt.Sprintf("%.1f %s", b, byteUnits[unitIdx])
}

// ──────────────────────────────────────────────────────────────────────────────
// Transfer progress
// ──────────────────────────────────────────────────────────────────────────────

// RateTracker derives an instantaneous transfer rate from cumulative byte
// samples.
type RateTracker struct {
	start     time.Time
	last      time.Time
	lastBytes uint64
	rate      float64
}

// NewRateTracker starts tracking from now.
func NewRateTracker() *RateTracker {
	now := time.Now()
	return &RateTracker{start: now, last: now}
}

// Sample records the cumulative transferred byte count and returns the
// instantaneous rate in bytes/second. Samples closer together than 100ms
// reuse the previous rate to keep the readout stable.
func (r *RateTracker) Sample(transferred uint64) float64 {
	now := time.Now()
	dt := now.Sub(r.last).Seconds()
	if dt < 0.1 {
		return r.rate
	}
	r.rate = float64(transferred-r.lastBytes) / dt
	r.last = now
	r.lastBytes = transferred
	return r.rate
}

// ProgressObserver receives (transferred, total, instantaneous rate)
// samples. It has no effect on the protocol.
type ProgressObserver interface {
	Sample(transferred, total uint64, rate float64)
}

// ProgressBar renders transfer progress with pterm.
type ProgressBar struct {
	title   string
	tracker *RateTracker
	bar     *pterm.ProgressbarPrinter
}

// NewProgressBar creates an unstarted progress bar for the named file.
func NewProgressBar(title string) *ProgressBar {
	return &ProgressBar{title: title, tracker: NewRateTracker()}
}

// Sample implements ProgressObserver.
func (p *ProgressBar) Sample(transferred, total uint64, rate float64) {
	if p.bar == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(int(total)).
			WithTitle(p.title).
			WithShowCount(false).
			Start()
		if err != nil {
			return
		}
		p.bar = bar
	}
	p.bar.Current = int(transferred)
	p.bar.UpdateTitle(fmt.Sprintf("%s  %s/s", p.title, FormatBytes(rate)))
}

// Rate exposes the tracker so callers can feed raw (transferred, total)
// pairs and let the bar compute its own rate.
func (p *ProgressBar) Rate(transferred uint64) float64 {
	return p.tracker.Sample(transferred)
}

// Done stops rendering.
func (p *ProgressBar) Done() {
	if p.bar != nil {
		p.bar.Current = p.bar.Total
		_, _ = p.bar.Stop()
	}
}
