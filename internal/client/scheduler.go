package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Debouncer coalesces bursts of triggers (search keystrokes) into one
// callback after a quiet period. Each new trigger replaces the pending
// timer, so only the last callback in a burst fires.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the quiet period, cancelling any previously
// scheduled callback.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop discards any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// PeriodicRefresher re-runs a refresh on a fixed interval so displayed
// time accumulators keep ticking. Ticks are skipped while the view is not
// visible, matching the dashboard's visibility-gated auto refresh.
type PeriodicRefresher struct {
	runner  *cron.Cron
	visible func() bool
	refresh func()
}

// NewPeriodicRefresher builds a refresher. visible may be nil, in which
// case every tick refreshes.
func NewPeriodicRefresher(interval time.Duration, visible func() bool, refresh func()) (*PeriodicRefresher, error) {
	p := &PeriodicRefresher{
		runner:  cron.New(),
		visible: visible,
		refresh: refresh,
	}
	_, err := p.runner.AddFunc(fmt.Sprintf("@every %s", interval), p.tick)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PeriodicRefresher) tick() {
	if p.visible != nil && !p.visible() {
		return
	}
	p.refresh()
}

// Start begins ticking.
func (p *PeriodicRefresher) Start() {
	p.runner.Start()
}

// Stop halts the schedule; a tick already running is not interrupted.
func (p *PeriodicRefresher) Stop() {
	p.runner.Stop()
}
