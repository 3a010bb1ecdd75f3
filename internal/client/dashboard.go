package client

import (
	"context"

	"book-production-tracker/internal/config"
)

// Dashboard ties a Synchronizer to its schedulers using the configured
// intervals: debounced search input and the visibility-gated periodic
// refresh that keeps displayed time accumulators ticking.
type Dashboard struct {
	Sync *Synchronizer

	search    *Debouncer
	refresher *PeriodicRefresher
}

// NewDashboard assembles the dashboard core around an authenticated Client.
// visible may be nil, in which case every periodic tick refreshes.
func NewDashboard(api *Client, username string, cfg config.ClientConfig, visible func() bool) (*Dashboard, error) {
	s := NewSynchronizer(api, username)

	refresher, err := NewPeriodicRefresher(cfg.RefreshInterval, visible, func() {
		// A tick that lands while a fetch is in flight is dropped, not queued.
		_ = s.RefreshCurrent(context.Background())
	})
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Sync:      s,
		search:    NewDebouncer(cfg.SearchDebounce),
		refresher: refresher,
	}, nil
}

// Start begins the periodic refresh schedule.
func (d *Dashboard) Start() {
	d.refresher.Start()
}

// Stop halts the periodic refresh and discards any pending search callback.
func (d *Dashboard) Stop() {
	d.refresher.Stop()
	d.search.Stop()
}

// SearchInput feeds the search box's current value. The term is applied
// immediately; the page-1 refresh fires only after the configured quiet
// period, so a burst of keystrokes costs one fetch.
func (d *Dashboard) SearchInput(term string) {
	d.Sync.SetSearch(term)
	d.search.Trigger(func() {
		_ = d.Sync.Refresh(context.Background(), 1)
	})
}
