package roster

import (
	"context"
	"log"
	"time"
)

const DefaultInterval = 5 * time.Minute

// Refresher re-runs Aggregator.Refresh on a fixed interval.
type Refresher struct {
	Aggregator *Aggregator
	Interval   time.Duration
	// OnRefresh, if set, is called after every completed refresh.
	OnRefresh func(Snapshot)
}

// Run refreshes once immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log.Printf("roster refresher started interval:%s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("roster refresher stopped")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	snap := r.Aggregator.Refresh(ctx)
	if r.OnRefresh != nil {
		r.OnRefresh(snap)
	}
}
