package roster

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/masahide/donutsmp-bot/pkg/config"
	"github.com/masahide/donutsmp-bot/pkg/donutapi"
)

// Fetcher is implemented by *donutapi.Client.
type Fetcher interface {
	Fetch(ctx context.Context, category donutapi.Category, name, key string) donutapi.Result
}

// PlayerResult pairs a player with whatever halves could be fetched. A nil half is absent.
type PlayerResult struct {
	Name            string
	Stats           donutapi.Stats
	Lookup          *donutapi.Presence
	StatsFetchedAt  time.Time
	LookupFetchedAt time.Time
}

// HasData reports whether at least one half is present.
func (p PlayerResult) HasData() bool {
	return p.Stats != nil || p.Lookup != nil
}

// Snapshot maps player names to results for one roster.
type Snapshot struct {
	Players   map[string]PlayerResult
	Order     []string
	UpdatedAt time.Time
}

// Get returns the result for name. Unknown or missing players come back with both halves absent.
func (s Snapshot) Get(name string) (PlayerResult, bool) {
	p, ok := s.Players[name]
	if !ok {
		return PlayerResult{Name: name}, false
	}
	return p, true
}

// Results returns one entry per roster name, in roster order.
func (s Snapshot) Results() []PlayerResult {
	out := make([]PlayerResult, 0, len(s.Order))
	for _, name := range s.Order {
		p, _ := s.Get(name)
		out = append(out, p)
	}
	return out
}

// Successful counts the players with any data.
func (s Snapshot) Successful() int {
	n := 0
	for _, p := range s.Players {
		if p.HasData() {
			n++
		}
	}
	return n
}

// Aggregator fans fetches out over the roster and records them in a Store.
type Aggregator struct {
	client Fetcher
	roster []config.Player
	store  *Store
	now    func() time.Time
	group  singleflight.Group
}

func NewAggregator(client Fetcher, roster []config.Player, store *Store) *Aggregator {
	return &Aggregator{
		client: client,
		roster: roster,
		store:  store,
		now:    time.Now,
	}
}

// Roster returns the configured players.
func (a *Aggregator) Roster() []config.Player {
	out := make([]config.Player, len(a.roster))
	copy(out, a.roster)
	return out
}

// Store returns the store Refresh writes to.
func (a *Aggregator) Store() *Store {
	return a.store
}

// FetchRoster fetches stats and lookup for every valid player concurrently.
// Invalid entries are skipped with a warning; every valid player is present in the result.
func (a *Aggregator) FetchRoster(ctx context.Context) Snapshot {
	log.Printf("Fetching current data for: %s", strings.Join(config.Names(a.roster), ", "))
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		snap = Snapshot{Players: make(map[string]PlayerResult, len(a.roster))}
	)
	for _, p := range a.roster {
		if err := p.Validate(); err != nil {
			log.Printf("Skipping invalid player configuration: %s", err)
			continue
		}
		snap.Order = append(snap.Order, p.Name)
		snap.Players[p.Name] = PlayerResult{Name: p.Name}

		wg.Add(2)
		go func(p config.Player) {
			defer wg.Done()
			res := a.client.Fetch(ctx, donutapi.CategoryStats, p.Name, p.StatsKey)
			stats, err := res.Stats()
			if err != nil {
				return
			}
			at := a.now()
			mu.Lock()
			r := snap.Players[p.Name]
			r.Stats, r.StatsFetchedAt = stats, at
			snap.Players[p.Name] = r
			mu.Unlock()
		}(p)
		go func(p config.Player) {
			defer wg.Done()
			res := a.client.Fetch(ctx, donutapi.CategoryLookup, p.Name, p.LookupKey)
			presence, err := res.Presence()
			if err != nil {
				return
			}
			at := a.now()
			mu.Lock()
			r := snap.Players[p.Name]
			r.Lookup, r.LookupFetchedAt = presence, at
			snap.Players[p.Name] = r
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	snap.UpdatedAt = a.now()
	log.Printf("Finished fetching current data. (%d/%d players with data)", snap.Successful(), len(snap.Order))
	return snap
}

// Refresh runs FetchRoster and merges the result into the store.
// Concurrent callers share one in-flight aggregation. The aggregation ignores the
// cancellation of the caller that started it, since joined callers wait on the same result.
func (a *Aggregator) Refresh(ctx context.Context) Snapshot {
	v, _, shared := a.group.Do("roster", func() (any, error) {
		snap := a.FetchRoster(context.WithoutCancel(ctx))
		if a.store != nil {
			a.store.Merge(snap)
		}
		return snap, nil
	})
	if shared {
		log.Printf("Joined an in-flight roster refresh")
	}
	return v.(Snapshot)
}
