package statusapi

import (
	"net/http"
	"time"

	"github.com/masahide/donutsmp-bot/pkg/donutapi"
	"github.com/masahide/donutsmp-bot/pkg/format"
	"github.com/masahide/donutsmp-bot/pkg/roster"
)

// --- Response DTOs (OpenAPI準拠) ---
type HealthResponse struct {
	OK bool `json:"ok"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// presence state: online|offline|unknown
type PresenceSummary struct {
	State    string `json:"state"`
	Location string `json:"location,omitempty"`
}

type PlayerSummary struct {
	Name            string           `json:"name"`
	Stats           donutapi.Stats   `json:"stats,omitempty"`
	Presence        *PresenceSummary `json:"presence,omitempty"`
	MoneyText       string           `json:"moneyText,omitempty"`
	PlaytimeText    string           `json:"playtimeText,omitempty"`
	StatsFetchedAt  *time.Time       `json:"statsFetchedAt,omitempty"`
	LookupFetchedAt *time.Time       `json:"lookupFetchedAt,omitempty"`
}

type RosterData struct {
	Players []PlayerSummary `json:"players"`
}

type RosterMeta struct {
	Tracked   int        `json:"tracked"`
	WithData  int        `json:"withData"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type RosterResponse struct {
	Data RosterData `json:"data"`
	Meta RosterMeta `json:"meta"`
}

type RefreshResponse struct {
	Fetched   int       `json:"fetched"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type server struct {
	agg *roster.Aggregator
	now func() time.Time
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func summarize(p roster.PlayerResult) PlayerSummary {
	out := PlayerSummary{
		Name:            p.Name,
		Stats:           p.Stats,
		Presence:        &PresenceSummary{State: "unknown"},
		StatsFetchedAt:  timePtr(p.StatsFetchedAt),
		LookupFetchedAt: timePtr(p.LookupFetchedAt),
	}
	if v, ok := p.Stats.Int("money"); ok {
		out.MoneyText = format.Money(v)
	}
	if v, ok := p.Stats.Int("playtime"); ok {
		out.PlaytimeText = format.Duration(v)
	}
	// 位置が取れなかった lookup は offline ではなく unknown
	switch {
	case p.Lookup.Online():
		out.Presence = &PresenceSummary{State: "online", Location: p.Lookup.Location}
	case p.Lookup != nil && p.Lookup.Offline:
		out.Presence = &PresenceSummary{State: "offline"}
	}
	return out
}

// =====================
// ハンドラ実装
// =====================

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{OK: true})
}

func (s *server) getRoster(w http.ResponseWriter, r *http.Request) {
	refresh, err := queryBool(r, "refresh", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if refresh {
		s.agg.Refresh(r.Context())
	}
	snap := s.agg.Store().Snapshot()
	resp := RosterResponse{
		Data: RosterData{Players: make([]PlayerSummary, 0, len(snap.Order))},
		Meta: RosterMeta{
			Tracked:   len(snap.Order),
			WithData:  snap.Successful(),
			UpdatedAt: timePtr(snap.UpdatedAt),
		},
	}
	for _, p := range snap.Results() {
		resp.Data.Players = append(resp.Data.Players, summarize(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) getPlayer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	store := s.agg.Store()
	if !store.Tracks(name) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "player is not on the roster: "+name)
		return
	}
	p, _ := store.Get(name)
	writeJSON(w, http.StatusOK, summarize(p))
}

func (s *server) refreshRoster(w http.ResponseWriter, r *http.Request) {
	snap := s.agg.Refresh(r.Context())
	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	writeJSON(w, http.StatusOK, RefreshResponse{
		Fetched:   snap.Successful(),
		Total:     len(s.agg.Roster()),
		UpdatedAt: updated,
	})
}
