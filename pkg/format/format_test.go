package format

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/masahide/donutsmp-bot/pkg/donutapi"
	"github.com/masahide/donutsmp-bot/pkg/roster"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "$0"},
		{999, "$999"},
		{1000, "$1,000"},
		{1500000, "$1,500,000"},
		{1234567890, "$1,234,567,890"},
	}
	for _, tt := range tests {
		if got := Money(tt.in); got != tt.want {
			t.Errorf("Money(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0d 0h 0m"},
		{59, "0d 0h 0m"},
		{3600, "0d 1h 0m"},
		{93784, "1d 2h 3m"},
		{-5, "0d 0h 0m"},
	}
	for _, tt := range tests {
		if got := Duration(tt.in); got != tt.want {
			t.Errorf("Duration(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		value, total int
		want         string
	}{
		{1, 2, "50.0%"},
		{1, 3, "33.3%"},
		{2, 3, "66.7%"},
		{3, 3, "100.0%"},
		{0, 0, "0.0%"},
	}
	for _, tt := range tests {
		if got := Percentage(tt.value, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %q, want %q", tt.value, tt.total, got, tt.want)
		}
	}
}

var now = time.Date(2024, 6, 30, 9, 55, 59, 0, time.UTC)

func bob() roster.PlayerResult {
	return roster.PlayerResult{
		Name:   "bob",
		Stats:  donutapi.Stats{"money": json.Number("1500000"), "playtime": json.Number("93784")},
		Lookup: &donutapi.Presence{Location: "spawn"},
	}
}

func TestPlayerEmbedVariants(t *testing.T) {
	tests := []struct {
		name     string
		in       roster.PlayerResult
		money    string
		online   string
		location string
		desc     string
		color    int
	}{
		{"full", bob(), "$1,500,000", "✅ Yes", "spawn", "", colorOnline},
		{"none", roster.PlayerResult{Name: "alice"}, "N/A", "❓ Unknown", "Unknown", DescNoData, colorError},
		{"lookup only offline", roster.PlayerResult{Name: "alice", Lookup: &donutapi.Presence{Offline: true}},
			"N/A", "❄️ No", "Offline", DescLookupOnly, colorWarn},
		{"stats only", roster.PlayerResult{Name: "bob", Stats: bob().Stats}, "$1,500,000", "❓ Unknown", "Unknown", DescStatsOnly, colorWarn},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			e := PlayerEmbed(tt.in, now)
			if e.Title != "📊 Status for "+tt.in.Name {
				t.Fatalf("title = %q", e.Title)
			}
			if got := e.Fields[0].Value; got != tt.money {
				t.Fatalf("money = %q, want %q", got, tt.money)
			}
			if got := e.Fields[3].Value; got != tt.online {
				t.Fatalf("online = %q, want %q", got, tt.online)
			}
			if got := e.Fields[4].Value; got != tt.location {
				t.Fatalf("location = %q, want %q", got, tt.location)
			}
			if e.Description != tt.desc {
				t.Fatalf("description = %q, want %q", e.Description, tt.desc)
			}
			if e.Color != tt.color {
				t.Fatalf("color = %#x, want %#x", e.Color, tt.color)
			}
			if e.Timestamp != "2024-06-30T09:55:59Z" {
				t.Fatalf("timestamp = %q", e.Timestamp)
			}
		})
	}
}

func TestPlayerEmbedPlaytime(t *testing.T) {
	e := PlayerEmbed(bob(), now)
	if got := e.Fields[1].Value; got != "1d 2h 3m" {
		t.Fatalf("playtime = %q", got)
	}
}

func TestDetailedStatsEmbed(t *testing.T) {
	p := roster.PlayerResult{
		Name: "wacai",
		Stats: donutapi.Stats{
			"money":                json.Number("2500"),
			"shards":               json.Number("12"),
			"kills":                json.Number("7"),
			"deaths":               json.Number("3"),
			"playtime":             json.Number("3600"),
			"money_spent_on_shop":  json.Number("100"),
			"money_made_from_sell": "4000",
			"placed_blocks":        json.Number("10"),
			"broken_blocks":        json.Number("20"),
		},
		StatsFetchedAt: now,
	}
	e := DetailedStatsEmbed(p)
	want := map[string]string{
		"💰 Money":       "$2,500",
		"💎 Shards":      "12",
		"⚔️ K/D Ratio":  "7/3",
		"⏳ Playtime":    "0d 1h 0m",
		"🛒 Money Spent": "$100",
		"💰 Money Earned": "$4,000",
		"🧱 Blocks":      "Placed: 10\nBroken: 20",
		"👹 Mobs Killed": "N/A",
	}
	if len(e.Fields) != len(want) {
		t.Fatalf("fields = %d", len(e.Fields))
	}
	for _, f := range e.Fields {
		if w, ok := want[f.Name]; !ok || w != f.Value {
			t.Errorf("field %q = %q, want %q", f.Name, f.Value, w)
		}
	}
	if e.Footer == nil || e.Footer.Text != "Last updated • 09:55:59" {
		t.Fatalf("footer = %+v", e.Footer)
	}

	missing := DetailedStatsEmbed(roster.PlayerResult{Name: "ghost"})
	if missing.Color != colorError || missing.Title != "❌ Error fetching stats for ghost" {
		t.Fatalf("missing = %+v", missing)
	}
}

func exampleSnapshot() roster.Snapshot {
	return roster.Snapshot{
		Order: []string{"alice", "bob"},
		Players: map[string]roster.PlayerResult{
			"alice": {Name: "alice", Lookup: &donutapi.Presence{Offline: true}},
			"bob":   bob(),
		},
		UpdatedAt: now,
	}
}

func TestSummaryEmbed(t *testing.T) {
	e := SummaryEmbed(exampleSnapshot(), now)
	if e.Description != "Showing latest data for 2 tracked player(s)." {
		t.Fatalf("description = %q", e.Description)
	}
	want := []string{"$1,500,000", "2/2 (100.0%)", "1/2", "09:55:59"}
	for i, w := range want {
		if e.Fields[i].Value != w {
			t.Errorf("field %d (%s) = %q, want %q", i, e.Fields[i].Name, e.Fields[i].Value, w)
		}
	}

	empty := SummaryEmbed(roster.Snapshot{Order: []string{"alice"}}, now)
	if empty.Fields[0].Value != "$0" || empty.Fields[1].Value != "0/1 (0.0%)" || empty.Fields[3].Value != "Never" {
		t.Fatalf("empty summary = %+v", empty.Fields)
	}
}

func TestEmbeds(t *testing.T) {
	embeds := Embeds(exampleSnapshot(), now, false)
	if len(embeds) != 3 {
		t.Fatalf("embeds = %d", len(embeds))
	}
	if embeds[0].Title != "🏆 DonutSMP Summary" || embeds[1].Title != "📊 Status for alice" {
		t.Fatalf("unexpected order: %q, %q", embeds[0].Title, embeds[1].Title)
	}

	detailed := Embeds(exampleSnapshot(), now, true)
	if detailed[2].Title != "📊 Stats for bob" {
		t.Fatalf("detailed title = %q", detailed[2].Title)
	}

	if got := Embeds(roster.Snapshot{Order: []string{"alice"}, Players: map[string]roster.PlayerResult{"alice": {Name: "alice"}}}, now, false); got != nil {
		t.Fatalf("expected no embeds on total failure, got %d", len(got))
	}
}

func TestEmbedsCapped(t *testing.T) {
	snap := roster.Snapshot{Players: map[string]roster.PlayerResult{}}
	for i := 0; i < 15; i++ {
		name := fmt.Sprintf("p%02d", i)
		snap.Order = append(snap.Order, name)
		snap.Players[name] = roster.PlayerResult{Name: name, Lookup: &donutapi.Presence{Offline: true}}
	}
	if got := len(Embeds(snap, now, false)); got != MaxEmbeds {
		t.Fatalf("embeds = %d, want %d", got, MaxEmbeds)
	}
}

func TestRefreshMessage(t *testing.T) {
	want := "✅ Fetched latest data for 1/2 players. Use '/check' to view the details."
	if got := RefreshMessage(1, 2); got != want {
		t.Fatalf("got %q", got)
	}
}

func TestStatusText(t *testing.T) {
	if got := StatusText(exampleSnapshot()); got != "DonutSMP Live Stats (1/2 online)" {
		t.Fatalf("got %q", got)
	}
}
