package main

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mackerelio/mackerel-client-go"

	"github.com/masahide/donutsmp-bot/pkg/config"
	"github.com/masahide/donutsmp-bot/pkg/donutapi"
	"github.com/masahide/donutsmp-bot/pkg/roster"
)

var now = time.Date(2024, 6, 30, 9, 55, 59, 0, time.UTC)

func exampleSnapshot() roster.Snapshot {
	return roster.Snapshot{
		Order: []string{"alice", "Bob Smith"},
		Players: map[string]roster.PlayerResult{
			"alice": {Name: "alice", Lookup: &donutapi.Presence{Offline: true}},
			"Bob Smith": {
				Name:   "Bob Smith",
				Stats:  donutapi.Stats{"money": json.Number("1500000"), "playtime": json.Number("93784")},
				Lookup: &donutapi.Presence{Location: "spawn"},
			},
		},
		UpdatedAt: now,
	}
}

func TestCreateMetrics(t *testing.T) {
	got := createMetrics(exampleSnapshot(), now)
	want := []*mackerel.MetricValue{
		{Name: "custom.donut.online.alice", Time: now.Unix(), Value: int64(0)},
		{Name: "custom.donut.money.Bob_Smith", Time: now.Unix(), Value: int64(1500000)},
		{Name: "custom.donut.playtime.Bob_Smith", Time: now.Unix(), Value: int64(93784)},
		{Name: "custom.donut.online.Bob_Smith", Time: now.Unix(), Value: int64(1)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("createMetrics mismatch (-want +got):\n%s", diff)
	}
}

func TestMakeDef(t *testing.T) {
	defs := makeDef([]string{"alice", "Bob Smith"})
	if len(defs) != 3 {
		t.Fatalf("defs = %d", len(defs))
	}
	want := &mackerel.GraphDefsParam{
		Name:        "custom.donut.online",
		DisplayName: "オンライン",
		Unit:        "integer",
		Metrics: []*mackerel.GraphDefsMetric{
			{Name: "custom.donut.online.alice", DisplayName: "alice", IsStacked: true},
			{Name: "custom.donut.online.Bob_Smith", DisplayName: "Bob Smith", IsStacked: true},
		},
	}
	if diff := cmp.Diff(want, defs[2]); diff != "" {
		t.Fatalf("online graph def mismatch (-want +got):\n%s", diff)
	}
}

func TestMetricKey(t *testing.T) {
	tests := map[string]string{
		"alice":     "alice",
		"Bob Smith": "Bob_Smith",
		"x.y":       "x_y",
		"a-b_c":     "a-b_c",
	}
	for in, want := range tests {
		if got := metricKey(in); got != want {
			t.Errorf("metricKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckMetricKeys(t *testing.T) {
	if err := checkMetricKeys([]string{"alice", "Bob Smith", "a-b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := checkMetricKeys([]string{"alice", "a.b", "a_b"})
	if !errors.Is(err, errMetricKeyCollision) {
		t.Fatalf("err = %v, want collision", err)
	}
}

func TestOnlineValue(t *testing.T) {
	if _, ok := onlineValue(roster.PlayerResult{Name: "alice"}); ok {
		t.Fatal("no lookup must not produce a value")
	}
	if v, ok := onlineValue(roster.PlayerResult{Lookup: &donutapi.Presence{Location: "spawn"}}); !ok || v != 1 {
		t.Fatalf("online = %d %t", v, ok)
	}
	if v, ok := onlineValue(roster.PlayerResult{Lookup: &donutapi.Presence{Offline: true}}); !ok || v != 0 {
		t.Fatalf("offline = %d %t", v, ok)
	}
}

func TestState(t *testing.T) {
	file := filepath.Join(t.TempDir(), stateFileName)
	if err := readState(file, &[]string{}); err == nil {
		t.Fatal("expected error for missing state file")
	}
	if err := saveState(file, []string{"alice", "bob"}); err != nil {
		t.Fatal(err)
	}
	var got []string
	if err := readState(file, &got); err != nil {
		t.Fatal(err)
	}
	if !sameNames(got, []string{"alice", "bob"}) {
		t.Fatalf("state = %v", got)
	}
	if sameNames(got, []string{"bob", "alice"}) || sameNames(got, []string{"alice"}) {
		t.Fatal("sameNames must compare order and length")
	}
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, category donutapi.Category, name, key string) donutapi.Result {
	if category == donutapi.CategoryStats {
		return donutapi.Result{Kind: donutapi.KindSuccess, Payload: json.RawMessage(`{"money":10,"playtime":60}`)}
	}
	return donutapi.Result{Kind: donutapi.KindKnownOffline, Status: 500}
}

func TestJobDebugSavesState(t *testing.T) {
	players := []config.Player{{Name: "alice", StatsKey: "k", LookupKey: "k"}}
	file := filepath.Join(t.TempDir(), stateFileName)
	ex := &exporter{
		env:       env{Debug: true},
		mkr:       mackerel.NewClient("unused"),
		names:     []string{},
		stateFile: file,
		agg:       roster.NewAggregator(stubFetcher{}, players, nil),
	}
	snap := ex.job(context.Background())
	if snap.Successful() != 1 {
		t.Fatalf("successful = %d", snap.Successful())
	}
	var saved []string
	if err := readState(file, &saved); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"alice"}, saved); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}
