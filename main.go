package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mackerelio/mackerel-client-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkMetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/masahide/donutsmp-bot/pkg/config"
	"github.com/masahide/donutsmp-bot/pkg/donutapi"
	"github.com/masahide/donutsmp-bot/pkg/roster"
)

const (
	stateDirName  = "donutsmp-monitor"
	stateFileName = "donutsmp-monitor"
)

type env struct {
	Debug          bool   `envconfig:"DEBUG" default:"false"`
	MackerelHostID string `envconfig:"MACKEREL_HOST_ID"`
	MackerelAPIKey string `envconfig:"MACKEREL_API_KEY"`
	// OTLP の送信先は OTEL_EXPORTER_OTLP_* で指定する
	OTLPEnabled bool `envconfig:"OTLP_ENABLED" default:"false"`
	config.Env
}

type exporter struct {
	env
	mkr       *mackerel.Client
	names     []string
	stateFile string
	agg       *roster.Aggregator
}

func jsonDump(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// Mackerel のメトリック名に使えない文字は _ に置き換える
var invalidMetricChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func metricKey(name string) string {
	return invalidMetricChars.ReplaceAllString(name, "_")
}

var errMetricKeyCollision = errors.New("players share a metric key")

// checkMetricKeys rejects rosters where two names sanitize to the same key.
func checkMetricKeys(names []string) error {
	owner := make(map[string]string, len(names))
	for _, n := range names {
		key := metricKey(n)
		if prev, ok := owner[key]; ok {
			return fmt.Errorf("%w: %q and %q -> %q", errMetricKeyCollision, prev, n, key)
		}
		owner[key] = n
	}
	return nil
}

func onlineValue(p roster.PlayerResult) (int64, bool) {
	if p.Lookup == nil {
		return 0, false
	}
	if p.Lookup.Online() {
		return 1, true
	}
	return 0, true
}

func createMetrics(snap roster.Snapshot, now time.Time) []*mackerel.MetricValue {
	res := make([]*mackerel.MetricValue, 0, len(snap.Order)*3)
	for _, p := range snap.Results() {
		key := metricKey(p.Name)
		if v, ok := p.Stats.Int("money"); ok {
			res = append(res, &mackerel.MetricValue{Name: "custom.donut.money." + key, Time: now.Unix(), Value: v})
		}
		if v, ok := p.Stats.Int("playtime"); ok {
			res = append(res, &mackerel.MetricValue{Name: "custom.donut.playtime." + key, Time: now.Unix(), Value: v})
		}
		if v, ok := onlineValue(p); ok {
			res = append(res, &mackerel.MetricValue{Name: "custom.donut.online." + key, Time: now.Unix(), Value: v})
		}
	}
	return res
}

func makeDef(names []string) []*mackerel.GraphDefsParam {
	graphs := []struct {
		name, display, unit string
		stacked             bool
	}{
		{"custom.donut.money", "所持金", "integer", false},
		{"custom.donut.playtime", "プレイ時間", "seconds", false},
		{"custom.donut.online", "オンライン", "integer", true}, // 積み上げでオンライン人数になる
	}
	defs := make([]*mackerel.GraphDefsParam, 0, len(graphs))
	for _, g := range graphs {
		def := &mackerel.GraphDefsParam{Name: g.name, DisplayName: g.display, Unit: g.unit}
		for _, n := range names {
			def.Metrics = append(def.Metrics, &mackerel.GraphDefsMetric{
				Name:        g.name + "." + metricKey(n),
				DisplayName: n,
				IsStacked:   g.stacked,
			})
		}
		defs = append(defs, def)
	}
	return defs
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (e *exporter) postGraphDefs(defs []*mackerel.GraphDefsParam) error {
	if e.Debug {
		log.Printf("Posting graph defs: %s", jsonDump(defs))
		return nil
	}
	return e.mkr.CreateGraphDefs(defs)
}

func (e *exporter) job(ctx context.Context) roster.Snapshot {
	snap := e.agg.FetchRoster(ctx)
	if snap.Successful() == 0 {
		log.Println("No player data fetched")
		return snap
	}
	if !sameNames(e.names, snap.Order) {
		if err := e.postGraphDefs(makeDef(snap.Order)); err != nil {
			log.Printf("Error posting graph defs: %s", err)
		} else {
			e.names = snap.Order
			if err := saveState(e.stateFile, e.names); err != nil {
				log.Println(err)
			}
		}
	}
	metrics := createMetrics(snap, time.Now())
	if e.Debug {
		log.Println(jsonDump(metrics))
		return snap
	}
	if err := e.mkr.PostHostMetricValuesByHostID(e.MackerelHostID, metrics); err != nil {
		log.Println(err)
	}
	return snap
}

func readState(file string, v any) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

func saveState(file string, v any) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(v)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	e := env{}
	if err := envconfig.Process("", &e); err != nil {
		log.Fatal(err)
	}
	players, err := config.LoadRoster(e.Env)
	if err != nil {
		log.Fatalf("roster error: %v", err)
	}
	if err := checkMetricKeys(config.Names(players)); err != nil {
		log.Fatalf("roster error: %v", err)
	}
	dir := filepath.Join(os.TempDir(), fmt.Sprintf("%s_%d", stateDirName, os.Getuid()))
	fpath := filepath.Join(dir, stateFileName)
	ex := &exporter{
		env:       e,
		mkr:       mackerel.NewClient(e.MackerelAPIKey),
		names:     []string{},
		stateFile: fpath,
		agg:       roster.NewAggregator(donutapi.New(e.Env), players, nil),
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Println(err)
	}
	if err := readState(fpath, &ex.names); err != nil {
		ex.names = []string{}
		_ = saveState(fpath, ex.names)
		log.Printf("Create State file: %s", fpath)
	}
	snap := ex.job(context.Background())
	if e.OTLPEnabled {
		putOtelMetrics(snap)
	}
}

func setupMeter() (metric.Meter, func()) {
	exp, err := otlpmetrichttp.New(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	// 一回実行なので Shutdown 時の flush だけで送る
	reader := sdkMetric.NewPeriodicReader(exp, sdkMetric.WithInterval(24*time.Hour))
	mp := sdkMetric.NewMeterProvider(sdkMetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	return mp.Meter("donutsmp"), func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}
}

func putOtelMetrics(snap roster.Snapshot) {
	meter, shutdown := setupMeter()
	defer shutdown()

	// ObservableGauge を登録：収集タイミング毎にコールバックで現在値を返す
	moneyGauge, _ := meter.Int64ObservableGauge("donutsmp.player.money")
	playtimeGauge, _ := meter.Int64ObservableGauge("donutsmp.player.playtime", metric.WithUnit("s"))
	onlineGauge, _ := meter.Int64ObservableGauge("donutsmp.player.online")

	_, err := meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		for _, p := range snap.Results() {
			attrs := metric.WithAttributeSet(attribute.NewSet(attribute.String("player", p.Name)))
			if v, ok := p.Stats.Int("money"); ok {
				o.ObserveInt64(moneyGauge, v, attrs)
			}
			if v, ok := p.Stats.Int("playtime"); ok {
				o.ObserveInt64(playtimeGauge, v, attrs)
			}
			if v, ok := onlineValue(p); ok {
				o.ObserveInt64(onlineGauge, v, attrs)
			}
		}
		return nil
	}, moneyGauge, playtimeGauge, onlineGauge)
	if err != nil {
		log.Fatal(err)
	}
}
