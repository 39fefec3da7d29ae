package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kelseyhightower/envconfig"

	"github.com/masahide/donutsmp-bot/pkg/config"
	"github.com/masahide/donutsmp-bot/pkg/donutapi"
	"github.com/masahide/donutsmp-bot/pkg/format"
	"github.com/masahide/donutsmp-bot/pkg/roster"
	"github.com/masahide/donutsmp-bot/pkg/statusapi"
)

type env struct {
	config.Env
	// Discord
	DiscordToken    string `envconfig:"DISCORD_TOKEN"`
	DiscordServerID string `envconfig:"DISCORD_SERVER_ID"` // 空ならグローバルコマンドとして登録
	// 定期更新
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	StatusUpdate    bool          `envconfig:"STATUS_UPDATE" default:"true"`
}

type statusUpdater interface {
	UpdateWatchStatus(idle int, name string) error
}

type discordbot struct {
	env
	ctx   context.Context
	agg   *roster.Aggregator
	now   func() time.Time
	start sync.Once
}

func newDiscordbot(ctx context.Context, e env, agg *roster.Aggregator) *discordbot {
	return &discordbot{env: e, ctx: ctx, agg: agg, now: time.Now}
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
	agg := roster.NewAggregator(donutapi.New(e.Env), players, roster.NewStore(config.Names(players)))

	apiCfg, err := statusapi.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("status api config error: %v", err)
	}

	dg, err := discordgo.New("Bot " + e.DiscordToken)
	if err != nil {
		log.Fatalf("error creating Discord session: %v", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := newDiscordbot(ctx, e, agg)
	dg.AddHandler(d.ready)
	dg.AddHandler(d.interactionCreate)
	if err := dg.Open(); err != nil {
		log.Fatalf("❌ Discord login failed: %v", err)
	}
	defer dg.Close()

	var srv *http.Server
	if apiCfg.APIAddr != "" {
		srv = statusapi.NewServer(apiCfg, agg)
		go func() {
			log.Printf("status api listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("status api error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("shutting down...")
	if srv != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}
}

func (d *discordbot) ready(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("🚀 Bot ready as %s", event.User.Username)
	appID := event.User.ID
	if event.Application != nil && event.Application.ID != "" {
		appID = event.Application.ID
	}
	d.onReady(s, s, appID)
}

// onReady runs on every gateway READY; the refresher is only started once.
func (d *discordbot) onReady(r commandRegistrar, su statusUpdater, appID string) {
	if err := registerCommands(r, appID, d.DiscordServerID); err != nil {
		log.Printf("❌ %s", err)
	}
	if err := su.UpdateWatchStatus(0, "DonutSMP Live Stats"); err != nil {
		log.Printf("Error updating status: %s", err)
	}
	d.start.Do(func() {
		refresher := &roster.Refresher{Aggregator: d.agg, Interval: d.RefreshInterval}
		if d.StatusUpdate {
			refresher.OnRefresh = func(snap roster.Snapshot) {
				if err := su.UpdateWatchStatus(0, format.StatusText(snap)); err != nil {
					log.Printf("Error updating status: %s", err)
				}
			}
		}
		go refresher.Run(d.ctx)
	})
}

func (d *discordbot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	d.handleInteraction(s, i)
}
