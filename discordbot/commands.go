package main

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"

	"github.com/masahide/donutsmp-bot/pkg/format"
	"github.com/masahide/donutsmp-bot/pkg/roster"
)

var slashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "check",
		Description: "Check latest player stats (Money, Playtime, Online Status)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "cache",
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Description: "Use cached data (default: true)",
				Required:    false,
			},
			{
				Name:        "detailed",
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Description: "Show the full stats card for each player",
				Required:    false,
			},
		},
	},
	{
		Name:        "refresh",
		Description: "Force fetch player stats and lookup data",
	},
}

// interactionResponder is the part of *discordgo.Session the command handlers use.
type interactionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type commandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// commandFunc reports whether the reply was already deferred, so errors can be sent the right way.
type commandFunc func(ctx context.Context, r interactionResponder, i *discordgo.InteractionCreate) (deferred bool, err error)

func (d *discordbot) commands() map[string]commandFunc {
	return map[string]commandFunc{
		"check":   d.handleCheck,
		"refresh": d.handleRefresh,
	}
}

func registerCommands(r commandRegistrar, appID, guildID string) error {
	log.Println("⏳ Registering slash commands...")
	if _, err := r.ApplicationCommandBulkOverwrite(appID, guildID, slashCommands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	log.Println("✅ Slash commands registered successfully!")
	return nil
}

func userTag(i *discordgo.InteractionCreate) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.Username
	case i.User != nil:
		return i.User.Username
	default:
		return "unknown"
	}
}

func boolOption(i *discordgo.InteractionCreate, name string, def bool) bool {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionBoolean {
			return opt.BoolValue()
		}
	}
	return def
}

func deferReply(r interactionResponder, i *discordgo.InteractionCreate, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return r.InteractionRespond(i.Interaction, resp)
}

func (d *discordbot) handleCheck(ctx context.Context, r interactionResponder, i *discordgo.InteractionCreate) (bool, error) {
	if err := deferReply(r, i, false); err != nil {
		return false, err
	}
	useCache := boolOption(i, "cache", true)
	detailed := boolOption(i, "detailed", false)
	log.Printf("Fetching data for /check requested by %s (cache:%t detailed:%t)", userTag(i), useCache, detailed)

	var snap roster.Snapshot
	if useCache && !d.agg.Store().Empty() {
		snap = d.agg.Store().Snapshot()
	} else {
		snap = d.agg.Refresh(ctx)
	}

	embeds := format.Embeds(snap, d.now(), detailed)
	edit := &discordgo.WebhookEdit{Embeds: &embeds}
	if len(embeds) == 0 {
		content := format.NoDataMessage
		empty := []*discordgo.MessageEmbed{}
		edit = &discordgo.WebhookEdit{Content: &content, Embeds: &empty}
	}
	_, err := r.InteractionResponseEdit(i.Interaction, edit)
	return true, err
}

func (d *discordbot) handleRefresh(ctx context.Context, r interactionResponder, i *discordgo.InteractionCreate) (bool, error) {
	if err := deferReply(r, i, true); err != nil {
		return false, err
	}
	log.Printf("Fetching data for /refresh requested by %s", userTag(i))
	snap := d.agg.Refresh(ctx)
	content := format.RefreshMessage(snap.Successful(), len(d.agg.Roster()))
	_, err := r.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	return true, err
}

// handleInteraction dispatches slash commands. Panics and errors are logged and
// answered with an ephemeral error message; they never reach the gateway loop.
func (d *discordbot) handleInteraction(r interactionResponder, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	deferred := false
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[PANIC] /%s: %v\n%s", name, rec, debug.Stack())
			d.replyError(r, i, deferred)
		}
	}()

	handler, ok := d.commands()[name]
	if !ok {
		log.Printf("Unknown command received: %s", name)
		err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: format.UnknownCommandMessage, Flags: discordgo.MessageFlagsEphemeral},
		})
		if err != nil {
			log.Printf("Error replying to unknown command: %s", err)
		}
		return
	}

	var err error
	deferred, err = handler(d.ctx, r, i)
	if err != nil {
		log.Printf("Error handling /%s command: %s", name, err)
		d.replyError(r, i, deferred)
	}
}

func (d *discordbot) replyError(r interactionResponder, i *discordgo.InteractionCreate, deferred bool) {
	var err error
	if deferred {
		_, err = r.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: format.ErrorMessage,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	} else {
		err = r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: format.ErrorMessage, Flags: discordgo.MessageFlagsEphemeral},
		})
		if err != nil {
			// the interaction may have been acknowledged before a panic
			_, err = r.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
				Content: format.ErrorMessage,
				Flags:   discordgo.MessageFlagsEphemeral,
			})
		}
	}
	if err != nil {
		log.Printf("Error sending error reply: %s", err)
	}
}
