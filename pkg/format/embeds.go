package format

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/masahide/donutsmp-bot/pkg/donutapi"
	"github.com/masahide/donutsmp-bot/pkg/roster"
)

// MaxEmbeds is the number of embeds Discord accepts in one message.
const MaxEmbeds = 10

const (
	colorOnline  = 0x00ff00
	colorWarn    = 0xffcc00
	colorError   = 0xff0000
	colorSummary = 0x7289da

	blank = "\u200B"
	na    = "N/A"
)

const (
	NoDataMessage         = "⚠️ Could not fetch any player data right now. Please try again later."
	ErrorMessage          = "❌ An error occurred while processing your command."
	UnknownCommandMessage = "Unknown command!"

	DescNoData     = "Could not retrieve any data for this player."
	DescStatsOnly  = "Online status unavailable, showing stats."
	DescLookupOnly = "Stats data unavailable, showing online status."
)

// RefreshMessage is the ephemeral reply to /refresh.
func RefreshMessage(fetched, total int) string {
	return fmt.Sprintf("✅ Fetched latest data for %d/%d players. Use '/check' to view the details.", fetched, total)
}

func moneyField(s donutapi.Stats, key string) string {
	if v, ok := s.Int(key); ok {
		return Money(v)
	}
	return na
}

func durationField(s donutapi.Stats, key string) string {
	if v, ok := s.Int(key); ok {
		return Duration(v)
	}
	return na
}

func clockTime(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Format("15:04:05")
}

// PlayerEmbed is the compact status card: money, playtime, online flag and location.
func PlayerEmbed(p roster.PlayerResult, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "📊 Status for " + p.Name,
		Timestamp: now.Format(time.RFC3339),
	}

	online, location := "❓ Unknown", "Unknown"
	embed.Color = colorWarn
	switch {
	case p.Lookup.Online():
		online, location = "✅ Yes", p.Lookup.Location
		embed.Color = colorOnline
	case p.Lookup != nil && p.Lookup.Offline:
		online, location = "❄️ No", "Offline"
	}

	money, playtime := na, na
	if p.Stats != nil {
		money = moneyField(p.Stats, "money")
		playtime = durationField(p.Stats, "playtime")
	}

	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "💰 Money", Value: money, Inline: true},
		{Name: "⏱️ Playtime", Value: playtime, Inline: true},
		{Name: blank, Value: blank, Inline: true},
		{Name: "🟢 Online", Value: online, Inline: true},
		{Name: "🗺️ Location", Value: location, Inline: true},
	}

	switch {
	case p.Stats == nil && p.Lookup == nil:
		embed.Description = DescNoData
		embed.Color = colorError
	case p.Stats == nil:
		embed.Description = DescLookupOnly
	case p.Lookup == nil:
		embed.Description = DescStatsOnly
	}
	return embed
}

// DetailedStatsEmbed is the full stats card.
func DetailedStatsEmbed(p roster.PlayerResult) *discordgo.MessageEmbed {
	if p.Stats == nil {
		return &discordgo.MessageEmbed{
			Color:       colorError,
			Title:       "❌ Error fetching stats for " + p.Name,
			Description: "Could not retrieve player data",
		}
	}
	s := p.Stats
	return &discordgo.MessageEmbed{
		Color: colorOnline,
		Title: "📊 Stats for " + p.Name,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💰 Money", Value: moneyField(s, "money"), Inline: true},
			{Name: "💎 Shards", Value: s.String("shards"), Inline: true},
			{Name: "⚔️ K/D Ratio", Value: s.String("kills") + "/" + s.String("deaths"), Inline: true},
			{Name: "⏳ Playtime", Value: durationField(s, "playtime"), Inline: true},
			{Name: "🛒 Money Spent", Value: moneyField(s, "money_spent_on_shop"), Inline: true},
			{Name: "💰 Money Earned", Value: moneyField(s, "money_made_from_sell"), Inline: true},
			{Name: "🧱 Blocks", Value: "Placed: " + s.String("placed_blocks") + "\nBroken: " + s.String("broken_blocks"), Inline: true},
			{Name: "👹 Mobs Killed", Value: s.String("mobs_killed"), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Last updated • " + clockTime(p.StatsFetchedAt)},
	}
}

// SummaryEmbed totals the roster.
func SummaryEmbed(snap roster.Snapshot, now time.Time) *discordgo.MessageEmbed {
	var total int64
	found, online := 0, 0
	for _, p := range snap.Results() {
		if p.Stats != nil {
			if v, ok := p.Stats.Int("money"); ok {
				total += v
			}
		}
		if p.Lookup != nil {
			found++
		}
		if p.Lookup.Online() {
			online++
		}
	}
	n := len(snap.Order)
	return &discordgo.MessageEmbed{
		Color:       colorSummary,
		Title:       "🏆 DonutSMP Summary",
		Description: fmt.Sprintf("Showing latest data for %d tracked player(s).", n),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💰 Total Money (Tracked)", Value: Money(total), Inline: true},
			{Name: "👀 Players Found Online/Offline", Value: fmt.Sprintf("%d/%d (%s)", found, n, Percentage(found, n)), Inline: true},
			{Name: "🟢 Online Now", Value: fmt.Sprintf("%d/%d", online, n), Inline: true},
			{Name: "🔄 Last Updated", Value: clockTime(snap.UpdatedAt), Inline: true},
		},
		Timestamp: now.Format(time.RFC3339),
	}
}

// Embeds renders the summary followed by one card per player, capped at MaxEmbeds.
// It returns nil when no player has any data.
func Embeds(snap roster.Snapshot, now time.Time, detailed bool) []*discordgo.MessageEmbed {
	if snap.Successful() == 0 {
		return nil
	}
	embeds := []*discordgo.MessageEmbed{SummaryEmbed(snap, now)}
	for _, p := range snap.Results() {
		if detailed {
			embeds = append(embeds, DetailedStatsEmbed(p))
		} else {
			embeds = append(embeds, PlayerEmbed(p, now))
		}
	}
	if len(embeds) > MaxEmbeds {
		embeds = embeds[:MaxEmbeds]
	}
	return embeds
}

// StatusText is the bot's "Watching" activity line.
func StatusText(snap roster.Snapshot) string {
	online := 0
	for _, p := range snap.Players {
		if p.Lookup.Online() {
			online++
		}
	}
	return fmt.Sprintf("DonutSMP Live Stats (%d/%d online)", online, len(snap.Order))
}
