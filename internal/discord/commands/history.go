package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/glimt/datascout/internal/discord"
	"github.com/glimt/datascout/internal/history"
)

const (
	historyTimeout      = 10 * time.Second
	defaultHistoryCount = 10
	maxHistoryCount     = 50
	// maxSnippetLen keeps one record's answer preview to a single line.
	maxSnippetLen = 120
)

// HistoryCommand holds the dependencies for the /history slash command.
// The command is gated on the analyst role.
type HistoryCommand struct {
	perms *discord.PermissionChecker
	store history.Store
}

// NewHistoryCommand creates a HistoryCommand handler.
func NewHistoryCommand(perms *discord.PermissionChecker, store history.Store) *HistoryCommand {
	return &HistoryCommand{perms: perms, store: store}
}

// Register registers the /history command with the router.
func (hc *HistoryCommand) Register(router *discord.CommandRouter) {
	router.RegisterCommand("history", hc.Definition(), hc.handle)
}

// Definition returns the /history ApplicationCommand for Discord registration.
func (hc *HistoryCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "history",
		Description: "Show recently answered data questions (analysts only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "count",
				Description: fmt.Sprintf("How many records to show (default %d, max %d)", defaultHistoryCount, maxHistoryCount),
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Full-text search over questions and answers",
				Required:    false,
			},
		},
	}
}

func (hc *HistoryCommand) handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hc.perms.IsAnalyst(i) {
		discord.RespondEphemeral(s, i, "You need the analyst role to view question history.")
		return
	}

	count := int(optionInt(i, "count", defaultHistoryCount))
	if count < 1 {
		count = defaultHistoryCount
	}
	if count > maxHistoryCount {
		count = maxHistoryCount
	}
	query := strings.TrimSpace(optionString(i, "query"))

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	var (
		records []history.Record
		err     error
	)
	if query != "" {
		records, err = hc.store.Search(ctx, query, count)
	} else {
		records, err = hc.store.Recent(ctx, count)
	}
	if err != nil {
		slog.Warn("history lookup failed", "query", query, "err", err)
		discord.RespondEphemeral(s, i, fmt.Sprintf("Failed to fetch history: %v", err))
		return
	}

	if len(records) == 0 {
		if query != "" {
			discord.RespondEphemeral(s, i, fmt.Sprintf("No records matching %q.", query))
		} else {
			discord.RespondEphemeral(s, i, "No questions recorded yet.")
		}
		return
	}

	discord.RespondEphemeral(s, i, formatRecords(records))
}

// formatRecords renders records newest first, one block per question.
func formatRecords(records []history.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Question history** (%d):\n", len(records))
	for _, rec := range records {
		status := rec.Status
		if status == "" {
			status = "ok"
		}
		fmt.Fprintf(&sb, "**%s** by %s (%s, %s)\n",
			rec.AskedAt.Format("2006-01-02 15:04"),
			rec.AskerName,
			status,
			rec.Duration.Round(time.Second),
		)
		fmt.Fprintf(&sb, "> Q: %s\n", snippet(rec.Question))
		fmt.Fprintf(&sb, "> A: %s\n", snippet(rec.Answer))
	}
	return sb.String()
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxSnippetLen {
		return text[:maxSnippetLen-1] + "…"
	}
	if text == "" {
		return "(empty)"
	}
	return text
}
