package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/glimt/datascout/internal/athena"
	"github.com/glimt/datascout/internal/discord"
)

// catalogTimeout bounds one catalog listing call.
const catalogTimeout = 15 * time.Second

// maxAutocompleteChoices is Discord's limit on autocomplete results.
const maxAutocompleteChoices = 25

// Catalog lists databases and tables from the query backend's data catalog.
// Satisfied by *athena.Client.
type Catalog interface {
	Databases(ctx context.Context, max int) ([]string, bool, error)
	Tables(ctx context.Context, database string, max int, includeSchema bool) ([]athena.Table, bool, error)
}

// CatalogCommand holds the dependencies for the /catalog slash command.
type CatalogCommand struct {
	catalog Catalog
}

// NewCatalogCommand creates a CatalogCommand handler.
func NewCatalogCommand(catalog Catalog) *CatalogCommand {
	return &CatalogCommand{catalog: catalog}
}

// Register registers the /catalog command with the router.
func (cc *CatalogCommand) Register(router *discord.CommandRouter) {
	router.RegisterCommand("catalog", cc.Definition(), cc.handle)
	router.RegisterAutocomplete("catalog", cc.autocompleteDatabase)
}

// Definition returns the /catalog ApplicationCommand for Discord registration.
func (cc *CatalogCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "catalog",
		Description: "Browse the data catalog",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionString,
				Name:         "database",
				Description:  "List the tables of this database instead of listing databases",
				Required:     false,
				Autocomplete: true,
			},
		},
	}
}

// handle lists databases, or the tables of one database when the option
// is given.
func (cc *CatalogCommand) handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	discord.DeferReplyEphemeral(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	database := strings.TrimSpace(optionString(i, "database"))
	if database == "" {
		cc.listDatabases(ctx, s, i)
		return
	}
	cc.listTables(ctx, s, i, database)
}

func (cc *CatalogCommand) listDatabases(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	names, truncated, err := cc.catalog.Databases(ctx, 0)
	if err != nil {
		slog.Warn("catalog: list databases failed", "err", err)
		discord.FollowUpEphemeral(s, i, fmt.Sprintf("Failed to list databases: %v", err))
		return
	}
	if len(names) == 0 {
		discord.FollowUpEphemeral(s, i, "The catalog has no databases.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Databases** (%d):\n", len(names))
	for _, name := range names {
		fmt.Fprintf(&sb, "- `%s`\n", name)
	}
	if truncated {
		sb.WriteString("(listing truncated)\n")
	}
	discord.FollowUpEphemeral(s, i, sb.String())
}

func (cc *CatalogCommand) listTables(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, database string) {
	tables, truncated, err := cc.catalog.Tables(ctx, database, 0, false)
	if err != nil {
		slog.Warn("catalog: list tables failed", "database", database, "err", err)
		discord.FollowUpEphemeral(s, i, fmt.Sprintf("Failed to list tables in `%s`: %v", database, err))
		return
	}
	if len(tables) == 0 {
		discord.FollowUpEphemeral(s, i, fmt.Sprintf("Database `%s` has no tables.", database))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Tables in `%s`** (%d):\n", database, len(tables))
	for _, table := range tables {
		fmt.Fprintf(&sb, "- `%s`\n", table.Name)
	}
	if truncated {
		sb.WriteString("(listing truncated)\n")
	}
	discord.FollowUpEphemeral(s, i, sb.String())
}

// autocompleteDatabase suggests database names matching the typed prefix.
func (cc *CatalogCommand) autocompleteDatabase(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	prefix := strings.ToLower(strings.TrimSpace(optionString(i, "database")))

	names, _, err := cc.catalog.Databases(ctx, 0)
	if err != nil {
		slog.Debug("catalog: autocomplete listing failed", "err", err)
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, name := range names {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(name), prefix) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: name,
		})
		if len(choices) >= maxAutocompleteChoices {
			break
		}
	}

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}
