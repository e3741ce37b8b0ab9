package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/glimt/datascout/internal/discord"
)

const helpText = "**Datascout commands**\n" +
	"`/ask-data question:<text>` ask a question about the data; I run the queries and answer in this channel\n" +
	"`/catalog` list the databases in the data catalog\n" +
	"`/catalog database:<name>` list the tables of one database\n" +
	"`/history [count] [query]` recently answered questions (analysts only)\n" +
	"`/help` this message\n\n" +
	"Questions can take a minute or two while queries run. Large results are " +
	"summarized; ask for a download link if you need the full output."

// HelpCommand implements the static /help command.
type HelpCommand struct{}

// NewHelpCommand creates a HelpCommand handler.
func NewHelpCommand() *HelpCommand {
	return &HelpCommand{}
}

// Register registers the /help command with the router.
func (hc *HelpCommand) Register(router *discord.CommandRouter) {
	router.RegisterCommand("help", hc.Definition(), hc.handle)
}

// Definition returns the /help ApplicationCommand for Discord registration.
func (hc *HelpCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "help",
		Description: "Show what Datascout can do",
	}
}

func (hc *HelpCommand) handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	discord.RespondEphemeral(s, i, helpText)
}
