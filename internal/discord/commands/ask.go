package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/glimt/datascout/internal/discord"
)

// defaultAskTimeout bounds a single question end to end, including all
// model calls and query polling.
const defaultAskTimeout = 5 * time.Minute

// AskRequest carries one data question together with who asked it and where.
type AskRequest struct {
	Question  string
	AskerID   string
	AskerName string
	ChannelID string
}

// Asker answers a data question. Implemented by the application layer,
// which runs the model/tool loop against the query backend.
type Asker interface {
	Ask(ctx context.Context, req AskRequest) (string, error)
}

// AskCommand holds the dependencies for the /ask-data slash command.
type AskCommand struct {
	asker   Asker
	timeout time.Duration
}

// NewAskCommand creates an AskCommand handler. A zero timeout uses
// [defaultAskTimeout].
func NewAskCommand(asker Asker, timeout time.Duration) *AskCommand {
	if timeout <= 0 {
		timeout = defaultAskTimeout
	}
	return &AskCommand{asker: asker, timeout: timeout}
}

// Register registers the /ask-data command with the router.
func (ac *AskCommand) Register(router *discord.CommandRouter) {
	router.RegisterCommand("ask-data", ac.Definition(), ac.handle)
}

// Definition returns the /ask-data ApplicationCommand for Discord registration.
func (ac *AskCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ask-data",
		Description: "Ask a question about the data and get an answer backed by real queries",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "question",
				Description: "The question to answer",
				Required:    true,
			},
		},
	}
}

// handle defers the reply (questions routinely take tens of seconds),
// runs the question through the application layer, and posts the answer
// publicly in chunks.
func (ac *AskCommand) handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	question := strings.TrimSpace(optionString(i, "question"))
	if question == "" {
		discord.RespondEphemeral(s, i, "Please provide a question.")
		return
	}

	discord.DeferReply(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), ac.timeout)
	defer cancel()

	req := AskRequest{
		Question:  question,
		AskerID:   interactionUserID(i),
		AskerName: interactionUserName(i),
		ChannelID: i.ChannelID,
	}

	answer, err := ac.asker.Ask(ctx, req)
	if err != nil {
		slog.Error("ask-data failed", "asker", req.AskerID, "err", err)
		discord.FollowUp(s, i, fmt.Sprintf("Sorry, I couldn't answer that: %v", err))
		return
	}

	discord.FollowUp(s, i, answer)
}
