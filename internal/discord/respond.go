package discord

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// MaxMessageLen is Discord's hard limit on message content length.
const MaxMessageLen = 2000

// RespondEphemeral sends an ephemeral text response to an interaction.
func RespondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("discord: failed to send ephemeral response", "err", err)
	}
}

// RespondError sends a formatted error response (ephemeral).
func RespondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	RespondEphemeral(s, i, fmt.Sprintf("Error: %v", err))
}

// DeferReply sends a deferred public response (for long-running commands).
// Answers to data questions are visible to the whole channel.
func DeferReply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		slog.Warn("discord: failed to defer reply", "err", err)
	}
}

// DeferReplyEphemeral sends a deferred ephemeral response.
func DeferReplyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("discord: failed to defer reply", "err", err)
	}
}

// FollowUp sends a follow-up message after a deferred response. Content
// longer than [MaxMessageLen] is split into multiple follow-up messages.
func FollowUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	for _, chunk := range SplitMessage(content) {
		_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: chunk,
		})
		if err != nil {
			slog.Warn("discord: failed to send follow-up", "err", err)
			return
		}
	}
}

// FollowUpEphemeral sends an ephemeral follow-up after a deferred response.
func FollowUpEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	for _, chunk := range SplitMessage(content) {
		_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: chunk,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		if err != nil {
			slog.Warn("discord: failed to send ephemeral follow-up", "err", err)
			return
		}
	}
}

// SplitMessage splits content into chunks of at most [MaxMessageLen] runes,
// preferring to break at newlines so code blocks and tables stay readable.
// Empty content yields a single placeholder chunk so the caller always sends
// something.
func SplitMessage(content string) []string {
	if content == "" {
		return []string{"(no output)"}
	}
	if len(content) <= MaxMessageLen {
		return []string{content}
	}

	var chunks []string
	for len(content) > MaxMessageLen {
		cut := strings.LastIndex(content[:MaxMessageLen], "\n")
		if cut <= 0 {
			cut = MaxMessageLen
		}
		chunks = append(chunks, content[:cut])
		content = strings.TrimPrefix(content[cut:], "\n")
	}
	if content != "" {
		chunks = append(chunks, content)
	}
	return chunks
}
