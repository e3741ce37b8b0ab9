// Package commands implements the Datascout slash commands: /ask-data,
// /catalog, /history, and /help.
package commands

import "github.com/bwmarrin/discordgo"

// commandOptions returns the top-level options of a command interaction,
// descending into the first subcommand when present.
func commandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	data := i.ApplicationCommandData()
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return data.Options[0].Options
	}
	return data.Options
}

// optionString returns the string option with the given name, or "".
func optionString(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range commandOptions(i) {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

// optionInt returns the integer option with the given name, or def when absent.
func optionInt(i *discordgo.InteractionCreate, name string, def int64) int64 {
	for _, opt := range commandOptions(i) {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionInteger {
			return opt.IntValue()
		}
	}
	return def
}

// interactionUserID returns the ID of the user who triggered the interaction.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// interactionUserName returns the display name of the triggering user.
func interactionUserName(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}
