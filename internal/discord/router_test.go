package discord

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestCommandRouter_ApplicationCommands(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	cmd := &discordgo.ApplicationCommand{Name: "catalog"}

	r.RegisterCommand("catalog", cmd, func(*discordgo.Session, *discordgo.InteractionCreate) {})
	r.RegisterCommand("catalog/tables", cmd, func(*discordgo.Session, *discordgo.InteractionCreate) {})
	r.RegisterHandler("catalog/refresh", func(*discordgo.Session, *discordgo.InteractionCreate) {})

	cmds := r.ApplicationCommands()
	if len(cmds) != 1 {
		t.Fatalf("ApplicationCommands() returned %d commands, want 1 (deduplicated)", len(cmds))
	}
	if cmds[0].Name != "catalog" {
		t.Errorf("command name = %q, want catalog", cmds[0].Name)
	}
}

func TestInteractionKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data discordgo.ApplicationCommandInteractionData
		want string
	}{
		{
			name: "top-level command",
			data: discordgo.ApplicationCommandInteractionData{Name: "ask-data"},
			want: "ask-data",
		},
		{
			name: "subcommand",
			data: discordgo.ApplicationCommandInteractionData{
				Name: "catalog",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "tables", Type: discordgo.ApplicationCommandOptionSubCommand},
				},
			},
			want: "catalog/tables",
		},
		{
			name: "option that is not a subcommand",
			data: discordgo.ApplicationCommandInteractionData{
				Name: "ask-data",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "question", Type: discordgo.ApplicationCommandOptionString},
				},
			},
			want: "ask-data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := interactionKey(tt.data); got != tt.want {
				t.Errorf("interactionKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	t.Run("empty content yields placeholder", func(t *testing.T) {
		t.Parallel()
		got := SplitMessage("")
		if len(got) != 1 || got[0] != "(no output)" {
			t.Errorf("SplitMessage(\"\") = %v, want single placeholder", got)
		}
	})

	t.Run("short content is one chunk", func(t *testing.T) {
		t.Parallel()
		got := SplitMessage("hello")
		if len(got) != 1 || got[0] != "hello" {
			t.Errorf("SplitMessage = %v, want [hello]", got)
		}
	})

	t.Run("splits at newlines", func(t *testing.T) {
		t.Parallel()
		line := strings.Repeat("a", 1500)
		content := line + "\n" + line
		got := SplitMessage(content)
		if len(got) != 2 {
			t.Fatalf("got %d chunks, want 2", len(got))
		}
		if got[0] != line || got[1] != line {
			t.Error("chunks do not match original lines")
		}
	})

	t.Run("hard splits content without newlines", func(t *testing.T) {
		t.Parallel()
		content := strings.Repeat("x", 4500)
		got := SplitMessage(content)
		if len(got) != 3 {
			t.Fatalf("got %d chunks, want 3", len(got))
		}
		var total int
		for _, chunk := range got {
			if len(chunk) > MaxMessageLen {
				t.Errorf("chunk length %d exceeds limit %d", len(chunk), MaxMessageLen)
			}
			total += len(chunk)
		}
		if total != 4500 {
			t.Errorf("total chunk length = %d, want 4500", total)
		}
	})

	t.Run("reassembles to original content", func(t *testing.T) {
		t.Parallel()
		var sb strings.Builder
		for i := 0; i < 200; i++ {
			sb.WriteString(strings.Repeat("row ", 10))
			sb.WriteString("\n")
		}
		content := strings.TrimSuffix(sb.String(), "\n")
		got := SplitMessage(content)
		if joined := strings.Join(got, "\n"); joined != content {
			t.Error("joined chunks differ from original content")
		}
	})
}
