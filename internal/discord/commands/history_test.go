package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/glimt/datascout/internal/discord"
	"github.com/glimt/datascout/internal/history"
	historymock "github.com/glimt/datascout/internal/history/mock"
)

func TestHistoryDefinition(t *testing.T) {
	t.Parallel()

	hc := NewHistoryCommand(discord.NewPermissionChecker(""), history.Nop{})
	def := hc.Definition()

	if def.Name != "history" {
		t.Errorf("Name = %q, want history", def.Name)
	}

	wantOpts := []string{"count", "query"}
	if len(def.Options) != len(wantOpts) {
		t.Fatalf("option count = %d, want %d", len(def.Options), len(wantOpts))
	}
	for idx, want := range wantOpts {
		if def.Options[idx].Name != want {
			t.Errorf("option[%d] = %q, want %q", idx, def.Options[idx].Name, want)
		}
		if def.Options[idx].Required {
			t.Errorf("option %q should be optional", want)
		}
	}
}

func TestHistoryRegister(t *testing.T) {
	t.Parallel()

	router := discord.NewCommandRouter()
	NewHistoryCommand(discord.NewPermissionChecker(""), &historymock.Store{}).Register(router)

	cmds := router.ApplicationCommands()
	if len(cmds) != 1 || cmds[0].Name != "history" {
		t.Errorf("registered commands = %v, want [history]", cmds)
	}
}

func TestFormatRecords(t *testing.T) {
	t.Parallel()

	askedAt := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	records := []history.Record{
		{
			AskerName: "tuana",
			Question:  "How many orders shipped last week?",
			Answer:    "1,204 orders shipped between 2026-08-10 and 2026-08-16.",
			Status:    "ok",
			Duration:  42 * time.Second,
			AskedAt:   askedAt,
		},
		{
			AskerName: "kerem",
			Question:  "Top regions by revenue?",
			Answer:    "",
			Status:    "error",
			Duration:  3 * time.Second,
			AskedAt:   askedAt.Add(-time.Hour),
		},
	}

	got := formatRecords(records)

	for _, want := range []string{
		"Question history** (2)",
		"2026-08-20 14:30",
		"tuana",
		"How many orders shipped last week?",
		"1,204 orders",
		"kerem",
		"error",
		"(empty)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("formatRecords output missing %q:\n%s", want, got)
		}
	}
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "(empty)"},
		{"short", "hello", "hello"},
		{"collapses whitespace", "a\nb\t c", "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := snippet(tt.in); got != tt.want {
				t.Errorf("snippet(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("truncates long text", func(t *testing.T) {
		t.Parallel()
		long := strings.Repeat("x", 500)
		got := snippet(long)
		if len(got) > maxSnippetLen+3 {
			t.Errorf("snippet length = %d, want at most %d", len(got), maxSnippetLen+3)
		}
		if !strings.HasSuffix(got, "…") {
			t.Errorf("snippet %q should end with ellipsis", got)
		}
	})
}

func TestHelpDefinition(t *testing.T) {
	t.Parallel()

	def := NewHelpCommand().Definition()
	if def.Name != "help" {
		t.Errorf("Name = %q, want help", def.Name)
	}

	for _, want := range []string{"/ask-data", "/catalog", "/history", "/help"} {
		if !strings.Contains(helpText, want) {
			t.Errorf("help text missing %q", want)
		}
	}
}
