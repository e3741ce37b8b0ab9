package config

import (
	"strings"
	"testing"
	"time"
)

// validYAML is a minimal configuration that passes validation.
const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o
discord:
  token: bot-token
  guild_id: "123"
aws:
  region: eu-central-1
  workgroup: primary
  output_s3: s3://results-bucket/athena/
ask:
  max_iterations: 10
  max_rows: 1000
  poll_interval_ms: 400
  max_wait_s: 60
  timezone: Europe/Istanbul
history:
  postgres_dsn: ""
mcp:
  servers:
    - name: extra-tools
      transport: stdio
      command: "python tools.py"
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Providers.LLM.Name != "openai" || cfg.Providers.LLM.Model != "gpt-4o" {
		t.Errorf("llm provider = %+v, want openai/gpt-4o", cfg.Providers.LLM)
	}
	if cfg.Discord.Token != "bot-token" {
		t.Errorf("discord token = %q", cfg.Discord.Token)
	}
	if cfg.AWS.OutputS3 != "s3://results-bucket/athena/" {
		t.Errorf("output_s3 = %q", cfg.AWS.OutputS3)
	}
	if got := cfg.Ask.PollInterval(); got != 400*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 400ms", got)
	}
	if got := cfg.Ask.MaxWait(); got != time.Minute {
		t.Errorf("MaxWait() = %v, want 1m", got)
	}
	if len(cfg.MCP.Servers) != 1 || cfg.MCP.Servers[0].Name != "extra-tools" {
		t.Errorf("mcp servers = %+v", cfg.MCP.Servers)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	yaml := validYAML + "\nunknown_top_level: true\n"
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantSub: "server.log_level",
		},
		{
			name:    "missing llm provider",
			mutate:  func(c *Config) { c.Providers.LLM.Name = "" },
			wantSub: "providers.llm.name",
		},
		{
			name:    "missing discord token",
			mutate:  func(c *Config) { c.Discord.Token = "" },
			wantSub: "discord.token",
		},
		{
			name:    "missing output s3",
			mutate:  func(c *Config) { c.AWS.OutputS3 = "" },
			wantSub: "aws.output_s3",
		},
		{
			name:    "non-s3 output",
			mutate:  func(c *Config) { c.AWS.OutputS3 = "https://bucket/path" },
			wantSub: "s3://",
		},
		{
			name:    "negative iterations",
			mutate:  func(c *Config) { c.Ask.MaxIterations = -1 },
			wantSub: "ask.max_iterations",
		},
		{
			name: "poll interval beyond budget",
			mutate: func(c *Config) {
				c.Ask.PollIntervalMS = 120000
				c.Ask.MaxWaitS = 60
			},
			wantSub: "ask.poll_interval_ms",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Ask.Timezone = "Mars/Olympus" },
			wantSub: "ask.timezone",
		},
		{
			name: "stdio server without command",
			mutate: func(c *Config) {
				c.MCP.Servers = append(c.MCP.Servers, MCPServerConfig{Name: "broken", Transport: "stdio"})
			},
			wantSub: "command is required",
		},
		{
			name: "http server without url",
			mutate: func(c *Config) {
				c.MCP.Servers = append(c.MCP.Servers, MCPServerConfig{Name: "broken", Transport: "streamable-http"})
			},
			wantSub: "url is required",
		},
		{
			name: "duplicate server names",
			mutate: func(c *Config) {
				c.MCP.Servers = append(c.MCP.Servers,
					MCPServerConfig{Name: "extra-tools", Transport: "stdio", Command: "x"})
			},
			wantSub: "duplicate",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadFromReader(strings.NewReader(validYAML))
			if err != nil {
				t.Fatalf("base config invalid: %v", err)
			}
			tc.mutate(cfg)

			err = Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors for empty config")
	}
	for _, sub := range []string{"providers.llm.name", "discord.token", "aws.output_s3"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("joined error missing %q: %v", sub, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/datascout.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "open") {
		t.Errorf("error = %v, want open failure", err)
	}
}

func TestLoadFromReader_MalformedYAML(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server: [not a map"))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !strings.Contains(err.Error(), "decode yaml") {
		t.Errorf("error = %v, want decode failure", err)
	}
}

func TestValidate_AllowsEmptyOptionalSections(t *testing.T) {
	cfg := &Config{
		Providers: ProvidersConfig{LLM: ProviderEntry{Name: "openai"}},
		Discord:   DiscordConfig{Token: "t"},
		AWS:       AWSConfig{OutputS3: "s3://b/p"},
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
