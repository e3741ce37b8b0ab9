package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glimt/datascout/internal/mcp"
)

// ValidLLMProviderNames lists known LLM provider names. Used by [Validate] to
// warn about unrecognised names without rejecting third-party providers.
var ValidLLMProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Providers
	validateProviderName(cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.Fallbacks {
		validateProviderName(fb.Name)
		if fb.Name == "" {
			errs = append(errs, errors.New("providers.fallbacks entries require a name"))
		}
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}

	// Discord
	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}

	// AWS
	if cfg.AWS.OutputS3 == "" {
		errs = append(errs, errors.New("aws.output_s3 is required"))
	} else if !strings.HasPrefix(cfg.AWS.OutputS3, "s3://") {
		errs = append(errs, fmt.Errorf("aws.output_s3 %q must be an s3:// URI", cfg.AWS.OutputS3))
	}
	if cfg.AWS.Region == "" {
		slog.Warn("aws.region is empty; falling back to the SDK default chain")
	}

	// Ask
	if cfg.Ask.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("ask.max_iterations %d must not be negative", cfg.Ask.MaxIterations))
	}
	if cfg.Ask.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("ask.max_rows %d must not be negative", cfg.Ask.MaxRows))
	}
	if cfg.Ask.PollIntervalMS < 0 {
		errs = append(errs, fmt.Errorf("ask.poll_interval_ms %d must not be negative", cfg.Ask.PollIntervalMS))
	}
	if cfg.Ask.MaxWaitS < 0 {
		errs = append(errs, fmt.Errorf("ask.max_wait_s %d must not be negative", cfg.Ask.MaxWaitS))
	}
	if cfg.Ask.PollIntervalMS > 0 && cfg.Ask.MaxWaitS > 0 && cfg.Ask.PollInterval() > cfg.Ask.MaxWait() {
		errs = append(errs, fmt.Errorf("ask.poll_interval_ms %d exceeds ask.max_wait_s %d", cfg.Ask.PollIntervalMS, cfg.Ask.MaxWaitS))
	}
	if cfg.Ask.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Ask.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("ask.timezone %q is not a valid IANA zone name", cfg.Ask.Timezone))
		}
	}

	// History
	if cfg.History.PostgresDSN == "" {
		slog.Warn("history.postgres_dsn is empty; answered questions will not be persisted")
	}

	// MCP servers
	namesSeen := make(map[string]int, len(cfg.MCP.Servers))
	for i, srv := range cfg.MCP.Servers {
		prefix := fmt.Sprintf("mcp.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of mcp.servers[%d]", prefix, srv.Name, prev))
			}
			namesSeen[srv.Name] = i
		}
		if srv.Transport != "" && !srv.Transport.IsValid() {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
		}
		if srv.Transport == mcp.TransportStdio && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if srv.Transport == mcp.TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidLLMProviderNames].
func validateProviderName(name string) {
	if name == "" || slices.Contains(ValidLLMProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"name", name,
		"known", ValidLLMProviderNames,
	)
}
