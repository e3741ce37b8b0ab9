// Command datascout is the Datascout server: a Discord bot that answers
// data questions by orchestrating an LLM over AWS Glue and Athena tools.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/glimt/datascout/internal/app"
	"github.com/glimt/datascout/internal/athena"
	"github.com/glimt/datascout/internal/config"
	discordbot "github.com/glimt/datascout/internal/discord"
	"github.com/glimt/datascout/internal/discord/commands"
	"github.com/glimt/datascout/internal/health"
	"github.com/glimt/datascout/internal/history"
	"github.com/glimt/datascout/internal/mcp"
	"github.com/glimt/datascout/internal/mcp/mcphost"
	"github.com/glimt/datascout/internal/mcp/tools/athenaquery"
	"github.com/glimt/datascout/internal/mcp/tools/datacatalog"
	"github.com/glimt/datascout/internal/observe"
	"github.com/glimt/datascout/internal/resilience"
	"github.com/glimt/datascout/pkg/provider/llm"
	"github.com/glimt/datascout/pkg/provider/llm/anyllm"
	"github.com/glimt/datascout/pkg/provider/llm/openai"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "datascout: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "datascout: %v\n", err)
		}
		return 1
	}

	// The level var makes log verbosity hot-reloadable from the config watcher.
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("datascout starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer shutdownWithTimeout(otelShutdown)
	metrics := observe.DefaultMetrics()

	// ── Query backend ─────────────────────────────────────────────────────
	backend, err := buildBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to build query backend", "err", err)
		return 1
	}

	// ── Tool host ─────────────────────────────────────────────────────────
	host := mcphost.New()
	defer func() {
		if err := host.Close(); err != nil {
			slog.Warn("tool host close error", "err", err)
		}
	}()
	if err := registerTools(ctx, host, backend, cfg); err != nil {
		slog.Error("failed to register tools", "err", err)
		return 1
	}

	// ── Model provider ────────────────────────────────────────────────────
	provider, err := buildLLM(cfg)
	if err != nil {
		slog.Error("failed to build model provider", "err", err)
		return 1
	}

	// ── History store ─────────────────────────────────────────────────────
	store, err := buildHistory(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect history store", "err", err)
		return 1
	}
	defer store.Close()

	// ── Application ───────────────────────────────────────────────────────
	application, err := app.New(provider, host, store, cfg.Ask, app.WithMetrics(metrics))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Discord bot ───────────────────────────────────────────────────────
	bot, err := discordbot.New(ctx, discordbot.Config{
		Token:         cfg.Discord.Token,
		GuildID:       cfg.Discord.GuildID,
		AnalystRoleID: cfg.Discord.AnalystRoleID,
	})
	if err != nil {
		slog.Error("failed to connect to Discord", "err", err)
		return 1
	}
	defer func() {
		if err := bot.Close(); err != nil {
			slog.Warn("discord close error", "err", err)
		}
	}()
	registerCommands(bot, application, backend, store)

	// ── Config watcher ────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyReload(levelVar, application, old, new)
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── HTTP server: /metrics, /healthz, /readyz ──────────────────────────
	srv := newHTTPServer(cfg.Server.ListenAddr, metrics, backend, store, bot)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx)
	})
	if srv != nil {
		g.Go(func() error {
			slog.Info("http server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shCtx)
		})
	}

	printStartupSummary(cfg)

	slog.Info("datascout ready — press Ctrl+C to shut down")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildBackend wires the AWS SDK clients into the Athena query client.
func buildBackend(ctx context.Context, cfg *config.Config) (*athena.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return athena.New(
		awsathena.NewFromConfig(awsCfg),
		glue.NewFromConfig(awsCfg),
		s3Client,
		s3.NewPresignClient(s3Client),
		cfg.AWS.Workgroup,
		cfg.AWS.OutputS3,
	)
}

// registerTools registers the built-in Glue/Athena tools and any external
// MCP servers named in the config.
func registerTools(ctx context.Context, host *mcphost.Host, backend *athena.Client, cfg *config.Config) error {
	// Query tools go through a circuit breaker so a struggling backend
	// fails fast instead of stalling every model/tool round trip. Catalog
	// lookups stay on the raw client.
	guarded := resilience.NewQueryBackend(backend, resilience.CircuitBreakerConfig{})
	builtin := datacatalog.Tools(backend)
	builtin = append(builtin, athenaquery.Tools(guarded, athena.RealClock(), athenaquery.Defaults{
		PollInterval: cfg.Ask.PollInterval(),
		MaxWait:      cfg.Ask.MaxWait(),
		MaxRows:      int32(cfg.Ask.MaxRows),
	})...)
	for _, t := range builtin {
		if err := host.RegisterBuiltin(mcphost.BuiltinTool{Definition: t.Definition, Handler: t.Handler}); err != nil {
			return err
		}
	}
	slog.Info("builtin tools registered", "count", len(builtin))

	for _, srv := range cfg.MCP.Servers {
		err := host.RegisterServer(ctx, mcp.ServerConfig{
			Name:      srv.Name,
			Transport: srv.Transport,
			Command:   srv.Command,
			URL:       srv.URL,
			Env:       srv.Env,
		})
		if err != nil {
			return fmt.Errorf("register mcp server %q: %w", srv.Name, err)
		}
		slog.Info("registered MCP server", "name", srv.Name)
	}
	return nil
}

// registerLLMProviders wires the built-in model provider factories into reg.
// "openai" uses the native client; the remaining names share the any-llm
// adapter.
func registerLLMProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, name := range []string{"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"} {
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(entry.Name, entry.Model, opts...)
		})
	}

	// ollama is a local server; BaseURL is the address, no API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewOllama(entry.Model, opts...)
	})
}

// buildLLM creates the configured model provider. When fallbacks are
// configured the providers are wrapped in a circuit-breaking fallback chain.
func buildLLM(cfg *config.Config) (llm.Provider, error) {
	reg := config.NewRegistry()
	registerLLMProviders(reg)

	primary, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("model provider created", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	if len(cfg.Providers.Fallbacks) == 0 {
		return primary, nil
	}

	chain := resilience.NewLLMFallback(primary, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
	for _, entry := range cfg.Providers.Fallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create fallback provider %q: %w", entry.Name, err)
		}
		chain.AddFallback(entry.Name, p)
		slog.Info("fallback provider added", "name", entry.Name, "model", entry.Model)
	}
	return chain, nil
}

// buildHistory connects the Postgres history store, or a no-op store when
// no DSN is configured.
func buildHistory(ctx context.Context, cfg *config.Config) (history.Store, error) {
	if cfg.History.PostgresDSN == "" {
		slog.Info("no history database configured, /history will be empty")
		return history.Nop{}, nil
	}
	store, err := history.NewPostgresStore(ctx, cfg.History.PostgresDSN)
	if err != nil {
		return nil, err
	}
	slog.Info("history store connected")
	return store, nil
}

// registerCommands wires the slash commands to their dependencies.
func registerCommands(bot *discordbot.Bot, application *app.App, backend *athena.Client, store history.Store) {
	router := bot.Router()
	commands.NewAskCommand(application, 0).Register(router)
	commands.NewCatalogCommand(backend).Register(router)
	commands.NewHistoryCommand(bot.Permissions(), store).Register(router)
	commands.NewHelpCommand().Register(router)
}

// newHTTPServer builds the observability endpoint server, or nil when no
// listen address is configured.
func newHTTPServer(addr string, metrics *observe.Metrics, backend *athena.Client, store history.Store, bot *discordbot.Bot) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(
		health.Checker{Name: "discord", Check: func(context.Context) error {
			if bot.Session() == nil || bot.Session().State == nil || bot.Session().State.User == nil {
				return errors.New("gateway session not established")
			}
			return nil
		}},
		health.Checker{Name: "athena", Check: func(ctx context.Context) error {
			_, _, err := backend.Databases(ctx, 1)
			return err
		}},
		health.Checker{Name: "history", Check: store.Ping},
	).Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Datascout — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printSummaryRow("LLM", providerLabel(cfg.Providers.LLM.Name, cfg.Providers.LLM.Model))
	printSummaryRow("Fallbacks", fmt.Sprintf("%d", len(cfg.Providers.Fallbacks)))
	if cfg.Discord.Token != "" {
		printSummaryRow("Discord", "connected")
	} else {
		printSummaryRow("Discord", "(disabled)")
	}
	printSummaryRow("AWS region", cfg.AWS.Region)
	printSummaryRow("Workgroup", cfg.AWS.Workgroup)
	if cfg.History.PostgresDSN != "" {
		printSummaryRow("History", "postgres")
	} else {
		printSummaryRow("History", "(disabled)")
	}
	printSummaryRow("MCP servers", fmt.Sprintf("%d", len(cfg.MCP.Servers)))
	if cfg.Server.ListenAddr != "" {
		printSummaryRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func providerLabel(name, model string) string {
	if name == "" {
		return "(not configured)"
	}
	if model != "" {
		return name + " / " + model
	}
	return name
}

func printSummaryRow(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// applyReload applies hot-reloadable config changes.
func applyReload(levelVar *slog.LevelVar, application *app.App, old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Any() {
		slog.Info("config changed, no hot-reloadable differences")
		return
	}
	if d.LogLevelChanged {
		levelVar.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level updated", "level", d.NewLogLevel)
	}
	if d.AskChanged {
		application.ApplyAsk(d.NewAsk)
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func shutdownWithTimeout(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
}
