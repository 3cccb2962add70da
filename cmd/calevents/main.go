package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	calevents "github.com/cyp0633/libcalevents"
	"github.com/cyp0633/libcalevents/config"
	"github.com/cyp0633/libcalevents/permission"
	permmemory "github.com/cyp0633/libcalevents/permission/memory"
	"github.com/cyp0633/libcalevents/provider/memory"
	"github.com/cyp0633/libcalevents/recurrence"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "calevents",
		Usage: "Inspect calendar events and recurrence rules.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file.",
				Value:   "calevents.yaml",
				EnvVars: []string{"CALEVENTS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "fixtures",
				Usage:   "YAML fixtures to seed, overriding the configured file.",
				EnvVars: []string{"CALEVENTS_FIXTURES"},
			},
		},
		Commands: []*cli.Command{
			rruleCommand(),
			calendarsCommand(),
			eventsCommand(),
		},
	}
}

// session is a seeded in-memory store built from the configuration.
type session struct {
	cfg    *config.Config
	store  *calevents.Store
	logger *slog.Logger
	close  func()
}

func openSession(ctx context.Context, c *cli.Context) (*session, error) {
	configPath := c.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(cfg.SlogLevel())

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	engineConfig, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	engine := recurrence.NewEngineWithConfig(engineConfig)
	provider := memory.New(
		memory.WithLogger(logger),
		memory.WithEngine(engine),
		memory.WithEventsURI(cfg.EventsURI),
	)
	gate := permmemory.New(
		permmemory.WithLogger(logger),
		permmemory.WithGranted(permission.ReadCalendar, permission.WriteCalendar),
	)
	store := calevents.New(provider, gate,
		calevents.WithLogger(logger),
		calevents.WithLocation(loc),
		calevents.WithFallbackCalendarID(cfg.FallbackCalendarID),
	)

	// The provider does not own an engine passed in with WithEngine.
	closeAll := func() {
		provider.Close()
		engine.Close()
	}

	fixturesPath := c.String("fixtures")
	if fixturesPath == "" {
		fixturesPath = cfg.FixturesPath(configPath)
	}
	if fixturesPath != "" {
		fixtures, err := LoadFixtures(fixturesPath)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to load fixtures: %w", err)
		}
		if err := fixtures.Seed(ctx, store); err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to seed fixtures: %w", err)
		}
		logger.Debug("fixtures seeded", "path", fixturesPath,
			"calendars", len(fixtures.Calendars), "events", len(fixtures.Events))
	}

	return &session{cfg: cfg, store: store, logger: logger, close: closeAll}, nil
}

func setupLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
