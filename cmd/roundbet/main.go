package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/alejandrodnm/roundbet/config"
)

func main() {
	app := cli.NewApp()
	app.Name = "roundbet"
	app.Usage = "follow hourly up/down rounds, place bets and claim winnings"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: "config.yaml", Usage: "path to config file"},
		cli.BoolFlag{Name: "verbose", Usage: "set log level to debug"},
		cli.StringFlag{Name: "format", Usage: "log format: text|json (overrides config)"},
	}
	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "sync rounds, stream the price and serve the HTTP API",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "console", Usage: "print every new view to stdout"},
			},
			Action: withApp(runServe),
		},
		{
			Name:   "state",
			Usage:  "print the current, next and expired rounds",
			Action: withApp(runState),
		},
		{
			Name:  "history",
			Usage: "print one page of past bets",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "offset", Usage: "rounds to skip back from the live round"},
				cli.StringFlag{Name: "user", Usage: "public key to inspect (default: configured wallet)"},
			},
			Action: withApp(runHistory),
		},
		{
			Name:  "bet",
			Usage: "bet on the round open for bets",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "direction, d", Usage: "up or down"},
				cli.Float64Flag{Name: "amount, a", Usage: "stake in SOL"},
			},
			Action: withApp(runBet),
		},
		{
			Name:  "claim",
			Usage: "claim winnings of a resolved round",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "round, r", Usage: "round id"},
			},
			Action: withApp(runClaim),
		},
		{
			Name:  "initialize",
			Usage: "one-time program setup (creates state, vault and rounds 0 and 1)",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "price-update", Usage: "price update account to read the opening price from"},
			},
			Action: withApp(runInitialize),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("roundbet failed", "err", err)
		os.Exit(1)
	}
}

type action func(ctx context.Context, c *cli.Context, a *app) error

// withApp loads config, sets up logging and wiring, and runs fn until a signal.
func withApp(fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if c.GlobalBool("verbose") {
			cfg.Log.Level = "debug"
		}
		if f := c.GlobalString("format"); f != "" {
			cfg.Log.Format = f
		}
		setupLogger(cfg.Log)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(ctx, c, a)
	}
}

// loadConfig falls back to env and defaults when the default config file is absent.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.GlobalString("config")
	if !c.GlobalIsSet("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	return config.Load(path)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
