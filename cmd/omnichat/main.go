package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/casualjim/omnichat"
	"github.com/casualjim/omnichat/config"
	"github.com/casualjim/omnichat/executor"
	"github.com/casualjim/omnichat/internal/repl"
	"github.com/casualjim/omnichat/pkg/slogx"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	setLevel(slog.LevelError)
}

func setLevel(level slog.Level) {
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

func main() {
	var (
		configPath = flag.String("config", "omnichat.yaml", "path to the configuration file")
		vendor     = flag.String("provider", "", "vendor to chat with, defaults to the configured default")
		mode       = flag.String("mode", string(repl.ModeThread), "thread, stream or json")
		system     = flag.String("system", "You are a helpful assistant.", "system prompt")
		noTools    = flag.Bool("no-tools", false, "do not offer the demo tools")
		verbose    = flag.Bool("v", false, "log provider traffic")
	)
	flag.Parse()

	if err := run(*configPath, *vendor, repl.Mode(*mode), *system, !*noTools, *verbose); err != nil {
		slog.Error("omnichat", slogx.Error(err))
		os.Exit(1)
	}
}

func run(configPath, vendor string, mode repl.Mode, system string, withTools, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setLevel(cfg.Level())

	if vendor == "" {
		vendor = cfg.Default
	}
	if !cfg.Configured(vendor) {
		return fmt.Errorf("provider %q has no credentials configured", vendor)
	}

	p, err := omnichat.Open(cfg, vendor)
	if err != nil {
		return err
	}

	var options []executor.Option
	if withTools && mode == repl.ModeThread {
		options = append(options, executor.WithTools(demoTools()))
	}
	if verbose {
		options = append(options, executor.WithHook(executor.LoggingHook()))
	}
	exec := omnichat.NewExecutor(cfg, p, options...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	slog.Info("starting chat", slog.String("provider", vendor), slog.String("mode", string(mode)))
	return repl.Run(ctx, repl.Session{
		Executor: exec,
		Mode:     mode,
		System:   system,
		In:       os.Stdin,
		Out:      os.Stdout,
	})
}
