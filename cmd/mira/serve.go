package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/mira/bot"
	"github.com/quailyquaily/mira/brain"
	"github.com/quailyquaily/mira/compose"
	"github.com/quailyquaily/mira/db"
	"github.com/quailyquaily/mira/extract"
	"github.com/quailyquaily/mira/intent"
	"github.com/quailyquaily/mira/llm"
	"github.com/quailyquaily/mira/providers/openai"
	"github.com/quailyquaily/mira/remind"
	"github.com/quailyquaily/mira/search"
	"github.com/quailyquaily/mira/store"
	"github.com/quailyquaily/mira/telegram"
	"github.com/quailyquaily/mira/temporal"
	"github.com/quailyquaily/mira/transcribe"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	logger := newLogger()

	token := strings.TrimSpace(viper.GetString("telegram.token"))
	if token == "" {
		return fmt.Errorf("telegram.token is required (MIRA_TELEGRAM_TOKEN)")
	}

	loc, err := loadLocation()
	if err != nil {
		return err
	}

	cfg := db.DefaultConfig()
	cfg.DSN = viper.GetString("db.path")
	gdb, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	st := store.New(gdb)

	rules, err := extract.LoadRules(viper.GetString("extract.rules_file"))
	if err != nil {
		return fmt.Errorf("load extraction rules: %w", err)
	}
	lex, err := search.LoadLexicon(viper.GetString("search.lexicon_file"))
	if err != nil {
		return fmt.Errorf("load search lexicon: %w", err)
	}

	var llmClient llm.Client
	model := viper.GetString("llm.model")
	if key := strings.TrimSpace(viper.GetString("llm.api_key")); key != "" {
		llmClient = openai.New(viper.GetString("llm.endpoint"), key)
		logger.Info("llm configured", "model", model)
	} else {
		logger.Warn("no llm api key, running on rules only")
	}

	var transcriber transcribe.Client
	if url := strings.TrimSpace(viper.GetString("transcriber.url")); url != "" {
		transcriber = transcribe.NewHTTPClient(url)
	} else {
		logger.Warn("no transcriber url, voice messages will fail politely")
		transcriber = transcribe.Unavailable{}
	}

	tg := telegram.NewClient(token, logger)

	engine := search.NewEngine(st, lex, logger)
	if llmClient != nil {
		engine.Parser = brain.NewQueryParser(llmClient, model, logger)
	}

	var categorizer *brain.Categorizer
	if llmClient != nil {
		categorizer = brain.NewCategorizer(llmClient, model, logger)
	}

	scheduler := remind.NewScheduler(st, tg, logger)
	defer scheduler.Stop()
	if _, err := scheduler.Rehydrate(ctx); err != nil {
		return fmt.Errorf("rehydrate reminders: %w", err)
	}

	now := func() time.Time { return time.Now().In(loc) }
	handler := &bot.Handler{
		Store:       st,
		Sender:      tg,
		Downloader:  tg,
		Transcriber: transcriber,
		Intent:      intent.NewRouter(llmClient, model, logger),
		Extractor:   extract.NewEngine(rules, lex.Normalize),
		Parser:      temporal.NewParser(loc),
		Resolver:    temporal.NewResolver(loc),
		Categorizer: categorizer,
		Responder:   brain.NewResponder(llmClient, model, logger),
		Search:      engine,
		Composer:    compose.NewComposer(temporal.NewFormatter(loc)),
		Scheduler:   scheduler,
		Logger:      logger,
		Now:         now,
		AudioDir:    viper.GetString("audio.dir"),
	}

	poller := telegram.NewPoller(tg, handler, logger)

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("mira is up", "db", cfg.DSN, "timezone", loc.String())
	if err := poller.Run(runCtx); err != nil && runCtx.Err() == nil {
		return err
	}
	logger.Info("mira stopped")
	return nil
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(viper.GetString("log.level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func loadLocation() (*time.Location, error) {
	tz := strings.TrimSpace(viper.GetString("timezone"))
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return loc, nil
}
