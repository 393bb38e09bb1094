package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/snapshelf/config"
	"github.com/raine/snapshelf/internal/api"
	"github.com/raine/snapshelf/internal/bot"
	"github.com/raine/snapshelf/internal/expiry"
	"github.com/raine/snapshelf/internal/ingest"
	"github.com/raine/snapshelf/internal/reminder"
	"github.com/raine/snapshelf/internal/storage"
	"github.com/raine/snapshelf/internal/vision"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const logFileName = "snapshelf.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing .env file
	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		config.FatalWithWait("invalid config: %v", err)
	}

	if missing := cfg.Missing(); len(missing) > 0 {
		if config.IsInteractiveTerminal() {
			if !config.RunSetupWizard() {
				config.WaitOnWindows()
				os.Exit(1)
			}
			if cfg, err = config.Load(); err != nil {
				config.FatalWithWait("invalid config: %v", err)
			}
		} else {
			// Non-interactive (systemd, docker, etc.) - fail with clear error
			config.FatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// journald keeps the logs there, so skip the log file.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			config.FatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		config.FatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	detector, model := newDetector(cfg)
	log.Info().Str("provider", cfg.VisionProvider).Str("model", model).Msg("vision detector initialized")
	if cfg.VisionCache {
		detector = vision.NewCachedDetector(detector, store)
		log.Info().Msg("vision result caching enabled")
	}
	ingester := ingest.NewService(detector, expiry.NewRulePredictor())

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.BotToken != "" {
		tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			config.FatalWithWait("failed to initialize telegram bot: %v", err)
		}
		tg.Debug = false
		log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

		// Register bot commands for Telegram's command menu
		bot.RegisterCommands(tg)

		b := bot.NewBot(tg, store, ingester, cfg.AdminTelegramID).
			WithDetectedBy(model).
			WithIngestTimeout(cfg.IngestTimeout).
			WithDownloader(bot.NewImageDownloader().WithMaxSize(cfg.MaxImageBytes))

		g.Go(func() error {
			return runBot(ctx, tg, b)
		})

		if cfg.ReminderDays > 0 {
			reminders := reminder.NewService(store, tg, cfg.ReminderDays)
			g.Go(func() error {
				reminders.Run(ctx)
				return nil
			})
		}
	}

	if cfg.HTTPAddr != "" {
		verifier, err := api.NewTokenVerifier(cfg.JWTSecret)
		if err != nil {
			config.FatalWithWait("failed to initialize token verifier: %v", err)
		}
		handler := api.NewHandler(ingester, store, verifier, model).WithMaxImageBytes(cfg.MaxImageBytes)

		g.Go(func() error {
			return runHTTP(ctx, cfg.HTTPAddr, api.NewRouter(handler))
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// newDetector builds the configured vision detector and returns it with its
// model name.
func newDetector(cfg *config.Config) (vision.Detector, string) {
	if cfg.VisionProvider == config.ProviderOpenAI {
		d := vision.NewOpenAIDetector(cfg.OpenAIAPIKey, cfg.VisionModel, cfg.OpenAIBaseURL)
		return d, d.Model()
	}
	d := vision.NewGeminiDetector(cfg.GeminiAPIKey, cfg.VisionModel)
	return d, d.Model()
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer b.Shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

func runHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
