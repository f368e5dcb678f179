package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eliasbr/fanvoice/internal/api"
	"github.com/eliasbr/fanvoice/internal/config"
	"github.com/eliasbr/fanvoice/internal/fanvue"
	"github.com/eliasbr/fanvoice/internal/llm"
	"github.com/eliasbr/fanvoice/internal/pipeline"
	"github.com/eliasbr/fanvoice/internal/storage"
	"github.com/eliasbr/fanvoice/internal/tts"
	"github.com/eliasbr/fanvoice/internal/webhook"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "fanvoice",
		Short: "fanvoice — Fanvue webhook receiver with AI voice replies",
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(deadLettersCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the fanvoice server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log := setupLogger(cfg.Logging)

			store, err := setupStorage(cfg.Storage, log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("database migrations completed")

			responder := buildResponder(cfg, store, log)

			pool := pipeline.NewPool(cfg.Pipeline, responder, log)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			verifier := webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.SignatureHeaders, nil)

			server := api.NewServer(*cfg, verifier, pool, store, log)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server error")
				}
			}()

			log.Info().
				Str("version", version).
				Int("port", cfg.Server.Port).
				Int("workers", cfg.Pipeline.Workers).
				Bool("send_enabled", cfg.Fanvue.SendEnabled).
				Msg("fanvoice is running")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info().Msg("shutting down...")

			if err := server.Shutdown(10 * time.Second); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}

			pool.Stop()

			log.Info().Msg("fanvoice stopped")
			return nil
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := setupLogger(cfg.Logging)

			store, err := setupStorage(cfg.Storage, log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			log.Info().Msg("migrations completed successfully")
			return nil
		},
	}
}

func deadLettersCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deadletters",
		Short: "Inspect and replay failed reply jobs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List dead-lettered reply jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			letters, err := store.ListDeadLetters(context.Background(), 50, 0)
			if err != nil {
				return fmt.Errorf("failed to list dead letters: %w", err)
			}

			if len(letters) == 0 {
				fmt.Println("No dead letters.")
				return nil
			}

			for _, d := range letters {
				fmt.Printf("  %s  chat=%s  stage=%s  %s  (%s)\n",
					d.ID, d.ChatID, d.Stage, d.Error, d.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	replayCmd := &cobra.Command{
		Use:   "replay <id>",
		Short: "Run a dead-lettered reply job again, inline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: fanvoice deadletters replay <id>")
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log := setupLogger(cfg.Logging)

			store, err := setupStorage(cfg.Storage, log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()
			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			d, err := store.GetDeadLetter(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get dead letter: %w", err)
			}
			if d == nil {
				return fmt.Errorf("dead letter %s not found", args[0])
			}

			responder := buildResponder(cfg, store, log)
			job := pipeline.Job{ID: args[0], Message: d.Message()}
			responder.Respond(context.Background(), job)

			if err := store.DeleteDeadLetter(context.Background(), args[0]); err != nil {
				return fmt.Errorf("replayed but failed to delete record: %w", err)
			}
			fmt.Printf("Replayed %s.\n", args[0])
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a dead-lettered reply job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: fanvoice deadletters delete <id>")
			}

			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.DeleteDeadLetter(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete dead letter: %w", err)
			}
			fmt.Printf("Deleted %s.\n", args[0])
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dead-letter counts by pipeline stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := store.GetStats(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			out, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.AddCommand(listCmd, replayCmd, deleteCmd, statsCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fanvoice v%s\n", version)
		},
	}
}

func buildResponder(cfg *config.Config, store storage.Storage, log zerolog.Logger) *pipeline.Responder {
	completer := llm.NewClient(cfg.LLM)
	synth := tts.NewClient(cfg.TTS)

	var sender pipeline.MediaSender
	if cfg.Fanvue.SendEnabled {
		sender = fanvue.NewClient(cfg.Fanvue)
	} else {
		log.Warn().Msg("fanvue sending disabled, replies will be synthesized but not delivered")
	}

	return pipeline.NewResponder(completer, synth, sender, store, log)
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func setupStorage(cfg config.StorageConfig, log zerolog.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case "sqlite":
		log.Info().Str("path", cfg.SQLite.Path).Msg("using SQLite storage")
		return storage.NewSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func storeFromConfig(configPath string) (storage.Storage, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.Logging)
	store, err := setupStorage(cfg.Storage, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, func() { store.Close() }, nil
}
