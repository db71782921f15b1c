package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/schedbot/schedbot/agent"
	"github.com/schedbot/schedbot/booking"
	"github.com/schedbot/schedbot/calendar"
	"github.com/schedbot/schedbot/config"
	"github.com/schedbot/schedbot/core"
	"github.com/schedbot/schedbot/logging"
	"github.com/schedbot/schedbot/model"
	"github.com/schedbot/schedbot/model/anthropic"
	"github.com/schedbot/schedbot/model/openai"
	"github.com/schedbot/schedbot/server"
	"github.com/schedbot/schedbot/session"
)

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the booking assistant HTTP API",
		Long: `Start the HTTP server that exposes the conversational booking API.

The server reads its configuration from a YAML file (see --config), with
OPENAI_API_KEY / ANTHROPIC_API_KEY and CALENDAR_ID environment variables
filling in any secrets the file leaves out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the config file (default: search config.yaml, ~/.config/schedbot, /etc/schedbot)")

	return cmd
}

func runServe(configFile string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	timezone, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Calendar.Timezone, err)
	}

	calClient, err := calendar.NewGoogleClient(ctx, cfg.Calendar.CredentialsFile, func(o *calendar.GoogleClientOptions) {
		o.RequestTimeout = cfg.Calendar.Timeout()
	})
	if err != nil {
		return fmt.Errorf("failed to set up calendar client: %w", err)
	}

	toolkit := booking.NewToolkit(calClient, cfg.Calendar.ID, func(o *booking.Options) {
		o.Timezone = timezone
	})

	llm, err := buildModel(cfg.Model)
	if err != nil {
		return err
	}

	ag := agent.New("schedbot", llm, func(o *agent.Options) {
		o.MaxIterations = cfg.Agent.MaxIterations
		o.ToolTimeout = time.Duration(cfg.Agent.ToolTimeoutSec) * time.Second
		o.MaxHistoryTurns = cfg.Agent.MaxHistoryTurns
		o.Logger = logger
	})
	ag.RegisterTools(toolkit.Tools()...)

	store, err := buildSessionStore(cfg.Sessions)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("session store close failed", "error", err)
		}
	}()

	srv := server.New(cfg.Listen.Addr(), ag, store, logger)

	logger.Info("starting schedbot",
		"version", version,
		"addr", cfg.Listen.Addr(),
		"provider", cfg.Model.Provider,
		"calendar_id", cfg.Calendar.ID,
		"timezone", cfg.Calendar.Timezone,
		"session_backend", cfg.Sessions.Backend,
	)

	return srv.ListenAndServe(ctx)
}

// buildModel selects the provider adapter from configuration.
func buildModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.APIKey = cfg.APIKey
			o.RequestTimeout = cfg.Timeout()
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			o.APIKey = cfg.APIKey
			o.RequestTimeout = cfg.Timeout()
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider: %s", cfg.Provider)
	}
}

// sessionStore is a SessionStore whose resources can be released on shutdown.
type sessionStore interface {
	core.SessionStore
	Close() error
}

// buildSessionStore selects the session backend from configuration.
func buildSessionStore(cfg config.SessionsConfig) (sessionStore, error) {
	switch cfg.Backend {
	case config.SessionBackendMemory:
		return session.NewInMemoryStore(func(o *session.InMemoryOptions) {
			o.TTL = cfg.TTL.Duration
		}), nil
	case config.SessionBackendSQLite:
		return session.NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}
