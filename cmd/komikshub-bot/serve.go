package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JamesPrial/komikshub-bot/internal/access"
	"github.com/JamesPrial/komikshub-bot/internal/admin"
	"github.com/JamesPrial/komikshub-bot/internal/bot"
	"github.com/JamesPrial/komikshub-bot/internal/dialogue"
	"github.com/JamesPrial/komikshub-bot/internal/matcher"
	"github.com/JamesPrial/komikshub-bot/internal/transport"
	"github.com/JamesPrial/komikshub-bot/pkg/config"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (default)",
		Long: `Starts the configured transport (Telegram long polling, webhook or the
console) together with the admin server for health checks and metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, cleanup, err := opts.setup(false)
	if err != nil {
		return err
	}
	defer cleanup()
	logger := logging.GetGlobalLogger("main")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openCatalog(ctx, cfg, cfg.Storage.Seed)
	if err != nil {
		return err
	}
	defer backend.Close()

	sessions, err := dialogue.NewStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}
	defer sessions.Close()

	orchestrator := bot.New(backend, sessions, matcher.New(cfg.Matcher.Threshold))
	auth := access.NewAllowList(cfg.Access.AdminIDs...)

	tr, err := newTransport(cmd, cfg, auth)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	logger.Info("Starting bot",
		slog.String("transport", tr.Name()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("sessions", cfg.Session.Store),
		slog.Int("threshold", cfg.Matcher.Threshold),
		slog.Int("admins", len(auth.IDs())))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Admin.Port > 0 {
		server := admin.NewAdminServer(backend)
		g.Go(func() error {
			return server.Run(gctx, cfg.Admin.Port)
		})
	}
	g.Go(func() error {
		// the console transport ends on EOF; take the admin server down with it
		defer stop()
		return tr.Start(gctx, orchestrator.Handle)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Bot stopped with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Bot stopped")
	return nil
}

// newTransport binds the console transport to the command's streams so it
// can be driven in-process.
func newTransport(cmd *cobra.Command, cfg *config.Settings, auth access.Authorizer) (transport.Transport, error) {
	if cfg.Bot.Mode == config.ModeStdio {
		return transport.NewStdioTransportWithIO(cmd.InOrStdin(), cmd.OutOrStdout()), nil
	}
	return transport.NewTransport(cfg, auth)
}
