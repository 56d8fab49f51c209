package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SafeMPC/wallet-bridge/internal/api"
	"github.com/SafeMPC/wallet-bridge/internal/router"
	"github.com/SafeMPC/wallet-bridge/internal/util/command"
)

const shutdownTimeout = 30 * time.Second

func newServer() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the bridge server",
		Long: `Starts the HTTP bridge.

Origins submit requests to /api/v1/requests; the holder's interface
polls and resolves pending approvals under /api/v1/approvals.`,
		RunE: runServer,
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return err
	}
	command.ConfigureLogger(cfg)

	s, err := api.InitNewServer(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to initialize server")
	}

	router.Init(s)

	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if errs := s.Shutdown(ctx); len(errs) > 0 {
		log.Error().Errs("shutdown_errors", errs).Msg("Failed to gracefully shut down server")
		return errors.New("shutdown finished with errors")
	}

	log.Info().Msg("Server stopped")
	return nil
}
