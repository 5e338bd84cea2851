package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"sleepadvice/internal/advice"
	"sleepadvice/internal/httpserver"
	"sleepadvice/internal/prompt"
	"sleepadvice/internal/sleep"
)

func newServeCommand(deps Deps) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sleep record API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, deps, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", deps.Config.HTTPAddr, "listen address")
	return cmd
}

func runServe(cmd *cobra.Command, deps Deps, addr string) error {
	cfg := deps.Config
	logger := newLogger(serverLogOutput(cfg.LogFile, cmd.OutOrStdout()), cfg.LogLevel, slog.LevelInfo, true)

	generator, err := deps.NewGenerator(cfg, logger)
	if err != nil {
		return err
	}

	store, err := sleep.OpenSQLite(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if cfg.SeedDummy {
		n, err := sleep.Seed(ctx, store, time.Now(), rand.New(rand.NewSource(time.Now().UnixNano())))
		if err != nil {
			return fmt.Errorf("seed sleeps: %w", err)
		}
		if n > 0 {
			logger.Info("dummy sleep records inserted", slog.Int("count", n))
		}
	}

	svc := advice.NewService(advice.ServiceConfig{
		Generator: generator,
		Prompts:   prompt.Builder{Language: cfg.Advice.Language, Tone: cfg.Advice.Tone},
		Logger:    logger,
	})
	router := httpserver.NewRouter(httpserver.RouterDeps{
		Logger:     logger,
		CORSOrigin: cfg.CORSOrigin,
		Sleeps:     httpserver.NewSleepHandler(store, svc, logger),
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return serve(ctx, ln, router, logger)
}

// serve runs until ctx is cancelled or the server fails.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}
