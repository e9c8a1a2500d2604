package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/uniedit/ghiblify/internal/app"
	"github.com/uniedit/ghiblify/internal/module/ledger"
	"github.com/uniedit/ghiblify/internal/shared/logger"
)

const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServer(cmd.Context())
		},
	}
}

// NewStoreCommand creates the store command with subcommands.
func NewStoreCommand() *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Ledger document commands",
	}

	storeCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create empty users and history documents if they are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreInit(cmd)
		},
	})

	return storeCmd
}

// RunServer serves HTTP until SIGINT or SIGTERM.
func RunServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init application: %w", err)
	}
	defer application.Stop()

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      application.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func runStoreInit(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zapLog, err := logger.NewZapLogger(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return fmt.Errorf("init zap logger: %w", err)
	}
	defer func() { _ = zapLog.Sync() }()

	docs, err := app.OpenDocuments(ctx, cfg, zapLog)
	if err != nil {
		return err
	}
	defer docs.Close()

	created, err := ledger.InitDocuments(ctx, docs.Port)
	if err != nil {
		return err
	}

	if len(created) == 0 {
		cmd.Printf("%s backend: documents already exist\n", docs.Backend)
		return nil
	}
	for _, name := range created {
		cmd.Printf("%s backend: created %s\n", docs.Backend, name)
	}
	return nil
}
