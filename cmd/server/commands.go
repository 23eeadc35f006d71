package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessionescrow/internal/database"
	"sessionescrow/internal/router"
	"sessionescrow/internal/service"

	"github.com/spf13/cobra"
)

var (
	configPath string
	limit      int

	rootCmd = &cobra.Command{
		Use:           "escrowd",
		Short:         "Session payment escrow and settlement engine",
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, webhooks and wallet websocket",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the escrow tables",
		RunE:  runMigrate,
	}

	settleCmd = &cobra.Command{
		Use:   "settle",
		Short: "Release every session whose hold period has elapsed (run from cron)",
		RunE:  runSettle,
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "List payouts flagged for manual reconciliation",
		RunE:  runReconcile,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("ESCROW_CONFIG"), "path to YAML config")
	reconcileCmd.Flags().IntVar(&limit, "limit", 100, "maximum payouts to list")
	rootCmd.AddCommand(serveCmd, migrateCmd, settleCmd, reconcileCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := database.AutoMigrate(a.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go a.limiter.RunSweeper(stop)

	engine := router.Setup(a.cfg, router.Deps{
		DB:       a.db,
		Services: a.services,
		Verifier: a.verifier,
		Hub:      a.hub,
		Limiter:  a.limiter,
		Logger:   a.log,
	})
	srv := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "port", a.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	a.log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), configPath, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := database.AutoMigrate(a.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.log.Info("migration complete")
	return nil
}

func runSettle(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), configPath, false)
	if err != nil {
		return err
	}
	defer a.Close()
	results, err := a.services.Settlement.RunBatch(cmd.Context(), a.services.Settlement.Hold())
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Status == service.SettlementFailed {
			failed++
		}
	}
	if err := writeJSON(cmd, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d settlements failed", failed, len(results))
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), configPath, false)
	if err != nil {
		return err
	}
	defer a.Close()
	list, err := a.services.Payouts.ListReconciliation(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(cmd, list)
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
