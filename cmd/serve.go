package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"hirelane/pipeline-service/internal/credentials"
	"hirelane/pipeline-service/internal/grpcserver"
	"hirelane/pipeline-service/internal/pipeline"
	"hirelane/pipeline-service/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start the REST API, the gRPC API and, when RECONCILE_SCHEDULE is set, the booking reconcile cron.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := connect(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	pipeline.NewHandler(svc).RegisterRoutes(mux)
	credentials.NewHandler(a.settings(), a.tokens().Forget).RegisterRoutes(mux)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
	}

	// ── gRPC server ──────────────────────────────────────────────────────────
	grpcSrv := grpc.NewServer()
	grpcserver.Register(grpcSrv, grpcserver.NewServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	// ── Reconcile cron ───────────────────────────────────────────────────────
	var cron *scheduler.Scheduler
	if a.cfg.ReconcileSchedule != "" {
		cron = scheduler.New(svc, a.cfg.ReconcileSchedule)
		if err := cron.Start(ctx); err != nil {
			return err
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info(fmt.Sprintf("[pipeline-service] v%s HTTP listening on :%s", version, a.cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info(fmt.Sprintf("[pipeline-service] gRPC listening on :%s", a.cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	// ── Graceful shutdown ────────────────────────────────────────────────────
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("[pipeline-service] Shutting down…")
		if cron != nil {
			cron.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("[pipeline-service] HTTP shutdown error", "err", err)
		}
		grpcSrv.GracefulStop()
		return nil
	})

	err = g.Wait()
	slog.Info("[pipeline-service] Stopped.")
	return err
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "pipeline-service",
		"version": version,
	})
}
