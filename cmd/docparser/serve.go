package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docparser/internal/async"
	"github.com/joseph-ayodele/docparser/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC Documents service",
	Long: `Serve starts the HTTP API on HTTP_ADDR and the gRPC Documents service (with
health and reflection) on GRPC_ADDR. Asynchronous uploads are processed by a
bounded worker pool and stored in the configured STORE_BACKEND.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "grace period for in-flight requests and queued jobs")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("store.close.failed", "error", cerr)
		}
	}()

	orch, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}
	queue := async.NewProcessorQueue(orch, store, logger,
		async.WithWorkers(cfg.Pipeline.QueueWorkers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
	)
	docs := server.NewDocuments(orch, store, queue, logger)

	httpSrv := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.NewRouter(docs, server.HTTPOptions{
			MaxUploadMB: cfg.Server.MaxUploadMB,
			Timeout:     cfg.Server.HTTPTimeout,
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcSrv := server.NewGRPCServer(docs, logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http.serve", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("grpc.serve", "addr", cfg.Server.GRPCAddr)
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server.shutdown.start")

		grace, _ := cmd.Flags().GetDuration("shutdown-timeout")
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		if err := httpSrv.Shutdown(sctx); err != nil {
			logger.Warn("http.shutdown.failed", "error", err)
		}
		grpcSrv.GracefulStop()
		queue.Shutdown(sctx)
		logger.Info("server.shutdown.done")
		return nil
	})
	return g.Wait()
}
