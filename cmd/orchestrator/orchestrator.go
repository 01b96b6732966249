package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/grpcjson"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/orchestrator"
	"github.com/common-nighthawk/go-figure"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type OrchestratorGRPCServer struct {
	config  Config
	logger  *slog.Logger
	service *orchestrator.Service
}

func (s *OrchestratorGRPCServer) Start() error {
	grpcjson.Register()
	figure.NewFigure("ORCHESTRATOR", "", true).Print()

	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(grpcjson.Codec{}))
	grpc_health_v1.RegisterHealthServer(grpcServer, health.NewServer())
	reflection.Register(grpcServer)
	orchestrator.RegisterOrchestratorServiceServer(grpcServer, s.service)

	go func() {
		s.logger.Info("Starting gRPC server", "address", listener.Addr().String())
		if err := grpcServer.Serve(listener); err != nil {
			s.logger.Error("gRPC server failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if s.config.RunOnStart {
		go s.service.RunOnce(ctx)
	}

	s.logger.Info("Orchestrator started")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	s.logger.Info("Shutting down orchestrator")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Server stopped gracefully")
	case <-shutdownCtx.Done():
		s.logger.Warn("Server stop timed out, forcing shutdown")
		grpcServer.Stop()
	}

	return nil
}
