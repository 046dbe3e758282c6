package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nmslite/clusterguard/internal/adminapi"
	"github.com/nmslite/clusterguard/internal/config"
	"github.com/nmslite/clusterguard/internal/eventbus"
	"github.com/nmslite/clusterguard/internal/failover"
	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/logging"
	"github.com/nmslite/clusterguard/internal/monitoring"
	"github.com/nmslite/clusterguard/internal/pgxadapter"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	config.SetGlobal(cfg)

	logger := logging.Init(cfg.Logging)
	logger.Info("starting clusterguard", "admin_api_addr", fmt.Sprintf("%s:%d", cfg.AdminAPI.Host, cfg.AdminAPI.Port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.NewEventBus(100)
	defer bus.Close()

	// service is the shared reference PluginService: its topology backs the
	// admin API's status endpoint, and it is what an embedding application
	// (via monitoring.NewPlugin, wrapping every network-bound call) and the
	// failover handler below both connect through.
	service := initPluginService(cfg, logger)
	monitorService := monitoring.NewService(service, cfg.Detection.MonitorDisposalTime(), logger)
	defer monitorService.Release()

	failoverMode := failover.Normal
	if cfg.Failover.Mode == "strict_reader" {
		failoverMode = failover.StrictReader
	}
	failoverHandler := failover.NewHandler(service, clusterProps(cfg), failoverMode, logger, bus)
	failoverHandler.SetTimeouts(cfg.Failover.MaxFailoverTimeout(), cfg.Failover.Timeout())

	auth, err := adminapi.NewAuthService(cfg.AdminAPI.JWTSecret, cfg.AdminAPI.AdminUsername, cfg.AdminAPI.AdminPassword, cfg.AdminAPI.JWTExpiry())
	if err != nil {
		log.Fatalf("failed to initialize admin auth service: %v", err)
	}

	hub := adminapi.NewHub(logger)
	go hub.Run(ctx)
	go hub.BridgeFrom(ctx, bus)

	router := adminapi.NewRouter(auth, hub, service, failoverHandler, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.AdminAPI.Host, cfg.AdminAPI.Port),
		Handler: router,
	}
	go func() {
		logger.Info("admin API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin API server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin API forced to shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}

// initPluginService builds the reference pgxadapter.Service, seeded with
// the configured cluster topology.
func initPluginService(cfg *config.Config, logger *slog.Logger) *pgxadapter.Service {
	dsn := func(host *hostinfo.Info, props map[string]string) string {
		user := cfg.Cluster.User
		if v, ok := props["user"]; ok {
			user = v
		}
		password := cfg.Cluster.Password
		if v, ok := props["password"]; ok {
			password = v
		}
		sslMode := cfg.Cluster.SSLMode
		if sslMode == "" {
			sslMode = "require"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			user, password, host.Host, cfg.Cluster.Port, cfg.Cluster.Database, sslMode)
	}

	service := pgxadapter.NewService(dsn, nil)

	hosts := []*hostinfo.Info{
		hostinfo.New(cfg.Cluster.WriterEndpoint, cfg.Cluster.WriterEndpoint, hostinfo.Writer),
	}
	if cfg.Cluster.ReaderEndpoint != "" {
		hosts = append(hosts, hostinfo.New(cfg.Cluster.ReaderEndpoint, cfg.Cluster.ReaderEndpoint, hostinfo.Reader))
	}
	for _, instance := range cfg.Cluster.InstanceHosts {
		hosts = append(hosts, hostinfo.New(instance, instance, hostinfo.Reader))
	}
	service.SetHosts(hosts)

	logger.Info("cluster topology initialized", "hosts", len(hosts))
	return service
}

func clusterProps(cfg *config.Config) map[string]string {
	return map[string]string{
		"user":     cfg.Cluster.User,
		"password": cfg.Cluster.Password,
		"database": cfg.Cluster.Database,
	}
}
