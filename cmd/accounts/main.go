package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/marwan562/provisioning-bridge/internal/config"
	"github.com/marwan562/provisioning-bridge/internal/provisioning"
	"github.com/marwan562/provisioning-bridge/pkg/database"
	"github.com/marwan562/provisioning-bridge/pkg/jsonutil"
	"github.com/marwan562/provisioning-bridge/pkg/messaging"
	"github.com/marwan562/provisioning-bridge/pkg/observability"
	"github.com/marwan562/provisioning-bridge/proto/account"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Account service",
	Long:  `Serves AccountService over gRPC and provisions accounts from account-creation-requested events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, "accounts")
		if err != nil {
			return err
		}
		return run(cfg)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := observability.NewLogger(cfg.Service.Name, cfg.Logging.Level)
	slog.SetDefault(logger.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		Environment:    cfg.Service.Environment,
	})
	if err != nil {
		logger.Warn("failed to init tracer", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}

	var store provisioning.Store = provisioning.NewMemoryStore()
	if cfg.Database.DSN != "" {
		db, err := database.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(db, provisioning.Migrations, provisioning.MigrationsTable); err != nil {
			return err
		}
		store = provisioning.NewRepository(db)
	} else {
		logger.Warn("database dsn not set, accounts are kept in memory")
	}

	var cache provisioning.DedupCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis connection failed, dedup cache disabled", "error", err)
		} else {
			cache = provisioning.NewRedisCache(rdb, cfg.Redis.DedupTTL)
		}
		defer rdb.Close()
	}

	provisioner := provisioning.NewProvisioner(store, cache, logger.Logger)

	// gRPC
	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Address, err)
	}
	grpcServer := grpc.NewServer()
	account.RegisterAccountServiceServer(grpcServer, provisioning.NewServer(provisioner, logger.Logger))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(account.AccountService_ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("account gRPC server starting", "address", cfg.GRPC.Address)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server failed: %w", err)
		}
	}()

	// Consumers
	subscriber, err := messaging.NewSubscriber(cfg.BrokerSettings())
	if err != nil {
		return fmt.Errorf("failed to create broker subscriber: %w", err)
	}
	defer subscriber.Close()

	topics := cfg.EventTopics()
	consumer := provisioning.NewConsumer(topics.AccountCreationRequested, provisioner, logger.Logger)
	recordLogger := provisioning.NewRecordLogger(topics.RecordCreated, logger.Logger)

	var wg sync.WaitGroup
	for topic, handler := range map[string]messaging.Handler{
		topics.AccountCreationRequested: consumer.OnEvent,
		topics.RecordCreated:            recordLogger.OnEvent,
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := subscriber.Subscribe(ctx, topic, handler); err != nil {
				logger.Error("subscriber stopped", "topic", topic, "error", err)
			}
		}()
	}

	// Metrics and health over HTTP
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		jsonutil.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "active",
			"service": cfg.Service.Name,
		})
	}).Methods(http.MethodGet)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	logger.Info("shutting down account service")
	stop()
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	wg.Wait()
	return runErr
}
