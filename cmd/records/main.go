package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/marwan562/provisioning-bridge/internal/breaker"
	"github.com/marwan562/provisioning-bridge/internal/bridge"
	"github.com/marwan562/provisioning-bridge/internal/config"
	"github.com/marwan562/provisioning-bridge/internal/events"
	"github.com/marwan562/provisioning-bridge/internal/outbox"
	"github.com/marwan562/provisioning-bridge/internal/records"
	"github.com/marwan562/provisioning-bridge/internal/retry"
	"github.com/marwan562/provisioning-bridge/pkg/database"
	"github.com/marwan562/provisioning-bridge/pkg/jsonutil"
	"github.com/marwan562/provisioning-bridge/pkg/messaging"
	"github.com/marwan562/provisioning-bridge/pkg/observability"
	"github.com/marwan562/provisioning-bridge/proto/account"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "records",
	Short: "Record service",
	Long:  `Creates records and provisions their accounts through the account service, falling back to the event topic when it is unavailable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, "records")
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

	var (
		store       records.Store = records.NewMemoryStore()
		outboxStore outbox.Store  = outbox.NewMemoryStore()
		db          *sql.DB
	)
	if cfg.Database.DSN != "" {
		db, err = database.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(db, records.Migrations, records.MigrationsTable); err != nil {
			return err
		}
		if err := database.Migrate(db, outbox.Migrations, outbox.MigrationsTable); err != nil {
			return err
		}
		store = records.NewRepository(db)
		outboxStore = outbox.NewRepository(db)
	} else {
		logger.Warn("database dsn not set, records are kept in memory")
	}

	broker, err := messaging.NewPublisher(cfg.BrokerSettings())
	if err != nil {
		return fmt.Errorf("failed to create broker publisher: %w", err)
	}
	defer broker.Close()

	pubOpts := []events.PublisherOption{
		events.WithTimeout(cfg.Broker.PublishTimeout),
		events.WithLogger(logger.Logger),
	}
	if cfg.Outbox.Enabled {
		pubOpts = append(pubOpts, events.WithOutbox(outboxStore))
		relay := outbox.NewRelay(outboxStore, broker, cfg.Outbox.Interval, cfg.Outbox.BatchSize, logger.Logger)
		go relay.Start(ctx)
	}
	publisher := events.NewPublisher(broker, cfg.EventTopics(), pubOpts...)

	conn, err := bridge.Dial(cfg.AccountService.Target)
	if err != nil {
		return err
	}
	defer conn.Close()

	cb := breaker.New(cfg.BreakerSettings(), logger.Logger)
	client := bridge.NewClient(account.NewAccountServiceClient(conn), cb, cfg.AccountService.RequestTimeout, logger.Logger)
	accounts := bridge.New(client, retry.NewPolicy(cfg.RetrySettings(), logger.Logger), publisher, logger.Logger)

	svc := records.NewService(store, accounts, publisher, logger.Logger)

	router := mux.NewRouter()
	records.NewHandler(svc, logger.Logger).Register(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		jsonutil.WriteJSON(w, http.StatusOK, map[string]string{
			"status":          "active",
			"service":         cfg.Service.Name,
			"account_breaker": cb.State().String(),
			"db_connected":    fmt.Sprint(db != nil),
		})
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           otelhttp.NewHandler(router, "records-request"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("records service starting", "address", cfg.HTTP.Address, "account_service", cfg.AccountService.Target)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down records service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
