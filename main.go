package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "github.com/buzzn/myBuzzn-backend-sub000/internal/api/http"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/audit"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/auth"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/config"
	ingestionapp "github.com/buzzn/myBuzzn-backend-sub000/internal/ingestion/application"
	ledgerapp "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/application"
	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
	ledgerrepo "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/infrastructure/postgres"
	ledgerinterfaces "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/interfaces"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/metering"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/observability/metrics"
	profileapp "github.com/buzzn/myBuzzn-backend-sub000/internal/profile/application"
	profilerepo "github.com/buzzn/myBuzzn-backend-sub000/internal/profile/infrastructure/postgres"
	readingsapp "github.com/buzzn/myBuzzn-backend-sub000/internal/readings/application"
	"github.com/buzzn/myBuzzn-backend-sub000/internal/readings/infrastructure/influxdb"
	readingsredis "github.com/buzzn/myBuzzn-backend-sub000/internal/readings/infrastructure/redis"
	savingapp "github.com/buzzn/myBuzzn-backend-sub000/internal/saving/application"
	userrepo "github.com/buzzn/myBuzzn-backend-sub000/internal/users/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	metrics.Init(db, logger)
	if err := ensureSchema(ctx, db); err != nil {
		logger.Fatalf("db schema error: %v", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatalf("redis ping error: %v", err)
	}
	cache, err := readingsredis.NewStore(redisClient)
	if err != nil {
		logger.Fatalf("readings cache error: %v", err)
	}

	userRepo := userrepo.NewRepository(db)
	rowRepo := ledgerrepo.NewRowRepository(db)
	profileRepo := profilerepo.NewRepository(db)

	boundaries, err := readingsapp.NewDayBoundaryReader(cache, readingsapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("day boundary reader error: %v", err)
	}
	engine, err := ledger.NewEngine(boundaries, rowRepo, readingsapp.SystemClock{})
	if err != nil {
		logger.Fatalf("ledger engine error: %v", err)
	}

	publisher, closePublisher := buildRowPublisher(cfg.Kafka, logger)
	defer closePublisher()

	ledgerService, err := ledgerapp.NewService(engine, rowRepo, boundaries, logger, ledgerapp.WithPublisher(publisher))
	if err != nil {
		logger.Fatalf("ledger service error: %v", err)
	}
	scheduler := ledgerapp.NewScheduler(ledgerService, userRepo, cfg.Ledger.DailyAt, logger)
	go scheduler.Start(ctx)

	ratio, err := profileapp.NewRatioCalculator(profileRepo, readingsapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("ratio calculator error: %v", err)
	}
	estimator, err := savingapp.NewEstimator(boundaries, ratio, readingsapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("saving estimator error: %v", err)
	}

	if cfg.Ingestion.Enabled {
		task, closeTask := buildIngestionTask(ctx, cfg, userRepo, cache, logger)
		defer closeTask()
		go task.Start(ctx)
	}

	mux := http.NewServeMux()
	err = apihttp.Register(mux, apihttp.Deps{
		Users:   userRepo,
		Ledger:  ledgerService,
		Admin:   ledgerService,
		Savings: estimator,
		Audit:   audit.NewRepository(db),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatalf("http routes error: %v", err)
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authMiddleware := auth.NewMiddleware([]byte(cfg.Auth.JWTSecret), auth.NewDefaultPolicy(nil, nil))
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apihttp.LoggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Printf("http listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal(err)
	}
}

// ensureSchema creates the tables this service owns; users and groups belong to the account service.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{ledgerrepo.Schema, profilerepo.Schema, audit.Schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func buildRowPublisher(cfg config.KafkaConfig, logger *log.Logger) (ledgerapp.RowPublisher, func()) {
	if !cfg.Enabled() {
		return ledgerinterfaces.NewLoggingPublisher(logger), func() {}
	}
	producer, err := ledgerinterfaces.NewKafkaProducer(cfg.Brokers)
	if err != nil {
		logger.Fatalf("kafka producer error: %v", err)
	}
	publisher, err := ledgerinterfaces.NewKafkaPublisher(producer, cfg.LedgerTopic)
	if err != nil {
		logger.Fatalf("kafka publisher error: %v", err)
	}
	logger.Printf("ledger rows published to kafka topic %s", cfg.LedgerTopic)
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Printf("kafka close error: %v", err)
		}
	}
}

func buildIngestionTask(ctx context.Context, cfg config.Config, directory ingestionapp.MeterDirectory, cache *readingsredis.Store, logger *log.Logger) (*ingestionapp.Task, func()) {
	client, err := metering.NewClient(cfg.Metering.BaseURL, cfg.Metering.Email, cfg.Metering.Password)
	if err != nil {
		logger.Fatalf("metering client error: %v", err)
	}
	if err := client.Login(ctx); err != nil {
		logger.Fatalf("metering login error: %v", err)
	}

	var opts []ingestionapp.Option
	closeSink := func() {}
	if cfg.InfluxDB.Enabled() {
		sink, err := influxdb.NewSink(ctx, cfg.InfluxDB.URL, cfg.InfluxDB.Token, cfg.InfluxDB.Org, cfg.InfluxDB.Bucket)
		if err != nil {
			logger.Fatalf("influxdb sink error: %v", err)
		}
		opts = append(opts, ingestionapp.WithSink(sink))
		closeSink = sink.Close
	}

	task, err := ingestionapp.NewTask(client, directory, cache, ingestionapp.Config{
		Interval:        cfg.Ingestion.Interval,
		Lookback:        cfg.Ingestion.Lookback,
		InitialLookback: cfg.Ingestion.InitialLookback,
		Resolution:      cfg.Ingestion.Resolution,
	}, logger, opts...)
	if err != nil {
		logger.Fatalf("ingestion task error: %v", err)
	}
	return task, closeSink
}
