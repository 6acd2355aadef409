package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"

	"github.com/ayush/jobbid/internal/auth"
	"github.com/ayush/jobbid/internal/bids"
	"github.com/ayush/jobbid/internal/config"
	"github.com/ayush/jobbid/internal/jobs"
	"github.com/ayush/jobbid/internal/logger"
	"github.com/ayush/jobbid/internal/metrics"
	"github.com/ayush/jobbid/internal/middleware"
	"github.com/ayush/jobbid/internal/server"
	"github.com/ayush/jobbid/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		Output:       cfg.LogOutput,
		EnableSource: cfg.LogSource,
		TimeFormat:   cfg.LogTimeFormat,
	})
	slog.SetDefault(appLogger)
	ctx := context.Background()

	// ── Document store ───────────────────────────────────────
	var jobStore interface {
		jobs.Store
		bids.JobIndex
	}
	var bidStore bids.Store
	switch cfg.StoreDriver {
	case "memory":
		appLogger.Warn("using in-memory store, data is lost on restart")
		jobStore, bidStore = store.NewMemoryJobStore(), store.NewMemoryBidStore()
	default:
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		defer mongoClient.Disconnect(context.Background())
		if err := mongoClient.Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongo ping: %w", err)
		}
		db := mongoClient.Database(cfg.MongoDB)
		mongoJobs, mongoBids := store.NewMongoJobStore(db), store.NewMongoBidStore(db)
		if err := mongoJobs.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := mongoBids.EnsureIndexes(ctx); err != nil {
			return err
		}
		jobStore, bidStore = mongoJobs, mongoBids
		appLogger.Info("connected to MongoDB", slog.String("db", cfg.MongoDB))
	}

	// ── Redis (credential denylist) ──────────────────────────
	var issuerOpts []auth.Option
	if cfg.RevokeOnLogout {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		issuerOpts = append(issuerOpts, auth.WithDenylist(auth.NewRedisDenylist(rdb)))
		appLogger.Info("server-side revocation enabled", slog.String("redis", cfg.RedisAddr))
	}
	issuer, err := auth.NewIssuer(cfg.AccessTokenSecret, issuerOpts...)
	if err != nil {
		return fmt.Errorf("credential issuer: %w", err)
	}

	// ── PostgreSQL (bid status history) ──────────────────────
	var history bids.History
	if cfg.PostgresDSN != "" {
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		defer pgPool.Close()
		pgHistory := store.NewPostgresHistory(pgPool)
		if err := pgHistory.Migrate(ctx); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
		history = pgHistory
	}

	// ── MinIO (job briefs) ───────────────────────────────────
	var briefs jobs.BriefStore
	if cfg.MinioEndpoint != "" {
		minioStore, err := store.NewMinioBriefStore(ctx, store.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return err
		}
		briefs = minioStore
	}

	// ── Metrics ──────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// ── Ledgers ──────────────────────────────────────────────
	policy, err := bids.PolicyByName(cfg.BidStatusPolicy)
	if err != nil {
		return err
	}
	jobLedger := jobs.NewLedger(jobStore, briefs)
	bidLedger := bids.NewLedger(bids.Deps{
		Store:   bidStore,
		Jobs:    jobStore,
		Policy:  policy,
		History: history,
		Logger:  appLogger,
	})

	limiterCfg := middleware.DefaultRateLimiterConfig()
	limiterCfg.Rate = rate.Limit(float64(cfg.LoginRatePerMinute) / 60)
	limiterCfg.Burst = cfg.LoginRatePerMinute
	loginLimiter := middleware.NewRateLimiter(limiterCfg)
	defer loginLimiter.Stop()

	cookie := auth.DefaultCookieConfig()
	cookie.Secure = cfg.CookieSecure
	cookie.Domain = cfg.CookieDomain
	if !cookie.Secure {
		// Browsers drop SameSite=None cookies without Secure.
		cookie.SameSite = http.SameSiteLaxMode
	}

	handler := server.NewRouter(server.Deps{
		Logger:         appLogger,
		Issuer:         issuer,
		Cookie:         cookie,
		Jobs:           jobLedger,
		Bids:           bidLedger,
		Metrics:        collector,
		Gatherer:       reg,
		LoginLimiter:   loginLimiter,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("server listening",
			slog.String("port", cfg.Port),
			slog.String("store", cfg.StoreDriver),
			slog.String("bid_status_policy", cfg.BidStatusPolicy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	appLogger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
