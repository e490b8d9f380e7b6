package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"hotelsuite/internal/api"
	"hotelsuite/internal/audit"
	"hotelsuite/internal/auth"
	"hotelsuite/internal/availability"
	"hotelsuite/internal/catalog"
	"hotelsuite/internal/httpapi"
	"hotelsuite/internal/logger"
	"hotelsuite/internal/messaging"
	"hotelsuite/internal/metrics"
	"hotelsuite/internal/reservation"
	"hotelsuite/internal/search"
	"hotelsuite/pkg/config"
	"hotelsuite/pkg/db"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		opts := &redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		if cfg.Redis.TLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, cache and rate limits degrade", "addr", cfg.Redis.Addr, "error", err)
		}
	}

	var (
		cat      catalog.Store
		store    reservation.Store
		users    auth.Users
		recorder audit.Recorder
		ping     func(context.Context) error
	)
	switch cfg.StoreDriver {
	case "memory":
		mem := catalog.NewMemory()
		if err := catalog.Seed(ctx, mem, catalog.DemoSeed()); err != nil {
			logger.Fatal("seed demo catalog", "error", err)
		}
		cat = mem
		store = reservation.NewMemoryStore(mem)
		users = auth.NewMemoryUsers()
		recorder = audit.LogRecorder{}
		log.Warn("using in-memory store; data is lost on restart")
	case "postgres":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			logger.Fatal("db open", "error", err)
		}
		defer conn.Close()

		if cfg.MigrationsPath != "" {
			if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
				logger.Fatal("migrate", "error", err)
			}
		}
		cat = catalog.NewRepository(conn)
		store = reservation.NewRepository(conn)
		users = auth.NewRepository(conn)
		recorder = audit.NewRepository(conn)
		ping = conn.Ping
	default:
		logger.Fatal("unknown STORE_DRIVER", "driver", cfg.StoreDriver)
	}

	var cache availability.Cache = availability.NoCache{}
	if rdb != nil {
		cache = availability.NewRedisCache(rdb, cfg.AvailabilityCacheTTL)
	}
	avail := &availability.Service{
		Catalog: cat,
		Holds:   store,
		Cache:   cache,
		MaxDays: cfg.Booking.MaxAvailabilityDays,
	}

	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.RabbitMQ.Enabled() {
		p := messaging.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		defer p.Close()
		publisher = p
	}

	reservations := &reservation.Service{
		Store:           store,
		Rates:           catalog.Resolver{Store: cat},
		Availability:    avail,
		Publisher:       publisher,
		Metrics:         m,
		MaxStayNights:   cfg.Booking.MaxStayNights,
		NoShowGraceDays: cfg.NoShow.GraceDays,
	}

	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if rdb != nil {
		revoker = auth.NewRedisRevoker(rdb)
	}
	authService := &auth.Service{
		Users:       users,
		Tokens:      auth.Tokens{Secret: []byte(cfg.Auth.JWTSecret)},
		Revoker:     revoker,
		Audit:       recorder,
		CustomerTTL: cfg.Auth.CustomerTokenTTL,
		AdminTTL:    cfg.Auth.AdminSessionTTL,
	}
	if err := authService.BootstrapAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Fatal("bootstrap admin", "error", err)
	}

	var searcher catalog.Searcher = catalog.LocalSearch{Store: cat}
	if cfg.Elasticsearch.Enabled() {
		es, err := search.NewClient(cfg.Elasticsearch)
		if err != nil {
			logger.Fatal("elasticsearch client", "error", err)
		}
		if n, err := es.Reindex(ctx, cat); err != nil {
			log.Warn("room type reindex failed, search falls back to catalog scan", "error", err)
		} else {
			log.Info("room types indexed", "count", n, "index", cfg.Elasticsearch.Index)
		}
		searcher = search.Fallback{Primary: es, Secondary: searcher}
	}

	if cfg.NoShow.Interval > 0 {
		sweep := reservation.NewNoShowSweep(reservations, cfg.NoShow.Interval)
		sweep.Start(ctx)
		defer sweep.Stop()
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:          cfg,
		Catalog:      cat,
		Search:       searcher,
		Availability: avail,
		Reservations: reservations,
		Auth:         authService,
		Revoker:      revoker,
		Limiter:      api.NewRateLimiter(cfg.RateLimit, rdb),
		Metrics:      m,
		Ping:         ping,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http serve", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("http server stopped")
}
