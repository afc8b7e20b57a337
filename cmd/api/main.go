package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/confreg/internal/admission"
	"github.com/geocoder89/confreg/internal/cache"
	"github.com/geocoder89/confreg/internal/config"
	httpx "github.com/geocoder89/confreg/internal/http"
	"github.com/geocoder89/confreg/internal/newsletter"
	"github.com/geocoder89/confreg/internal/observability"
	"github.com/geocoder89/confreg/internal/query"
	"github.com/geocoder89/confreg/internal/repo/kv"
	"github.com/geocoder89/confreg/internal/store"
	"github.com/geocoder89/confreg/internal/store/memory"
	"github.com/geocoder89/confreg/internal/store/postgres"
	"github.com/geocoder89/confreg/internal/store/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	initCtx, cancelInit := config.WithTimeout(10 * time.Second)
	defer cancelInit()

	shutdownTracer, err := observability.InitTracer(initCtx, "confreg", cfg.OTelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	kvStore, err := openStore(initCtx, cfg, prom)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer kvStore.Close()

	repo := kv.NewRegistrationsRepo(kvStore, cfg.StoreKeyPrefix, log)

	var forwarder newsletter.Forwarder = newsletter.NewDisabled(log)
	if cfg.MailchimpConfigured() {
		forwarder = newsletter.NewMailchimp(newsletter.MailchimpConfig{
			APIKey:       cfg.MailchimpAPIKey,
			ServerPrefix: cfg.MailchimpServerPrefix,
			AudienceID:   cfg.MailchimpAudienceID,
		})
	} else {
		log.Warn("mailchimp not configured, newsletter forwarding disabled")
	}
	forwarder = newsletter.NewProtected(forwarder, newsletter.ProtectedConfig{Timeout: cfg.NewsletterTimeout})

	var queryCache *cache.Cache
	if cfg.QueryCacheTTL > 0 {
		queryCache = cache.New(cfg.QueryCacheTTL)
	}
	querySvc := query.NewService(repo, queryCache)

	engine := admission.New(repo, forwarder, admission.Config{
		Capacity:          cfg.EventCapacity,
		NewsletterTimeout: cfg.NewsletterTimeout,
		Serialize:         cfg.AdmissionSerialize,
	}, log, prom)
	engine.OnCommit(querySvc)

	var shuttingDown atomic.Bool

	router := httpx.NewRouter(httpx.Deps{
		Env:                cfg.Env,
		RoutePrefix:        cfg.RoutePrefix,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Log:                log,
		Prom:               prom,
		Gatherer:           reg,
		Admitter:           engine,
		Query:              querySvc,
		Newsletter:         forwarder,
		Store:              repo,
		ShuttingDown:       shuttingDown.Load,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"store", cfg.StoreDriver,
			"capacity", cfg.EventCapacity,
			"serialize_admission", cfg.AdmissionSerialize,
		)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")
	shuttingDown.Store(true)

	ctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg config.Config, prom *observability.Prom) (store.KV, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return memory.NewKV(), nil

	case config.StoreRedis:
		kv := redis.New(redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, prom)
		if err := kv.Ping(ctx); err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return kv, nil

	case config.StorePostgres:
		pool, err := postgres.NewPool(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		kv := postgres.New(pool, prom)
		if err := kv.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return kv, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
