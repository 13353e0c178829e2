package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/ledger-service/auth"
	"github.com/radieske/wager-ledger/internal/ledger-service/catalog"
	httpapi "github.com/radieske/wager-ledger/internal/ledger-service/http"
	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
	"github.com/radieske/wager-ledger/internal/ledger-service/producer"
	"github.com/radieske/wager-ledger/internal/ledger-service/repo"
	"github.com/radieske/wager-ledger/internal/shared/cache"
	"github.com/radieske/wager-ledger/internal/shared/config"
	"github.com/radieske/wager-ledger/internal/shared/db"
	"github.com/radieske/wager-ledger/internal/shared/kafka"
	"github.com/radieske/wager-ledger/internal/shared/logger"
	"github.com/radieske/wager-ledger/internal/shared/metrics"
)

// store reúne o que cada camada espera do armazenamento
type store interface {
	ledger.Store
	catalog.Store
	auth.Users
	Ping(ctx context.Context) error
}

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ledger-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checks := []metrics.Check{}

	// Armazenamento: postgres (padrão) ou memória para desenvolvimento
	var st store
	switch cfg.StoreDriver {
	case "memory":
		st = repo.NewMemory()
		log.Warn("using in-memory store; data is lost on restart")
	case "postgres":
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if err := db.Migrate(ctx, pg); err != nil {
			log.Fatal("schema migration failed", zap.Error(err))
		}
		log.Info("postgres connected")
		st = repo.NewPostgres(pg, log)
	default:
		log.Fatal("unknown store driver", zap.String("driver", cfg.StoreDriver))
	}
	checks = append(checks, metrics.Check{Name: "store", Fn: st.Ping})

	// Redis é opcional: sem ele o catálogo vai direto ao banco
	var catalogCache catalog.Cache
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			catalogCache = catalog.NewRedisCache(rdb)
			checks = append(checks, metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
			log.Info("redis connected")
		}
	}

	// Kafka: eventos saem depois do commit; sem brokers são descartados
	var publ ledger.Publisher
	if cfg.KafkaBrokers != "" {
		writer := kafka.NewWriter(cfg.KafkaBrokers)
		defer writer.Close()
		publ = producer.NewKafkaPublisher(writer, producer.Topics{
			BetPlaced:    cfg.TopicBetPlaced,
			BetRevoked:   cfg.TopicBetRevoked,
			BetSettled:   cfg.TopicBetSettled,
			MatchSettled: cfg.TopicMatchSettled,
		})
		log.Info("kafka writer ready", zap.String("brokers", cfg.KafkaBrokers))
	}

	// Métricas Prometheus
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_bets_placed_total", Help: "apostas aceitas"})
	revoked := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_bets_revoked_total", Help: "apostas estornadas"})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_bets_resolved_total", Help: "apostas liquidadas por status"}, []string{"status"})
	betFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_settlement_bet_failures_total", Help: "apostas que falharam na liquidação"})
	unknownOdds := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_unknown_odd_types_total", Help: "tipos de odd sem regra"}, []string{"odd_type"})
	publishErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_publish_errors_total", Help: "falhas ao publicar eventos"}, []string{"topic"})
	prometheus.MustRegister(placed, revoked, resolved, betFailures, unknownOdds, publishErrors)

	ledgerSvc := ledger.NewService(log, st, publ, ledger.Hooks{
		OnPlaced:       func() { placed.Inc() },
		OnRevoked:      func() { revoked.Inc() },
		OnResolved:     func(s model.BetStatus) { resolved.WithLabelValues(string(s)).Inc() },
		OnBetFailure:   func() { betFailures.Inc() },
		OnUnknownOdd:   func(t string) { unknownOdds.WithLabelValues(t).Inc() },
		OnPublishError: func(topic string) { publishErrors.WithLabelValues(topic).Inc() },
	})
	catalogSvc := catalog.NewService(log, st, catalogCache, cfg.CatalogCacheTTL)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authSvc := auth.NewService(log, st, issuer, cfg.InitialBalance)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks...)

	api := httpapi.NewServer(log, ledgerSvc, catalogSvc, authSvc, issuer, cfg.CORSOrigins)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("ledger-service listening", zap.String("addr", apiSrv.Addr), zap.String("store", cfg.StoreDriver))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("ledger-service stopped")
}
