package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/feed-service/consumer"
	"github.com/radieske/wager-ledger/internal/feed-service/pubsub"
	"github.com/radieske/wager-ledger/internal/feed-service/ws"
	"github.com/radieske/wager-ledger/internal/shared/cache"
	"github.com/radieske/wager-ledger/internal/shared/config"
	"github.com/radieske/wager-ledger/internal/shared/kafka"
	"github.com/radieske/wager-ledger/internal/shared/logger"
	"github.com/radieske/wager-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "feed-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Consumer group compartilhado: cada evento é lido por uma instância e espalhado via Redis
	reader := kafka.NewGroupReader(cfg.KafkaBrokers, "settlement-feed", cfg.TopicMatchSettled, cfg.TopicBetSettled)
	defer reader.Close()

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "feed_messages_consumed_total", Help: "mensagens consumidas"})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{Name: "feed_broadcast_receivers_total", Help: "destinos alcançados por broadcast (clientes ou instâncias)"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, delivered, errorsBy)

	allowed := map[string]struct{}{}
	for _, o := range cfg.CORSOrigins {
		allowed[o] = struct{}{}
	}
	hub := ws.NewHub(log, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	})

	// Sem Redis o feed roda como instância única e entrega direto no hub
	var target consumer.Broadcaster = hub
	checks := []metrics.Check{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, broadcasting to local clients only", zap.Error(err))
		} else {
			defer rdb.Close()
			pubsub.StartRedisSubscriber(ctx, rdb, hub, log)
			target = pubsub.NewRedisBroadcaster(rdb, log)
			checks = append(checks, metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
			log.Info("redis fanout enabled")
		}
	}

	proc := &consumer.Processor{
		Log:    log,
		Reader: reader,
		Hub:    target,
		Topics: consumer.Topics{
			BetSettled:   cfg.TopicBetSettled,
			MatchSettled: cfg.TopicMatchSettled,
		},
		OnConsumed:  func() { consumed.Inc() },
		OnBroadcast: func(n int) { delivered.Add(float64(n)) },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/ws", hub.HandleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("feed-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ws server failed", zap.Error(err))
			cancel()
		}
	}()

	log.Info("settlement consumer started")
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("consumer stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("feed-service stopped")
}
