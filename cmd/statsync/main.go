package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/logx"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/ariefcatur/go-marketplace-orders/internal/statsync"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := logx.New("info", "seller-stats-sync")
		l.Fatal().Err(err).Msg("config")
	}
	name := cfg.ServiceName + "-statsync"
	log := logx.New(cfg.LogLevel, name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &statsync.Service{
		Dedup: &redisx.Deduper{Redis: rdb, Service: name},
		Stats: &redisx.StatsCache{Redis: rdb, TTL: cfg.StatsCacheTTL},
		Log:   log,
	}

	topics := []string{orders.TopicOrderPlaced, orders.TopicOrderItemStatusChanged}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.StatsyncGroup, topics, cfg.StatsyncWorkers, log)

	log.Info().Str("group", cfg.StatsyncGroup).Strs("topics", topics).Int("workers", cfg.StatsyncWorkers).
		Msg("stats sync consumer started")
	if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
		log.Error().Err(err).Msg("consumer exit")
	}
	log.Info().Msg("stopped")
}
