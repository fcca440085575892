package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/catalog"
	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	"github.com/ariefcatur/go-marketplace-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/logx"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := logx.New("info", "order-api")
		l.Fatal().Err(err).Msg("config")
	}
	log := logx.New(cfg.LogLevel, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orderSvc := &orders.Service{ServiceName: cfg.ServiceName, Log: log}
	var carts cart.Store
	var cat catalog.Lookup
	var prod *kafkax.Producer

	switch cfg.Storage {
	case "memory":
		// dev mode: no Postgres, Redis or Kafka
		mc := memstore.NewCatalog()
		if cfg.CatalogSeed != "" {
			if mc, err = memstore.LoadCatalog(cfg.CatalogSeed); err != nil {
				log.Fatal().Err(err).Msg("catalog seed")
			}
		}
		cat = mc
		carts = memstore.NewCartStore()
		orderSvc.Store = memstore.NewOrderStore()
		log.Warn().Msg("running with in-memory storage")
	default:
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			log.Fatal().Err(err).Msg("db migrate")
		}
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect")
		}
		defer db.Close()

		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()

		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start()

		cat = &catalog.Repo{DB: db}
		carts = &cart.Repo{DB: db}
		orderSvc.Store = &orders.Repo{DB: db}
		orderSvc.Publisher = prod
		orderSvc.Idempotency = &redisx.IdempotencyStore{Redis: rdb}
		orderSvc.Stats = &redisx.StatsCache{Redis: rdb, TTL: cfg.StatsCacheTTL}
	}
	orderSvc.Catalog = cat
	orderSvc.Cart = carts

	router := httpx.NewRouter(log)
	httpx.MountAuthenticated(router, auth.NewVerifier(cfg.JWTSecret), log,
		&httpx.CartHandler{Cart: &cart.Service{Store: carts, Catalog: cat}, Log: log},
		&httpx.OrdersHandler{Orders: orderSvc, Log: log},
		&httpx.SellerHandler{Orders: orderSvc, Log: log},
	)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.Storage).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exit")
	}
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	log.Info().Msg("stopped")
}
