package main

import (
	"context"
	"fmt"
	"net"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/api"
	"github.com/webpiratt/swapd/config"
	"github.com/webpiratt/swapd/internal/monitor"
	"github.com/webpiratt/swapd/internal/notify"
	"github.com/webpiratt/swapd/internal/pricecache"
	"github.com/webpiratt/swapd/internal/sideshift"
	"github.com/webpiratt/swapd/service"
	"github.com/webpiratt/swapd/storage"
	"github.com/webpiratt/swapd/storage/postgres"
)

func main() {
	cfg, err := config.GetConfigure()
	if err != nil {
		panic(err)
	}
	logger := logrus.New()

	sdClient, err := statsd.New(net.JoinHostPort(cfg.Datadog.Host, cfg.Datadog.Port))
	if err != nil {
		logger.Warnf("statsd unavailable, metrics disabled: %v", err)
		sdClient = nil
	}

	redisStorage, err := storage.NewRedisStorage(storage.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		User:     cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		panic(err)
	}
	redisOptions := asynq.RedisClientOpt{
		Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := asynq.NewClient(redisOptions)
	defer func() {
		if err := client.Close(); err != nil {
			fmt.Println("fail to close asynq client,", err)
		}
	}()

	db, err := postgres.NewPostgresBackend(cfg.Server.Database.DSN, true)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	provider := sideshift.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.AffiliateID,
		cfg.Provider.Timeout,
		logrus.WithField("service", "sideshift").Logger,
	)
	prices := pricecache.NewCache(
		redisStorage,
		pricecache.NewCoinGeckoSource(logrus.WithField("service", "pricecache").Logger),
		cfg.PriceCache.Assets,
		cfg.PriceCache.Freshness,
		logrus.WithField("service", "pricecache").Logger,
	)
	notifier := notify.NewQueuedNotifier(client, logger)

	mon, err := monitor.New(
		db,
		provider,
		prices,
		notifier,
		sdClient,
		logrus.WithField("service", "monitor").Logger,
		monitor.Config{
			Interval:       cfg.Monitor.Interval,
			ItemTimeout:    cfg.Monitor.ItemTimeout,
			MaxDCAFailures: cfg.Monitor.MaxDCAFailures,
			PriceFreshness: cfg.PriceCache.Freshness,
		},
	)
	if err != nil {
		logger.Fatalf("Failed to initialize monitor: %v", err)
	}
	mon.Start()
	defer mon.Stop()

	c := cron.New()
	if _, err := c.AddFunc(cfg.PriceCache.RefreshSpec, func() {
		if err := prices.Refresh(context.Background()); err != nil {
			logger.WithError(err).Warn("price refresh failed")
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule price refresh: %v", err)
	}
	if _, err := c.AddFunc(cfg.Reconcile.Spec, func() {
		mon.ReconcileAll(context.Background())
	}); err != nil {
		logger.Fatalf("Failed to schedule reconcile sweep: %v", err)
	}
	c.Start()
	defer c.Stop()

	orderService, err := service.NewOrderService(db, provider, logrus.WithField("service", "order").Logger)
	if err != nil {
		logger.Fatalf("Failed to initialize order service: %v", err)
	}

	server := api.NewServer(cfg, db, redisStorage, client, sdClient, orderService, logger)
	if err := server.StartServer(); err != nil {
		panic(err)
	}
}
