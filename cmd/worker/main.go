package main

import (
	"fmt"
	"net"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/config"
	"github.com/webpiratt/swapd/internal/monitor"
	"github.com/webpiratt/swapd/internal/notify"
	"github.com/webpiratt/swapd/internal/pricecache"
	"github.com/webpiratt/swapd/internal/sideshift"
	"github.com/webpiratt/swapd/internal/tasks"
	"github.com/webpiratt/swapd/service"
	"github.com/webpiratt/swapd/storage"
	"github.com/webpiratt/swapd/storage/postgres"
)

func main() {
	cfg, err := config.GetConfigure()
	if err != nil {
		panic(err)
	}
	logger := logrus.StandardLogger()

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

	db, err := postgres.NewPostgresBackend(cfg.Server.Database.DSN, false)
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

	// The worker reconciles but never executes; no queue client means no
	// notifications are re-enqueued from here. Delivery happens directly.
	mon, err := monitor.New(
		db,
		provider,
		prices,
		nil,
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

	telegram := notify.NewTelegramSender(cfg.Telegram.BotToken, logrus.WithField("service", "telegram").Logger)
	email := notify.NewEmailSender(cfg.Email.Host, cfg.Email.Port, cfg.Email.User, cfg.Email.Password, cfg.Email.From, logrus.WithField("service", "email").Logger)

	worker, err := service.NewWorker(*cfg, sdClient, telegram, email, mon)
	if err != nil {
		logger.Fatalf("Failed to initialize worker service: %v", err)
	}

	srv := asynq.NewServer(
		redisOptions,
		asynq.Config{
			Logger:      logger,
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QUEUE_NAME: 10,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeNotification, worker.HandleNotification)
	mux.HandleFunc(tasks.TypeReconcileSwap, worker.HandleReconcileSwap)
	if err := srv.Run(mux); err != nil {
		panic(fmt.Errorf("could not run server: %w", err))
	}
}
