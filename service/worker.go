package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/config"
	"github.com/webpiratt/swapd/internal/monitor"
	"github.com/webpiratt/swapd/internal/notify"
	"github.com/webpiratt/swapd/internal/tasks"
)

// WorkerService consumes queued tasks: notification delivery and single-swap
// reconciliation. Delivery retries live in the queue, not in the senders.
type WorkerService struct {
	cfg      config.Config
	logger   *logrus.Logger
	sdClient *statsd.Client
	telegram *notify.TelegramSender
	email    *notify.EmailSender
	monitor  *monitor.Monitor
}

func NewWorker(cfg config.Config, sdClient *statsd.Client, telegram *notify.TelegramSender, email *notify.EmailSender, mon *monitor.Monitor) (*WorkerService, error) {
	if mon == nil {
		return nil, fmt.Errorf("monitor cannot be nil")
	}
	logger := logrus.WithField("service", "worker").Logger
	return &WorkerService{
		cfg:      cfg,
		logger:   logger,
		sdClient: sdClient,
		telegram: telegram,
		email:    email,
		monitor:  mon,
	}, nil
}

func (s *WorkerService) incCounter(name string, tags []string) {
	if s.sdClient == nil {
		return
	}
	if err := s.sdClient.Count(name, 1, tags, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}
}

func (s *WorkerService) measureTime(name string, start time.Time, tags []string) {
	if s.sdClient == nil {
		return
	}
	if err := s.sdClient.Timing(name, time.Since(start), tags, 1); err != nil {
		s.logger.Errorf("fail to measure time metric, err: %v", err)
	}
}

func (s *WorkerService) HandleNotification(ctx context.Context, t *asynq.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer s.measureTime("worker.notification.latency", time.Now(), []string{})

	var payload tasks.NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	telegramOn := s.telegram != nil && s.telegram.Enabled()
	emailOn := s.email != nil && s.email.Enabled()
	if !telegramOn && !emailOn {
		s.logger.Debugf("no notification channel configured, dropping %s for %s", payload.Kind, payload.UserID)
		return nil
	}

	delivered := false
	if telegramOn {
		if err := s.telegram.Send(ctx, payload); err != nil {
			s.logger.WithError(err).Warnf("telegram delivery failed for %s", payload.UserID)
		} else {
			delivered = true
		}
	}
	if emailOn {
		if err := s.email.Send(payload); err != nil {
			s.logger.WithError(err).Warnf("email delivery failed for %s", payload.UserID)
		} else {
			delivered = true
		}
	}

	if !delivered {
		s.incCounter("worker.notification.failed", []string{"kind:" + payload.Kind})
		return fmt.Errorf("no channel delivered %s notification for %s", payload.Kind, payload.UserID)
	}
	s.incCounter("worker.notification.delivered", []string{"kind:" + payload.Kind})
	return nil
}

func (s *WorkerService) HandleReconcileSwap(ctx context.Context, t *asynq.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer s.measureTime("worker.reconcile.latency", time.Now(), []string{})

	var payload tasks.ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ProviderOrderID == "" {
		return fmt.Errorf("empty provider order id: %w", asynq.SkipRetry)
	}

	if err := s.monitor.Reconcile(ctx, payload.ProviderOrderID); err != nil {
		s.incCounter("worker.reconcile.failed", []string{})
		return fmt.Errorf("reconcile %s: %w", payload.ProviderOrderID, err)
	}
	s.incCounter("worker.reconcile.succeeded", []string{})
	return nil
}
