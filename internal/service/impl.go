package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/models"
)

// RealClock — продовая реализация Clock
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// LogNotifier — Notifier без транспорта: только пишет в лог. Доставка
// через APNs подключается отдельной реализацией.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyPassUpdated(_ context.Context, rec models.IdentityRecord) error {
	if n.Logger != nil {
		n.Logger.Info("pass update notification",
			"serial", rec.SerialNumber, "status", rec.Status, "etag", rec.CacheValidator)
	}
	return nil
}
