package consumer

import (
	"context"
	"encoding/json"

	"github.com/coachhub/scheduler/internal/models"
	"github.com/coachhub/scheduler/internal/repository"
	"github.com/coachhub/scheduler/internal/schedule"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HolidayConsumer syncs holiday records published by the external holiday
// feed into the local store and the in-memory registry.
type HolidayConsumer struct {
	repo     repository.HolidayRepository
	registry *schedule.HolidayRegistry
	logger   *zap.Logger
}

func NewHolidayConsumer(repo repository.HolidayRepository, registry *schedule.HolidayRegistry, logger *zap.Logger) *HolidayConsumer {
	return &HolidayConsumer{repo: repo, registry: registry, logger: logger}
}

func (hc *HolidayConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			hc.handleMessage(msg)
		}
		hc.logger.Info("holiday feed channel closed, stopping consumer")
	}()
}

func (hc *HolidayConsumer) handleMessage(msg amqp.Delivery) {
	var holiday models.Holiday
	if err := json.Unmarshal(msg.Body, &holiday); err != nil {
		hc.logger.Warn("failed to unmarshal holiday", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	// Re-publication of the same ID refreshes the stored record.
	if err := hc.repo.Upsert(context.Background(), &holiday); err != nil {
		hc.logger.Error("failed to upsert holiday",
			zap.String("holiday_id", holiday.ID.String()),
			zap.Error(err),
		)
		msg.Nack(false, true) // requeue
		return
	}

	hc.registry.Add(&holiday)
	hc.logger.Info("synced holiday",
		zap.String("holiday_id", holiday.ID.String()),
		zap.String("name", holiday.Name),
		zap.Time("date", holiday.Date),
	)
	msg.Ack(false)
}
