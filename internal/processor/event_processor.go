package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"recyclehub/server/config"
	"recyclehub/server/internal/models"
	"recyclehub/server/internal/queue"
)

type PickupLoader interface {
	GetPickup(ctx context.Context, id string) (*models.Pickup, error)
}

type PriceUpdater interface {
	UpdatePriceForPickup(ctx context.Context, pickup *models.Pickup) error
}

// EventProcessor reprices the materials of every pickup event drained from
// the queue.
type EventProcessor struct {
	loader    PickupLoader
	updater   PriceUpdater
	queue     *queue.EventQueue
	config    *config.Config
	logger    *logrus.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	processed atomic.Int64
	failed    atomic.Int64
}

type Stats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Queued    int   `json:"queued"`
}

// NewEventProcessor creates a new event processor instance
func NewEventProcessor(loader PickupLoader, updater PriceUpdater, queue *queue.EventQueue, config *config.Config, logger *logrus.Logger) *EventProcessor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &EventProcessor{
		loader:  loader,
		updater: updater,
		queue:   queue,
		config:  config,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to the queue and launches the configured number of workers
func (p *EventProcessor) Start() {
	p.queue.Subscribe(p.processEvent)
	p.queue.Start(p.config.EventQueue.ProcessorCount)
}

// Stop drains the queue and then cancels in-flight work
func (p *EventProcessor) Stop() {
	p.queue.Close()
	p.cancel()
}

func (p *EventProcessor) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Queued:    p.queue.Len(),
	}
}

// processEvent loads the pickup, retrying transient store errors, and updates
// the prices of its materials.
func (p *EventProcessor) processEvent(event models.PickupEvent) error {
	logger := p.logger.WithFields(logrus.Fields{
		"pickup_id":  event.PickupID,
		"event_type": event.Type,
	})

	pickup, err := p.loadPickup(event.PickupID)
	if err != nil {
		p.failed.Add(1)
		return err
	}

	if err := p.updater.UpdatePriceForPickup(p.ctx, pickup); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to update prices for pickup %s: %w", pickup.ID, err)
	}

	p.processed.Add(1)
	logger.Debug("Processed pickup event")
	return nil
}

func (p *EventProcessor) loadPickup(id string) (*models.Pickup, error) {
	var err error
	for attempt := 0; attempt <= p.config.Pricing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.WithFields(logrus.Fields{
				"pickup_id": id,
				"attempt":   attempt,
			}).Info("Retrying pickup load")
			select {
			case <-p.ctx.Done():
				return nil, p.ctx.Err()
			case <-time.After(p.config.Pricing.RetryDelay):
			}
		}

		var pickup *models.Pickup
		pickup, err = p.loader.GetPickup(p.ctx, id)
		if err == nil {
			return pickup, nil
		}
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("pickup %s: %w", id, err)
		}
	}

	return nil, fmt.Errorf("failed to load pickup %s after %d attempts: %w", id, p.config.Pricing.MaxRetries+1, err)
}
