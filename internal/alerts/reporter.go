package alerts

import (
	"context"
	"fmt"
	"html"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const pendingAlerts = 32

type alert struct {
	materialID string
	message    string
}

// PricingReporter forwards pricing failures to a Notifier from a background
// worker. Repeated failures for the same material are suppressed for the
// cooldown period, and alerts are dropped when the backlog is full.
type PricingReporter struct {
	notifier Notifier
	logger   *logrus.Logger
	cooldown time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
	closed   bool

	pending chan alert
	done    chan struct{}
}

func NewPricingReporter(notifier Notifier, cooldown time.Duration, logger *logrus.Logger) *PricingReporter {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	r := &PricingReporter{
		notifier: notifier,
		logger:   logger,
		cooldown: cooldown,
		timeout:  10 * time.Second,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
		pending:  make(chan alert, pendingAlerts),
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

// ReportFailure queues an alert and returns without waiting for delivery.
func (r *PricingReporter) ReportFailure(_ context.Context, materialID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.shouldSend(materialID) {
		return
	}

	a := alert{
		materialID: materialID,
		message: fmt.Sprintf("<b>Market price update failed</b>\n\nMaterial: %s\nError: %s",
			html.EscapeString(materialID), html.EscapeString(err.Error())),
	}
	select {
	case r.pending <- a:
	default:
		r.logger.WithField("material_id", materialID).Warn("Alert backlog full, dropping pricing alert")
	}
}

// Close stops accepting alerts and waits for queued ones to be sent.
func (r *PricingReporter) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.pending)
	r.mu.Unlock()
	<-r.done
}

func (r *PricingReporter) run() {
	defer close(r.done)
	for a := range r.pending {
		r.send(a)
	}
}

func (r *PricingReporter) send(a alert) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.notifier.Notify(ctx, a.message); err != nil {
		r.logger.WithError(err).WithField("material_id", a.materialID).Error("Failed to send pricing alert")
	}
}

// shouldSend must be called with r.mu held.
func (r *PricingReporter) shouldSend(materialID string) bool {
	now := r.now()
	if last, ok := r.lastSent[materialID]; ok && now.Sub(last) < r.cooldown {
		return false
	}
	r.lastSent[materialID] = now
	return true
}
