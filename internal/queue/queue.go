package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"recyclehub/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// EventQueue is an in-memory queue of pickup events
type EventQueue struct {
	items    chan models.PickupEvent
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
	handlers []func(models.PickupEvent) error
}

// NewEventQueue creates a new event queue with the specified buffer size
func NewEventQueue(bufferSize int, logger *logrus.Logger) *EventQueue {
	if logger == nil {
		logger = logrus.New()
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &EventQueue{
		items:    make(chan models.PickupEvent, bufferSize),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(models.PickupEvent) error, 0),
	}
}

// Push adds an event to the queue without blocking
func (q *EventQueue) Push(event models.PickupEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- event:
		q.logger.WithFields(logrus.Fields{
			"pickup_id":  event.PickupID,
			"event_type": event.Type,
		}).Debug("Pushed event to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each event
func (q *EventQueue) Subscribe(handler func(models.PickupEvent) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches workers goroutines draining the queue. Events are delivered
// to handlers by exactly one worker.
func (q *EventQueue) Start(workers int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.process()
	}
}

func (q *EventQueue) process() {
	defer q.wg.Done()
	for event := range q.items {
		q.dispatch(event)
	}
}

// dispatch sends the event to all subscribed handlers
func (q *EventQueue) dispatch(event models.PickupEvent) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			q.logger.WithError(err).WithFields(logrus.Fields{
				"pickup_id":  event.PickupID,
				"event_type": event.Type,
			}).Error("Handler failed to process event")
		}
	}
}

// Close stops accepting events and waits until the workers have handled the
// events already queued.
func (q *EventQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the current number of events in the queue
func (q *EventQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *EventQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
