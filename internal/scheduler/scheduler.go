package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type Repricer interface {
	ComputeAndCommitPrice(ctx context.Context, materialID string) (float64, error)
}

type MaterialLister interface {
	ListActiveMaterialIDs(ctx context.Context) ([]string, error)
}

// BatchResult summarizes one re-price run over all active materials.
type BatchResult struct {
	Updated   int               `json:"updated"`
	Failed    map[string]string `json:"failed,omitempty"`
	StartedAt time.Time         `json:"startedAt"`
	Duration  time.Duration     `json:"duration"`
}

// Scheduler periodically recomputes the market price of every active material
type Scheduler struct {
	repricer    Repricer
	materials   MaterialLister
	logger      *logrus.Logger
	interval    time.Duration
	concurrency int64
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	jobMutex    sync.Mutex // Ensures runs never overlap
}

// NewScheduler creates a new scheduler. An interval <= 0 disables the
// periodic run; RunOnce still works.
func NewScheduler(repricer Repricer, materials MaterialLister, interval time.Duration, concurrency int, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Scheduler{
		repricer:    repricer,
		materials:   materials,
		logger:      logger,
		interval:    interval,
		concurrency: int64(concurrency),
		stopChan:    make(chan struct{}),
	}
}

// Start begins the scheduled re-price runs
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Periodic re-pricing disabled")
		return
	}
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-s.stopChan:
					cancel()
				case <-ctx.Done():
				}
			}()
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.WithError(err).Error("Scheduled re-pricing failed")
			}
			cancel()
		}
	}
}

// RunOnce re-prices all active materials with bounded concurrency. A failing
// material is recorded in the result and does not stop the run.
func (s *Scheduler) RunOnce(ctx context.Context) (*BatchResult, error) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	result := &BatchResult{StartedAt: time.Now().UTC(), Failed: map[string]string{}}

	ids, err := s.materials.ListActiveMaterialIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}

	s.logger.WithField("materials", len(ids)).Info("Starting market price batch update")

	var mu sync.Mutex
	sem := semaphore.NewWeighted(s.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		id := id
		g.Go(func() error {
			defer sem.Release(1)
			price, err := s.repricer.ComputeAndCommitPrice(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = err.Error()
				return nil
			}
			result.Updated++
			s.logger.WithFields(logrus.Fields{
				"material_id": id,
				"new_price":   price,
			}).Debug("Material re-priced")
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("batch update interrupted: %w", err)
	}

	result.Duration = time.Since(result.StartedAt)
	s.logger.WithFields(logrus.Fields{
		"updated":  result.Updated,
		"failed":   len(result.Failed),
		"duration": result.Duration.String(),
	}).Info("Completed market price batch update")
	return result, nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}
