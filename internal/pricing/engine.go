package pricing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"recyclehub/server/internal/models"
)

const DefaultWindowDays = 30

type Options struct {
	WindowDays   int
	HistoryLimit int
	// MinPrice is the lowest price ever committed.
	MinPrice    float64
	MaxRetries  int
	RetryDelay  time.Duration
	Concurrency int
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{
		WindowDays:   DefaultWindowDays,
		HistoryLimit: models.DefaultHistoryLimit,
		MinPrice:     0.01,
		MaxRetries:   3,
		RetryDelay:   50 * time.Millisecond,
		Concurrency:  4,
	}
}

// FailureReporter receives every pricing failure after it has been logged.
type FailureReporter interface {
	ReportFailure(ctx context.Context, materialID string, err error)
}

// Engine recomputes market prices from pickup activity.
type Engine struct {
	store    Store
	locker   Locker
	cache    *QuoteCache
	logger   *logrus.Logger
	opts     Options
	now      func() time.Time
	reporter FailureReporter
	mu       sync.RWMutex
}

func NewEngine(store Store, locker Locker, cache *QuoteCache, opts Options, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	defaults := DefaultOptions()
	if opts.WindowDays <= 0 {
		opts.WindowDays = defaults.WindowDays
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaults.HistoryLimit
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Engine{
		store:  store,
		locker: locker,
		cache:  cache,
		logger: logger,
		opts:   opts,
		now:    now,
	}
}

func (e *Engine) SetFailureReporter(r FailureReporter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reporter = r
}

func (e *Engine) windowStart(now time.Time, windowDays int) time.Time {
	if windowDays <= 0 {
		windowDays = e.opts.WindowDays
	}
	return now.AddDate(0, 0, -windowDays)
}

// GetOrCreatePriceRecord returns the material's record, creating it from the
// material's current price on first access.
func (e *Engine) GetOrCreatePriceRecord(ctx context.Context, materialID string) (*models.MarketPriceRecord, error) {
	rec, err := e.store.FindPriceRecord(ctx, materialID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load price record: %w", err)
	}

	unlock, err := e.locker.Lock(ctx, materialLockKey(materialID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock material %s: %w", materialID, err)
	}
	defer unlock()

	err = e.store.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		r, created, err := e.loadOrInit(ctx, tx, materialID)
		if err != nil {
			return err
		}
		rec = r
		if !created {
			return nil
		}
		return tx.CreatePriceRecord(ctx, r)
	})
	if errors.Is(err, models.ErrConcurrencyConflict) {
		return e.store.FindPriceRecord(ctx, materialID)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (e *Engine) loadOrInit(ctx context.Context, tx Tx, materialID string) (*models.MarketPriceRecord, bool, error) {
	rec, err := tx.FindPriceRecord(ctx, materialID)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to load price record: %w", err)
	}
	material, err := tx.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load material %s: %w", materialID, err)
	}
	return models.NewMarketPriceRecord(material, e.now()), true, nil
}

// RecomputeSupplyLevel reads the activity feed and returns the supply level
// without committing anything.
func (e *Engine) RecomputeSupplyLevel(ctx context.Context, materialID string, windowDays int) (float64, error) {
	samples, err := e.store.ActivitySamples(ctx, materialID, e.windowStart(e.now(), windowDays))
	if err != nil {
		return 0, fmt.Errorf("failed to read activity for material %s: %w", materialID, err)
	}
	return SupplyLevel(samples), nil
}

// RecomputeDemandLevel reads the activity feed and returns the demand level
// without committing anything.
func (e *Engine) RecomputeDemandLevel(ctx context.Context, materialID string, windowDays int) (float64, error) {
	samples, err := e.store.ActivitySamples(ctx, materialID, e.windowStart(e.now(), windowDays))
	if err != nil {
		return 0, fmt.Errorf("failed to read activity for material %s: %w", materialID, err)
	}
	return DemandLevel(samples), nil
}

// ComputeAndCommitPrice recomputes the material's price from the activity
// window, appends it to the history and writes it back to the material.
// Concurrent modifications are retried before giving up.
func (e *Engine) ComputeAndCommitPrice(ctx context.Context, materialID string) (float64, error) {
	var (
		price float64
		err   error
	)
	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			e.logger.WithFields(logrus.Fields{
				"material_id": materialID,
				"attempt":     attempt,
			}).Info("Retrying pricing update after concurrent modification")
			if werr := sleepCtx(ctx, e.opts.RetryDelay); werr != nil {
				err = werr
				break
			}
		}

		price, err = e.commitOnce(ctx, materialID)
		if err == nil {
			return price, nil
		}
		if !errors.Is(err, models.ErrConcurrencyConflict) {
			break
		}
	}

	if errors.Is(err, models.ErrConcurrencyConflict) {
		err = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, e.opts.MaxRetries+1, err)
	}
	e.fail(ctx, materialID, err)
	return 0, err
}

func (e *Engine) commitOnce(ctx context.Context, materialID string) (float64, error) {
	unlock, err := e.locker.Lock(ctx, materialLockKey(materialID))
	if err != nil {
		return 0, fmt.Errorf("failed to lock material %s: %w", materialID, err)
	}
	defer unlock()

	var committed models.PricePoint
	err = e.store.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		material, err := tx.GetMaterial(ctx, materialID)
		if err != nil {
			return fmt.Errorf("failed to load material %s: %w", materialID, err)
		}

		rec, created, err := e.loadOrInit(ctx, tx, materialID)
		if err != nil {
			return err
		}

		now := e.now()
		samples, err := tx.ActivitySamples(ctx, materialID, e.windowStart(now, e.opts.WindowDays))
		if err != nil {
			return fmt.Errorf("failed to read activity: %w", err)
		}

		committed = e.price(material, rec, samples, now)
		rec.SupplyLevel = committed.Factors.Supply
		rec.DemandLevel = committed.Factors.Demand
		rec.AppendHistory(committed, e.opts.HistoryLimit)

		if created {
			err = tx.CreatePriceRecord(ctx, rec)
		} else {
			err = tx.UpdatePriceRecord(ctx, rec)
		}
		if err != nil {
			return fmt.Errorf("failed to save price record: %w", err)
		}
		if err := tx.SetMaterialPrice(ctx, materialID, committed.Price); err != nil {
			return fmt.Errorf("failed to write back material price: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.cache.Set(materialID, committed.Price, committed.Date)
	e.logger.WithFields(logrus.Fields{
		"material_id":     materialID,
		"new_price":       committed.Price,
		"supply_level":    committed.Factors.Supply,
		"demand_level":    committed.Factors.Demand,
		"seasonal_factor": committed.Factors.Seasonal,
	}).Info("Committed market price")
	return committed.Price, nil
}

// price runs the supply, demand and seasonal steps for one update.
func (e *Engine) price(material *models.Material, rec *models.MarketPriceRecord, samples []models.ActivitySample, now time.Time) models.PricePoint {
	supply := SupplyLevel(samples)
	demand := DemandLevel(samples)
	seasonal := material.MarketFactors.SeasonalAdjustments.Factor(now.Month())

	supplySens, demandSens, adjusted := material.MarketFactors.Sensitivities()
	if adjusted {
		e.logger.WithFields(logrus.Fields{
			"material_id":        material.ID,
			"supply_sensitivity": supplySens,
			"demand_sensitivity": demandSens,
		}).Warn("Material sensitivities missing or out of range, using defaults")
	}

	newPrice := ComputePrice(rec.BasePrice, supply, demand, supplySens, demandSens, seasonal)
	if newPrice < e.opts.MinPrice {
		e.logger.WithFields(logrus.Fields{
			"material_id": material.ID,
			"new_price":   newPrice,
			"min_price":   e.opts.MinPrice,
		}).Warn("Computed price below floor, clamping")
		newPrice = e.opts.MinPrice
	}

	return models.PricePoint{
		Price: newPrice,
		Date:  now,
		Factors: models.PriceFactors{
			Supply:   supply,
			Demand:   demand,
			Seasonal: seasonal,
		},
	}
}

// UpdatePriceForPickup recomputes the price of every material in the pickup.
// Materials are independent: each failure is logged and reported, and the
// joined MaterialErrors are returned after all materials were attempted.
func (e *Engine) UpdatePriceForPickup(ctx context.Context, pickup *models.Pickup) error {
	ids := pickup.MaterialIDs()
	if len(ids) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := e.ComputeAndCommitPrice(ctx, id); err != nil {
				mu.Lock()
				errs = append(errs, &MaterialError{MaterialID: id, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		e.logger.WithFields(logrus.Fields{
			"pickup_id": pickup.ID,
			"failed":    len(errs),
			"total":     len(ids),
		}).Error("Pricing update for pickup partially failed")
		return errors.Join(errs...)
	}

	e.logger.WithFields(logrus.Fields{
		"pickup_id": pickup.ID,
		"materials": len(ids),
	}).Debug("Updated prices for pickup")
	return nil
}

// QuotePrice returns the latest price for a material without recomputing it.
func (e *Engine) QuotePrice(ctx context.Context, materialID string) (float64, error) {
	if price, ok := e.cache.Get(materialID, e.now()); ok {
		return price, nil
	}

	rec, err := e.store.FindPriceRecord(ctx, materialID)
	switch {
	case err == nil:
		e.cache.Set(materialID, rec.CurrentPrice, rec.LastUpdated)
		return rec.CurrentPrice, nil
	case !errors.Is(err, models.ErrNotFound):
		return 0, fmt.Errorf("failed to load price record: %w", err)
	}

	material, err := e.store.GetMaterial(ctx, materialID)
	if err != nil {
		return 0, fmt.Errorf("failed to load material %s: %w", materialID, err)
	}
	return material.PricePerKg, nil
}

func (e *Engine) PriceRecord(ctx context.Context, materialID string) (*models.MarketPriceRecord, error) {
	return e.store.FindPriceRecord(ctx, materialID)
}

func (e *Engine) PriceRecords(ctx context.Context) ([]models.MarketPriceRecord, error) {
	return e.store.ListPriceRecords(ctx)
}

func (e *Engine) fail(ctx context.Context, materialID string, err error) {
	e.logger.WithError(err).WithField("material_id", materialID).Error("Pricing update failed")

	e.mu.RLock()
	reporter := e.reporter
	e.mu.RUnlock()
	if reporter != nil {
		reporter.ReportFailure(ctx, materialID, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
