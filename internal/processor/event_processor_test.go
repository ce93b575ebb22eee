package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recyclehub/server/config"
	"recyclehub/server/internal/models"
	"recyclehub/server/internal/queue"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) GetPickup(ctx context.Context, id string) (*models.Pickup, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*models.Pickup); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockUpdater struct {
	mock.Mock
}

func (m *MockUpdater) UpdatePriceForPickup(ctx context.Context, pickup *models.Pickup) error {
	args := m.Called(ctx, pickup)
	return args.Error(0)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.EventQueue.ProcessorCount = 2
	cfg.Pricing.MaxRetries = 2
	cfg.Pricing.RetryDelay = time.Millisecond
	return cfg
}

func TestNewEventProcessor(t *testing.T) {
	loader := &MockLoader{}
	updater := &MockUpdater{}
	q := queue.NewEventQueue(10, logrus.New())
	cfg := testConfig()
	logger := logrus.New()

	processor := NewEventProcessor(loader, updater, q, cfg, logger)

	assert.NotNil(t, processor)
	assert.Equal(t, q, processor.queue)
	assert.Equal(t, cfg, processor.config)
	assert.Equal(t, logger, processor.logger)
}

func TestEventProcessor_ProcessEvent(t *testing.T) {
	pickup := &models.Pickup{ID: "p1", Materials: []models.PickupMaterial{{MaterialID: "m1", Quantity: 2}}}

	tests := []struct {
		name          string
		setup         func(l *MockLoader, u *MockUpdater)
		wantErr       bool
		wantProcessed int64
		wantFailed    int64
	}{
		{
			name: "success",
			setup: func(l *MockLoader, u *MockUpdater) {
				l.On("GetPickup", mock.Anything, "p1").Return(pickup, nil).Once()
				u.On("UpdatePriceForPickup", mock.Anything, pickup).Return(nil).Once()
			},
			wantProcessed: 1,
		},
		{
			name: "transient load error retried",
			setup: func(l *MockLoader, u *MockUpdater) {
				l.On("GetPickup", mock.Anything, "p1").Return(nil, errors.New("database is locked")).Twice()
				l.On("GetPickup", mock.Anything, "p1").Return(pickup, nil).Once()
				u.On("UpdatePriceForPickup", mock.Anything, pickup).Return(nil).Once()
			},
			wantProcessed: 1,
		},
		{
			name: "load retries exhausted",
			setup: func(l *MockLoader, u *MockUpdater) {
				l.On("GetPickup", mock.Anything, "p1").Return(nil, errors.New("database is locked")).Times(3)
			},
			wantErr:    true,
			wantFailed: 1,
		},
		{
			name: "missing pickup not retried",
			setup: func(l *MockLoader, u *MockUpdater) {
				l.On("GetPickup", mock.Anything, "p1").Return(nil, models.ErrNotFound).Once()
			},
			wantErr:    true,
			wantFailed: 1,
		},
		{
			name: "pricing failure counted",
			setup: func(l *MockLoader, u *MockUpdater) {
				l.On("GetPickup", mock.Anything, "p1").Return(pickup, nil).Once()
				u.On("UpdatePriceForPickup", mock.Anything, pickup).Return(errors.New("material m1 not found")).Once()
			},
			wantErr:    true,
			wantFailed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &MockLoader{}
			updater := &MockUpdater{}
			tt.setup(loader, updater)
			processor := NewEventProcessor(loader, updater, queue.NewEventQueue(10, logrus.New()), testConfig(), logrus.New())

			err := processor.processEvent(models.PickupEvent{PickupID: "p1", Type: models.EventPickupCreated})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			stats := processor.Stats()
			assert.Equal(t, tt.wantProcessed, stats.Processed)
			assert.Equal(t, tt.wantFailed, stats.Failed)
			loader.AssertExpectations(t)
			updater.AssertExpectations(t)
		})
	}
}

func TestEventProcessor_DrainsQueue(t *testing.T) {
	loader := &MockLoader{}
	updater := &MockUpdater{}
	q := queue.NewEventQueue(10, logrus.New())
	processor := NewEventProcessor(loader, updater, q, testConfig(), logrus.New())

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		p := &models.Pickup{ID: id}
		loader.On("GetPickup", mock.Anything, id).Return(p, nil).Once()
		updater.On("UpdatePriceForPickup", mock.Anything, p).Return(nil).Once()
	}

	processor.Start()
	for _, id := range ids {
		require.NoError(t, q.Push(models.PickupEvent{PickupID: id, Type: models.EventStatusChanged}))
	}
	processor.Stop()

	assert.Equal(t, int64(3), processor.Stats().Processed)
	loader.AssertExpectations(t)
	updater.AssertExpectations(t)
}
