package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepricer struct {
	mock.Mock
	inFlight    int64
	maxInFlight int64
}

func (m *mockRepricer) ComputeAndCommitPrice(ctx context.Context, materialID string) (float64, error) {
	n := atomic.AddInt64(&m.inFlight, 1)
	for {
		peak := atomic.LoadInt64(&m.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt64(&m.maxInFlight, peak, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt64(&m.inFlight, -1)

	args := m.Called(ctx, materialID)
	return args.Get(0).(float64), args.Error(1)
}

type staticLister struct {
	ids []string
	err error
}

func (l staticLister) ListActiveMaterialIDs(context.Context) ([]string, error) {
	return l.ids, l.err
}

func TestScheduler_RunOnce(t *testing.T) {
	repricer := &mockRepricer{}
	ids := []string{"m1", "m2", "m3", "m4", "m5", "m6"}
	for _, id := range ids {
		if id == "m3" {
			repricer.On("ComputeAndCommitPrice", mock.Anything, id).Return(0.0, errors.New("material not found")).Once()
			continue
		}
		repricer.On("ComputeAndCommitPrice", mock.Anything, id).Return(1.5, nil).Once()
	}

	s := NewScheduler(repricer, staticLister{ids: ids}, 0, 2, logrus.New())
	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Updated)
	assert.Equal(t, map[string]string{"m3": "material not found"}, result.Failed)
	assert.LessOrEqual(t, atomic.LoadInt64(&repricer.maxInFlight), int64(2))
	repricer.AssertExpectations(t)
}

func TestScheduler_RunOnceListError(t *testing.T) {
	s := NewScheduler(&mockRepricer{}, staticLister{err: errors.New("db down")}, 0, 2, logrus.New())
	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestScheduler_RunOnceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScheduler(&mockRepricer{}, staticLister{ids: []string{"m1"}}, 0, 1, logrus.New())

	_, err := s.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduler_PeriodicRun(t *testing.T) {
	repricer := &mockRepricer{}
	var mu sync.Mutex
	runs := 0
	repricer.On("ComputeAndCommitPrice", mock.Anything, "m1").Return(2.0, nil).Run(func(mock.Arguments) {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	s := NewScheduler(repricer, staticLister{ids: []string{"m1"}}, 10*time.Millisecond, 1, logrus.New())
	s.Start()
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 2
	}, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestScheduler_DisabledStartStop(t *testing.T) {
	s := NewScheduler(&mockRepricer{}, staticLister{}, 0, 1, logrus.New())
	s.Start()
	s.Stop()
}
