package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	installmentapp "github.com/goldbooks/backend/internal/application/installment"
	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// sweepRepo stubs only the repository method the sweep touches
type sweepRepo struct {
	installment.Repository
	calls atomic.Int64
}

func (r *sweepRepo) MarkOverdueDue(ctx context.Context, now time.Time) (int64, error) {
	r.calls.Add(1)
	return 0, nil
}

func newScheduler(cfg config.SweeperConfig) (*OverdueScheduler, *sweepRepo) {
	repo := &sweepRepo{}
	service := installmentapp.NewOverdueService(repo, zap.NewNop())
	return NewOverdueScheduler(service, cfg, zap.NewNop()), repo
}

func TestOverdueScheduler_DisabledDoesNotRun(t *testing.T) {
	s, repo := newScheduler(config.SweeperConfig{Enabled: false})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int64(0), repo.calls.Load())
	require.NoError(t, s.Stop(context.Background()))
}

func TestOverdueScheduler_RunOnStartSweepsImmediately(t *testing.T) {
	s, repo := newScheduler(config.SweeperConfig{
		Enabled:    true,
		Interval:   time.Hour,
		RunOnStart: true,
	})

	require.NoError(t, s.Start(context.Background()))
	defer func() {
		require.NoError(t, s.Stop(context.Background()))
	}()

	assert.Eventually(t, func() bool {
		return repo.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestOverdueScheduler_TicksOnInterval(t *testing.T) {
	s, repo := newScheduler(config.SweeperConfig{
		Enabled:  true,
		Interval: 20 * time.Millisecond,
	})

	require.NoError(t, s.Start(context.Background()))
	defer func() {
		require.NoError(t, s.Stop(context.Background()))
	}()

	assert.Eventually(t, func() bool {
		return repo.calls.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestOverdueScheduler_StartTwiceIsIdempotent(t *testing.T) {
	s, _ := newScheduler(config.SweeperConfig{
		Enabled:  true,
		Interval: time.Hour,
	})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
