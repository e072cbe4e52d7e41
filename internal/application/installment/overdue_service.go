package installment

import (
	"context"
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"go.uber.org/zap"
)

// OverdueService runs the overdue sweep. The sweep is one conditional bulk
// update whose status predicate makes it safe to run concurrently with
// payments: a row that just went PAID no longer matches and is left alone.
type OverdueService struct {
	repo   installment.Repository
	logger *zap.Logger
}

// NewOverdueService creates a new OverdueService
func NewOverdueService(repo installment.Repository, logger *zap.Logger) *OverdueService {
	return &OverdueService{
		repo:   repo,
		logger: logger,
	}
}

// Sweep flips every pending installment past its due date to OVERDUE across
// all tenants and returns how many rows changed. Idempotent; a second sweep
// with no new lapses changes nothing.
func (s *OverdueService) Sweep(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now()
	}

	start := time.Now()
	changed, err := s.repo.MarkOverdueDue(ctx, now)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return 0, err
	}

	if changed > 0 {
		s.logger.Info("overdue sweep completed",
			zap.Int64("marked", changed),
			zap.Duration("took", time.Since(start)))
	} else {
		s.logger.Debug("overdue sweep found nothing to mark",
			zap.Duration("took", time.Since(start)))
	}

	return changed, nil
}
