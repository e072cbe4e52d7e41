package installment

import (
	"context"
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KindStatistics is the portfolio rollup for one installment kind. Currency
// and gold totals never share a row; a gold gram added to a lira would be
// meaningless.
type KindStatistics struct {
	Kind              installment.Kind `json:"kind"`
	TotalInstallments int64            `json:"total_installments"`
	PendingCount      int64            `json:"pending_count"`
	PaidCount         int64            `json:"paid_count"`
	OverdueCount      int64            `json:"overdue_count"`
	CancelledCount    int64            `json:"cancelled_count"`
	TotalDue          decimal.Decimal  `json:"total_due"`
	TotalPaid         decimal.Decimal  `json:"total_paid"`
	Outstanding       decimal.Decimal  `json:"outstanding"`
	// CollectionRate is TotalPaid / TotalDue as a plain ratio in [0, 1],
	// zero when nothing is due. Percentage formatting belongs to the
	// presentation layer.
	CollectionRate decimal.Decimal `json:"collection_rate"`
}

// PortfolioStatistics is the tenant-wide installment rollup, split by kind
type PortfolioStatistics struct {
	TenantID    uuid.UUID        `json:"tenant_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Kinds       []KindStatistics `json:"kinds"`
}

// AgingBucketLine is one row of an aging report
type AgingBucketLine struct {
	Bucket         installment.AgingBucket `json:"bucket"`
	Count          int                     `json:"count"`
	TotalRemaining decimal.Decimal         `json:"total_remaining"`
}

// AgingReport classifies a tenant's open installments into delinquency
// buckets, split by kind. Every bucket appears in order even when empty.
type AgingReport struct {
	TenantID    uuid.UUID                              `json:"tenant_id"`
	GeneratedAt time.Time                              `json:"generated_at"`
	Kinds       map[installment.Kind][]AgingBucketLine `json:"kinds"`
}

// StatisticsService builds tenant-level portfolio and aging views
type StatisticsService struct {
	repo installment.Repository
	// dueSoonWindow widens the CURRENT bucket split in aging reports; zero
	// disables the DUE_SOON bucket.
	dueSoonWindow time.Duration
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(repo installment.Repository, dueSoonWindow time.Duration) *StatisticsService {
	return &StatisticsService{
		repo:          repo,
		dueSoonWindow: dueSoonWindow,
	}
}

// GetPortfolioStatistics rolls the tenant's installments up by kind. The sums
// come from one grouped query; cancelled installments contribute to counts but
// not to the due, paid, or outstanding totals.
func (s *StatisticsService) GetPortfolioStatistics(ctx context.Context, tenantID uuid.UUID) (*PortfolioStatistics, error) {
	rows, err := s.repo.AggregateByStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	byKind := make(map[installment.Kind]*KindStatistics)
	kindOrder := []installment.Kind{installment.KindGeneral, installment.KindGold}
	for _, row := range rows {
		stats, ok := byKind[row.Kind]
		if !ok {
			stats = &KindStatistics{
				Kind:        row.Kind,
				TotalDue:    decimal.Zero,
				TotalPaid:   decimal.Zero,
				Outstanding: decimal.Zero,
			}
			byKind[row.Kind] = stats
		}

		stats.TotalInstallments += row.Count
		switch row.Status {
		case installment.StatusPending:
			stats.PendingCount += row.Count
		case installment.StatusPaid:
			stats.PaidCount += row.Count
		case installment.StatusOverdue:
			stats.OverdueCount += row.Count
		case installment.StatusCancelled:
			stats.CancelledCount += row.Count
			continue
		}

		stats.TotalDue = stats.TotalDue.Add(row.TotalDue)
		stats.TotalPaid = stats.TotalPaid.Add(row.TotalPaid)
	}

	result := &PortfolioStatistics{
		TenantID:    tenantID,
		GeneratedAt: time.Now(),
		Kinds:       make([]KindStatistics, 0, len(byKind)),
	}
	for _, kind := range kindOrder {
		stats, ok := byKind[kind]
		if !ok {
			continue
		}
		stats.Outstanding = stats.TotalDue.Sub(stats.TotalPaid)
		if stats.Outstanding.IsNegative() {
			stats.Outstanding = decimal.Zero
		}
		if stats.TotalDue.IsPositive() {
			stats.CollectionRate = stats.TotalPaid.Div(stats.TotalDue).Round(4)
		} else {
			stats.CollectionRate = decimal.Zero
		}
		result.Kinds = append(result.Kinds, *stats)
	}

	return result, nil
}

// GetAgingReport classifies the tenant's open installments by whole days past
// due at the time of the call. Classification reads due dates directly, so the
// report is correct even for rows the sweeper has not flipped yet.
func (s *StatisticsService) GetAgingReport(ctx context.Context, tenantID uuid.UUID) (*AgingReport, error) {
	open, err := s.repo.FindOpen(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	buckets := installment.AllBuckets()
	report := &AgingReport{
		TenantID:    tenantID,
		GeneratedAt: now,
		Kinds:       make(map[installment.Kind][]AgingBucketLine),
	}

	lines := make(map[installment.Kind]map[installment.AgingBucket]*AgingBucketLine)
	for idx := range open {
		inst := &open[idx]
		kindLines, ok := lines[inst.Kind]
		if !ok {
			kindLines = make(map[installment.AgingBucket]*AgingBucketLine, len(buckets))
			for _, b := range buckets {
				kindLines[b] = &AgingBucketLine{Bucket: b, TotalRemaining: decimal.Zero}
			}
			lines[inst.Kind] = kindLines
		}

		bucket := installment.ClassifyOpen(inst.DueDate, now, s.dueSoonWindow)
		line := kindLines[bucket]
		line.Count++
		line.TotalRemaining = line.TotalRemaining.Add(inst.Remaining())
	}

	for kind, kindLines := range lines {
		ordered := make([]AgingBucketLine, 0, len(buckets))
		for _, b := range buckets {
			ordered = append(ordered, *kindLines[b])
		}
		report.Kinds[kind] = ordered
	}

	return report, nil
}
