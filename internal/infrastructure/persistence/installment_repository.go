package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/goldbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInstallmentRepository implements installment.Repository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByID finds an installment by its ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*installment.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds an installment by ID for a specific tenant
func (r *GormInstallmentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*installment.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice returns an invoice's installments ordered by number
func (r *GormInstallmentRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]installment.Installment, error) {
	var installmentModels []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("installment_number ASC").
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	return toDomainSlice(installmentModels), nil
}

// FindByNumber finds one installment of an invoice by its number
func (r *GormInstallmentRepository) FindByNumber(ctx context.Context, tenantID, invoiceID uuid.UUID, number int) (*installment.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ? AND installment_number = ?", tenantID, invoiceID, number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds installments for a tenant with filtering and pagination
func (r *GormInstallmentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter installment.Filter) ([]installment.Installment, error) {
	var installmentModels []models.InstallmentModel
	query := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)
	query = r.applyOrderAndPaging(query, filter)

	if err := query.Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	return toDomainSlice(installmentModels), nil
}

// CountForTenant counts installments for a tenant matching the filter
func (r *GormInstallmentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter installment.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindOpen returns a tenant's PENDING and OVERDUE installments
func (r *GormInstallmentRepository) FindOpen(ctx context.Context, tenantID uuid.UUID) ([]installment.Installment, error) {
	var installmentModels []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]installment.Status{installment.StatusPending, installment.StatusOverdue}).
		Order("due_date ASC").
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	return toDomainSlice(installmentModels), nil
}

// HasActivePlan reports whether the invoice has any non-cancelled installments
func (r *GormInstallmentRepository) HasActivePlan(ctx context.Context, tenantID, invoiceID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("tenant_id = ? AND invoice_id = ? AND status <> ?",
			tenantID, invoiceID, installment.StatusCancelled).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateBatch inserts a whole plan in one transaction; either every
// installment lands or none does.
func (r *GormInstallmentRepository) CreateBatch(ctx context.Context, installments []*installment.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	batch := make([]*models.InstallmentModel, len(installments))
	for i, inst := range installments {
		batch[i] = models.InstallmentModelFromDomain(inst)
	}
	if err := r.db.WithContext(ctx).Create(&batch).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save creates or updates an installment without a version check
func (r *GormInstallmentRepository) Save(ctx context.Context, inst *installment.Installment) error {
	model := models.InstallmentModelFromDomain(inst)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock writes the aggregate only if the stored version is the one the
// aggregate was loaded at. The domain has already bumped the version, so the
// predicate compares against version-1; zero rows affected means another
// writer got there first.
func (r *GormInstallmentRepository) SaveWithLock(ctx context.Context, inst *installment.Installment) error {
	model := models.InstallmentModelFromDomain(inst)
	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("id = ? AND version = ?", inst.ID, inst.Version-1).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// MarkOverdueDue flips every pending installment past its due date to OVERDUE
// in one conditional update. The status predicate excludes PAID and CANCELLED
// rows, so the sweep can never race a payment into overwriting a terminal
// state; it also makes repeated sweeps no-ops.
func (r *GormInstallmentRepository) MarkOverdueDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("status = ? AND due_date < ?", installment.StatusPending, now).
		Updates(map[string]interface{}{
			"status":     installment.StatusOverdue,
			"updated_at": now,
			"version":    gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AggregateByStatus rolls the tenant's installments up by status and kind
func (r *GormInstallmentRepository) AggregateByStatus(ctx context.Context, tenantID uuid.UUID) ([]installment.StatusAggregate, error) {
	var rows []installment.StatusAggregate
	if err := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Select("status, kind, COUNT(*) as count, COALESCE(SUM(amount_due), 0) as total_due, COALESCE(SUM(amount_paid), 0) as total_paid").
		Where("tenant_id = ?", tenantID).
		Group("status, kind").
		Order("kind, status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormInstallmentRepository) applyFilter(query *gorm.DB, filter installment.Filter) *gorm.DB {
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("status IN ? AND due_date < ?",
			[]installment.Status{installment.StatusPending, installment.StatusOverdue}, time.Now())
	}
	return query
}

func (r *GormInstallmentRepository) applyOrderAndPaging(query *gorm.DB, filter installment.Filter) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, InstallmentSortFields, "due_date")
	dir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + dir)

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}

func toDomainSlice(installmentModels []models.InstallmentModel) []installment.Installment {
	installments := make([]installment.Installment, len(installmentModels))
	for i, model := range installmentModels {
		installments[i] = *model.ToDomain()
	}
	return installments
}
