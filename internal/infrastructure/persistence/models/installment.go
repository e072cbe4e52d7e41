package models

import (
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentModel is the persistence model for the Installment aggregate root.
// AmountDue and AmountPaid share one numeric column pair for both kinds; the
// kind column decides whether they mean currency or grams.
type InstallmentModel struct {
	TenantAggregateModel
	InvoiceID         uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_installment_invoice_number,priority:1"`
	InstallmentNumber int                        `gorm:"not null;uniqueIndex:idx_installment_invoice_number,priority:2"`
	Kind              installment.Kind           `gorm:"type:varchar(20);not null;index"`
	AmountDue         decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	AmountPaid        decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	DueDate           time.Time                  `gorm:"not null;index:idx_installment_due_status,priority:1"`
	Status            installment.Status         `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_installment_due_status,priority:2"`
	Payments          installment.PaymentRecords `gorm:"type:jsonb;default:'[]'"`
	PaidAt            *time.Time
	CancelledAt       *time.Time
	CancelReason      string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment aggregate.
func (m *InstallmentModel) ToDomain() *installment.Installment {
	return &installment.Installment{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID:  m.TenantID,
			CreatedBy: m.CreatedBy,
		},
		InvoiceID:         m.InvoiceID,
		InstallmentNumber: m.InstallmentNumber,
		Kind:              m.Kind,
		AmountDue:         m.AmountDue,
		AmountPaid:        m.AmountPaid,
		DueDate:           m.DueDate,
		Status:            m.Status,
		Payments:          m.Payments,
		PaidAt:            m.PaidAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
}

// InstallmentModelFromDomain converts a domain Installment to its persistence model.
func InstallmentModelFromDomain(inst *installment.Installment) *InstallmentModel {
	m := &InstallmentModel{
		InvoiceID:         inst.InvoiceID,
		InstallmentNumber: inst.InstallmentNumber,
		Kind:              inst.Kind,
		AmountDue:         inst.AmountDue,
		AmountPaid:        inst.AmountPaid,
		DueDate:           inst.DueDate,
		Status:            inst.Status,
		Payments:          inst.Payments,
		PaidAt:            inst.PaidAt,
		CancelledAt:       inst.CancelledAt,
		CancelReason:      inst.CancelReason,
	}
	m.FromDomainTenantAggregateRoot(inst.TenantAggregateRoot)
	if m.Payments == nil {
		m.Payments = installment.PaymentRecords{}
	}
	return m
}
