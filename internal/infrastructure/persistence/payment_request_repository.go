package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/tracking"
)

// paymentRequestModel maps the externally populated payment_requests table.
// The engine only ever reads it.
type paymentRequestModel struct {
	ID               string          `gorm:"column:id;primaryKey"`
	GrandTotal       decimal.Decimal `gorm:"column:grand_total"`
	ReferenceDoctype string          `gorm:"column:reference_doctype"`
	ReferenceName    string          `gorm:"column:reference_name"`
	PartyType        string          `gorm:"column:party_type"`
	Party            string          `gorm:"column:party"`
	PartyName        string          `gorm:"column:party_name"`
	TransactionDate  time.Time       `gorm:"column:transaction_date"`
	Status           string          `gorm:"column:status"`
	Docstatus        int             `gorm:"column:docstatus"`
}

func (paymentRequestModel) TableName() string {
	return "payment_requests"
}

func (m paymentRequestModel) toRecord() tracking.PaymentRequestRecord {
	return tracking.PaymentRequestRecord{
		ID:               m.ID,
		GrandTotal:       m.GrandTotal,
		ReferenceDoctype: m.ReferenceDoctype,
		ReferenceName:    m.ReferenceName,
		PartyType:        m.PartyType,
		Party:            m.Party,
		PartyName:        m.PartyName,
		TransactionDate:  m.TransactionDate,
		Status:           m.Status,
	}
}

// GormPaymentRequestReader implements PaymentRequestReader using GORM
type GormPaymentRequestReader struct {
	db *gorm.DB
}

var _ tracking.PaymentRequestReader = (*GormPaymentRequestReader)(nil)

// NewGormPaymentRequestReader creates a new GormPaymentRequestReader
func NewGormPaymentRequestReader(db *gorm.DB) *GormPaymentRequestReader {
	return &GormPaymentRequestReader{db: db}
}

// List returns submitted payment requests for a category's source doctype.
// Filter fields match exactly.
func (r *GormPaymentRequestReader) List(ctx context.Context, category tracking.ReferenceCategory, filter tracking.EntryFilter) ([]tracking.PaymentRequestRecord, error) {
	spec, err := tracking.Spec(category)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Where("reference_doctype = ?", spec.SourceDoctype).
		Where("docstatus = ?", 1)

	if filter.PaymentRequestID != "" {
		query = query.Where("id = ?", filter.PaymentRequestID)
	}
	if filter.ReferenceDoctype != "" {
		query = query.Where("reference_doctype = ?", filter.ReferenceDoctype)
	}
	if filter.ReferenceName != "" {
		query = query.Where("reference_name = ?", filter.ReferenceName)
	}
	if filter.Supplier != "" {
		query = query.Where("party = ?", filter.Supplier)
	}
	if filter.FromDate != nil {
		query = query.Where("transaction_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("transaction_date <= ?", *filter.ToDate)
	}

	var models []paymentRequestModel
	if err := query.Order("transaction_date DESC, id DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]tracking.PaymentRequestRecord, len(models))
	for i, m := range models {
		records[i] = m.toRecord()
	}
	return records, nil
}

// FindByID retrieves one payment request
func (r *GormPaymentRequestReader) FindByID(ctx context.Context, id string) (*tracking.PaymentRequestRecord, error) {
	var model paymentRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	record := model.toRecord()
	return &record, nil
}
