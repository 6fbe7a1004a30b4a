package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cashtrack/backend/internal/domain/tracking"
)

// paymentEntryModel maps the externally populated payment_entries table.
// Each row is one posted (or draft) settlement against a payment request
// and its upstream reference document.
type paymentEntryModel struct {
	ID               string          `gorm:"column:id;primaryKey"`
	PostingDate      time.Time       `gorm:"column:posting_date"`
	PaidAmount       decimal.Decimal `gorm:"column:paid_amount"`
	Party            string          `gorm:"column:party"`
	ModeOfPayment    string          `gorm:"column:mode_of_payment"`
	Status           string          `gorm:"column:status"`
	PaymentRequestID string          `gorm:"column:payment_request_id"`
	ReferenceDoctype string          `gorm:"column:reference_doctype"`
	ReferenceName    string          `gorm:"column:reference_name"`
	Docstatus        int             `gorm:"column:docstatus"`
}

func (paymentEntryModel) TableName() string {
	return "payment_entries"
}

func (m paymentEntryModel) toRecord() tracking.PaymentEntryRecord {
	return tracking.PaymentEntryRecord{
		ID:            m.ID,
		PostingDate:   m.PostingDate,
		PaidAmount:    m.PaidAmount,
		Party:         m.Party,
		ModeOfPayment: m.ModeOfPayment,
		Status:        m.Status,
	}
}

// GormPaymentEntryReader implements PaymentEntryReader using GORM
type GormPaymentEntryReader struct {
	db *gorm.DB
}

var _ tracking.PaymentEntryReader = (*GormPaymentEntryReader)(nil)

// NewGormPaymentEntryReader creates a new GormPaymentEntryReader
func NewGormPaymentEntryReader(db *gorm.DB) *GormPaymentEntryReader {
	return &GormPaymentEntryReader{db: db}
}

// ListByPaymentRequest returns posted payment entries referencing a
// payment request, newest first
func (r *GormPaymentEntryReader) ListByPaymentRequest(ctx context.Context, paymentRequestID string) ([]tracking.PaymentEntryRecord, error) {
	var models []paymentEntryModel
	if err := r.db.WithContext(ctx).
		Where("payment_request_id = ? AND docstatus = ?", paymentRequestID, 1).
		Order("posting_date DESC, id DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]tracking.PaymentEntryRecord, len(models))
	for i, m := range models {
		records[i] = m.toRecord()
	}
	return records, nil
}

// SumByPaymentRequest totals the posted paid amounts against a payment request
func (r *GormPaymentEntryReader) SumByPaymentRequest(ctx context.Context, paymentRequestID string) (decimal.Decimal, error) {
	return r.sum(ctx, "payment_request_id = ?", paymentRequestID)
}

// SumByReference totals the posted paid amounts against an upstream
// reference document
func (r *GormPaymentEntryReader) SumByReference(ctx context.Context, referenceDoctype, referenceName string) (decimal.Decimal, error) {
	return r.sum(ctx, "reference_doctype = ? AND reference_name = ?", referenceDoctype, referenceName)
}

func (r *GormPaymentEntryReader) sum(ctx context.Context, cond string, args ...interface{}) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&paymentEntryModel{}).
		Select("SUM(paid_amount)").
		Where(cond, args...).
		Where("docstatus = ?", 1).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
