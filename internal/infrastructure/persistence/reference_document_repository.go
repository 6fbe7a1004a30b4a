package persistence

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cashtrack/backend/internal/domain/tracking"
)

// referenceDocumentModel maps the externally populated reference_documents
// table holding upstream orders (purchase orders, sales orders, memos).
type referenceDocumentModel struct {
	Doctype      string          `gorm:"column:doctype;primaryKey"`
	Name         string          `gorm:"column:name;primaryKey"`
	GrandTotal   decimal.Decimal `gorm:"column:grand_total"`
	PaymentTerms string          `gorm:"column:payment_terms_template"`
}

func (referenceDocumentModel) TableName() string {
	return "reference_documents"
}

// GormReferenceDocumentReader implements ReferenceDocumentReader using GORM
type GormReferenceDocumentReader struct {
	db *gorm.DB
}

var _ tracking.ReferenceDocumentReader = (*GormReferenceDocumentReader)(nil)

// NewGormReferenceDocumentReader creates a new GormReferenceDocumentReader
func NewGormReferenceDocumentReader(db *gorm.DB) *GormReferenceDocumentReader {
	return &GormReferenceDocumentReader{db: db}
}

// GrandTotal returns the order's grand total, or nil when the document
// is unknown
func (r *GormReferenceDocumentReader) GrandTotal(ctx context.Context, doctype, name string) (*decimal.Decimal, error) {
	model, err := r.find(ctx, doctype, name)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, nil
	}
	return &model.GrandTotal, nil
}

// PaymentTerms returns the order's payment terms template name, empty
// when the document is unknown or has none
func (r *GormReferenceDocumentReader) PaymentTerms(ctx context.Context, doctype, name string) (string, error) {
	model, err := r.find(ctx, doctype, name)
	if err != nil {
		return "", err
	}
	if model == nil {
		return "", nil
	}
	return model.PaymentTerms, nil
}

func (r *GormReferenceDocumentReader) find(ctx context.Context, doctype, name string) (*referenceDocumentModel, error) {
	var model referenceDocumentModel
	err := r.db.WithContext(ctx).
		First(&model, "doctype = ? AND name = ?", doctype, name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model, nil
}
