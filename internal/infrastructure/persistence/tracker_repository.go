package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/tracking"
)

// GormTrackerRepository implements TrackerRepository using GORM
type GormTrackerRepository struct {
	db *gorm.DB
}

var _ tracking.TrackerRepository = (*GormTrackerRepository)(nil)

// NewGormTrackerRepository creates a new GormTrackerRepository
func NewGormTrackerRepository(db *gorm.DB) *GormTrackerRepository {
	return &GormTrackerRepository{db: db}
}

// FindByID finds a tracker with its ledger rows
func (r *GormTrackerRepository) FindByID(ctx context.Context, id uuid.UUID) (*tracking.Tracker, error) {
	var tracker tracking.Tracker
	if err := r.db.WithContext(ctx).
		Preload("Rows", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&tracker, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tracker, nil
}

// FindByPaymentRequest finds the tracker for a payment request
func (r *GormTrackerRepository) FindByPaymentRequest(ctx context.Context, paymentRequestID string) (*tracking.Tracker, error) {
	var tracker tracking.Tracker
	if err := r.db.WithContext(ctx).
		Preload("Rows", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&tracker, "payment_request_id = ?", paymentRequestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tracker, nil
}

// FindByPaymentRequests finds trackers for a batch of payment requests,
// keyed by payment request ID
func (r *GormTrackerRepository) FindByPaymentRequests(ctx context.Context, paymentRequestIDs []string) (map[string]*tracking.Tracker, error) {
	result := make(map[string]*tracking.Tracker, len(paymentRequestIDs))
	if len(paymentRequestIDs) == 0 {
		return result, nil
	}

	var trackers []tracking.Tracker
	if err := r.db.WithContext(ctx).
		Where("payment_request_id IN ?", paymentRequestIDs).
		Find(&trackers).Error; err != nil {
		return nil, err
	}

	for i := range trackers {
		result[trackers[i].PaymentRequestID] = &trackers[i]
	}
	return result, nil
}

// Save writes the tracker's totals and replaces its ledger rows in a
// single transaction. Rows are swapped wholesale; positions come from
// the aggregate.
func (r *GormTrackerRepository) Save(ctx context.Context, tracker *tracking.Tracker) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Rows").Save(tracker).Error; err != nil {
			return fmt.Errorf("failed to save tracker: %w", err)
		}
		if err := tx.Where("tracker_id = ?", tracker.ID).
			Delete(&tracking.LedgerRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear ledger rows: %w", err)
		}
		if len(tracker.Rows) > 0 {
			if err := tx.Create(&tracker.Rows).Error; err != nil {
				return fmt.Errorf("failed to insert ledger rows: %w", err)
			}
		}
		return nil
	})
}

// UpdateBudget writes only the budget column
func (r *GormTrackerRepository) UpdateBudget(ctx context.Context, id uuid.UUID, budget decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&tracking.Tracker{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"budget":     budget,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
