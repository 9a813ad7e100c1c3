package usage

import (
	"context"
	"errors"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps ledgers in the usage_ledgers table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new ledger store backed by gorm
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get retrieves a ledger by caller id
func (s *GormStore) Get(ctx context.Context, callerID string) (*models.UsageLedger, bool, error) {
	var ledger models.UsageLedger
	if err := s.db.WithContext(ctx).Where("caller_id = ?", callerID).First(&ledger).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, apperrors.DatabaseError("get usage ledger", err)
	}
	return &ledger, true, nil
}

// AddUsed increments minutes_used with a single upsert statement
func (s *GormStore) AddUsed(ctx context.Context, callerID string, minutes, defaultGranted int64) error {
	return s.increment(ctx, callerID, "minutes_used", &models.UsageLedger{
		CallerID:       callerID,
		MinutesUsed:    minutes,
		MinutesGranted: defaultGranted,
	}, minutes)
}

// AddGranted increments minutes_granted with a single upsert statement
func (s *GormStore) AddGranted(ctx context.Context, callerID string, minutes, defaultGranted int64) error {
	return s.increment(ctx, callerID, "minutes_granted", &models.UsageLedger{
		CallerID:       callerID,
		MinutesGranted: defaultGranted + minutes,
	}, minutes)
}

func (s *GormStore) increment(ctx context.Context, callerID, column string, initial *models.UsageLedger, delta int64) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "caller_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			column:       gorm.Expr(column+" + ?", delta),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(initial).Error
	if err != nil {
		return apperrors.DatabaseError("update usage ledger", err).WithDetail("caller_id", callerID)
	}
	return nil
}
