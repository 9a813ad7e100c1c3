package usage

import (
	"context"
	"strings"

	"github.com/matlukowski/readTube-sub000/internal/models"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Decision is the outcome of a pre-flight quota check
type Decision struct {
	Allowed   bool  `json:"allowed"`
	Required  int64 `json:"required"`
	Remaining int64 `json:"remaining"`
	Used      int64 `json:"used"`
	Granted   int64 `json:"granted"`
}

// Service guards acquisitions against each caller's minute budget
type Service struct {
	store          Store
	defaultGranted int64
	logger         logrus.FieldLogger
}

// NewService creates a new usage guard
func NewService(store Store, defaultGrantedMinutes int64, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		store:          store,
		defaultGranted: defaultGrantedMinutes,
		logger:         logger.WithField("component", "usage"),
	}
}

// Ledger returns the caller's ledger. A caller without a row sees the
// default grant and nothing is written.
func (s *Service) Ledger(ctx context.Context, callerID string) (*models.UsageLedger, error) {
	callerID, err := normalizeCaller(callerID)
	if err != nil {
		return nil, err
	}

	ledger, found, err := s.store.Get(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.UsageLedger{CallerID: callerID, MinutesGranted: s.defaultGranted}, nil
	}
	return ledger, nil
}

// CheckQuota reports whether requiredMinutes fit in the caller's remaining
// budget. It never writes. When the budget is short the decision is returned
// together with a QUOTA_EXCEEDED error.
func (s *Service) CheckQuota(ctx context.Context, callerID string, requiredMinutes int64) (*Decision, error) {
	ledger, err := s.Ledger(ctx, callerID)
	if err != nil {
		return nil, err
	}

	decision := &Decision{
		Required:  requiredMinutes,
		Remaining: ledger.Remaining(),
		Used:      ledger.MinutesUsed,
		Granted:   ledger.MinutesGranted,
	}
	decision.Allowed = requiredMinutes <= decision.Remaining
	if !decision.Allowed {
		return decision, apperrors.QuotaExceeded(ledger.CallerID, requiredMinutes, decision.Remaining)
	}
	return decision, nil
}

// Commit charges minutes to the caller. Call only after an acquisition
// succeeded; failures must never consume quota.
func (s *Service) Commit(ctx context.Context, callerID string, minutes int64) error {
	if minutes <= 0 {
		return nil
	}
	callerID, err := normalizeCaller(callerID)
	if err != nil {
		return err
	}
	if err := s.store.AddUsed(ctx, callerID, minutes, s.defaultGranted); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"caller_id": callerID, "minutes": minutes}).Debug("Committed usage")
	return nil
}

// Grant adds minutes to the caller's budget and returns the updated ledger
func (s *Service) Grant(ctx context.Context, callerID string, minutes int64) (*models.UsageLedger, error) {
	if minutes <= 0 {
		return nil, apperrors.ValidationError("minutes", "must be positive")
	}
	callerID, err := normalizeCaller(callerID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddGranted(ctx, callerID, minutes, s.defaultGranted); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"caller_id": callerID, "minutes": minutes}).Info("Granted minutes")
	return s.Ledger(ctx, callerID)
}

func normalizeCaller(callerID string) (string, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return "", apperrors.ValidationError("caller_id", "is required")
	}
	if len(callerID) > 128 {
		return "", apperrors.ValidationError("caller_id", "must be at most 128 characters")
	}
	return callerID, nil
}
