package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/mas-api/internal/models"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
	applog "github.com/noah-isme/mas-api/pkg/logger"
)

type activityLogStore interface {
	Append(ctx context.Context, exec sqlx.ExtContext, entry *models.ActivityLog) error
	ListByChain(ctx context.Context, masID string) ([]models.ActivityLog, error)
}

// ActivityService writes and reads the MAS activity ledger.
type ActivityService struct {
	repo   activityLogStore
	logger *zap.Logger
}

// NewActivityService constructs the ledger service.
func NewActivityService(repo activityLogStore, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// Record appends one entry for mas on exec. Catalog names, make and status are
// copied from mas as they are at call time.
func (s *ActivityService) Record(ctx context.Context, exec sqlx.ExtContext, mas *models.MAS, action models.ActivityAction, actor *models.JWTClaims, details string) error {
	entry := &models.ActivityLog{
		MASRowID:     mas.ID,
		Action:       action,
		Details:      details,
		ProjectName:  mas.ProjectName,
		BuildingName: mas.BuildingName,
		ServiceName:  mas.ServiceName,
		ItemName:     mas.ItemName,
		Make:         mas.Make,
		Status:       string(mas.Status),
	}
	if actor != nil {
		userID := actor.UserID
		entry.UserID = &userID
		entry.Username = actor.Username
	}
	if err := s.repo.Append(ctx, exec, entry); err != nil {
		return appErrors.Internal(err, "failed to record activity")
	}
	applog.For(ctx, s.logger).Debug("mas activity recorded",
		zap.String("mas_row_id", mas.ID),
		zap.String("action", string(action)),
		zap.String("username", entry.Username),
	)
	return nil
}

// ListChain returns the ledger of a mas_id chain oldest first.
func (s *ActivityService) ListChain(ctx context.Context, masID string) ([]models.ActivityLog, error) {
	entries, err := s.repo.ListByChain(ctx, masID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load activity")
	}
	if entries == nil {
		entries = []models.ActivityLog{}
	}
	return entries, nil
}
