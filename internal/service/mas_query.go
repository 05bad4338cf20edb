package service

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/noah-isme/mas-api/internal/dto"
	"github.com/noah-isme/mas-api/internal/models"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
)

// Get returns one row with the transitions the actor may perform on it.
func (s *MASService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.MASDetail, error) {
	mas, err := s.visibleMAS(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	allowed, err := s.policy.AllowedTransitions(ctx, actor, mas)
	if err != nil {
		return nil, err
	}
	actions := make([]string, 0, len(allowed))
	for _, t := range allowed {
		actions = append(actions, string(t))
	}
	return &dto.MASDetail{MAS: mas, AllowedActions: actions}, nil
}

// List returns the rows visible to actor. Admins see everything, vendors their
// own submissions, and team members rows of buildings they hold a role on,
// restricted to the statuses that role acts upon.
func (s *MASService) List(ctx context.Context, actor *models.JWTClaims, query dto.MASListQuery) ([]models.MAS, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	group := query.Status
	if group == "" {
		group = models.MASStatusGroupPending
	}
	switch group {
	case models.MASStatusGroupPending, models.MASStatusGroupApproved, models.MASStatusGroupRejected, models.MASStatusGroupAll:
	default:
		return nil, appErrors.FieldError("status", "status must be one of pending, approved, rejected, all")
	}

	filter := models.MASFilter{
		Statuses:   group.Statuses(),
		LatestOnly: true,
		Limit:      query.Limit,
		Offset:     query.Offset,
	}
	if query.Latest != nil {
		filter.LatestOnly = *query.Latest
	}

	switch actor.UserType {
	case models.UserTypeAdmin:
	case models.UserTypeVendor:
		filter.CreatorID = actor.UserID
	case models.UserTypeTeam:
		grants, err := s.assignments.RoleGrants(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load building roles")
		}
		reviewer := mapset.NewThreadUnsafeSet[string]()
		approver := mapset.NewThreadUnsafeSet[string]()
		for _, grant := range grants {
			switch grant.Role {
			case models.BuildingRoleReviewer:
				reviewer.Add(grant.BuildingID)
			case models.BuildingRoleApprover:
				approver.Add(grant.BuildingID)
			}
		}
		filter.Scoped = true
		filter.ReviewerBuildings = reviewer.ToSlice()
		filter.ApproverBuildings = approver.ToSlice()
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown user type")
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list MAS")
	}
	if rows == nil {
		rows = []models.MAS{}
	}
	return rows, nil
}

// History returns every revision of the chain containing id together with its
// ledger, oldest first.
func (s *MASService) History(ctx context.Context, actor *models.JWTClaims, id string) (*dto.MASHistory, error) {
	mas, err := s.visibleMAS(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	return loadThrough(ctx, s.cache, historyCacheKey(mas.MASID), s.historyTTL, func() (*dto.MASHistory, error) {
		revisions, err := s.repo.ListChain(ctx, mas.MASID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load revisions")
		}
		activity, err := s.ledger.ListChain(ctx, mas.MASID)
		if err != nil {
			return nil, err
		}
		return &dto.MASHistory{MASID: mas.MASID, Revisions: revisions, Activity: activity}, nil
	})
}

// AttachmentLink returns a short-lived download URL for the row's attachment.
func (s *MASService) AttachmentLink(ctx context.Context, actor *models.JWTClaims, id string) (*dto.AttachmentLink, error) {
	mas, err := s.visibleMAS(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.attachments.Link(actor.UserID, mas.Attachment)
}

func (s *MASService) visibleMAS(ctx context.Context, actor *models.JWTClaims, id string) (*models.MAS, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	mas, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupFailure(err, "MAS")
	}
	switch actor.UserType {
	case models.UserTypeAdmin:
		return mas, nil
	case models.UserTypeVendor:
		if mas.CreatorID == actor.UserID {
			return mas, nil
		}
	case models.UserTypeTeam:
		roles, err := s.assignments.BuildingRoles(ctx, actor.UserID, mas.BuildingID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load building roles")
		}
		if len(roles) > 0 {
			return mas, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this MAS")
}
