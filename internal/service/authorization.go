package service

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/noah-isme/mas-api/internal/models"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
)

// Transition names a lifecycle operation an actor may attempt on a MAS row.
type Transition string

const (
	TransitionEdit    Transition = "edit"
	TransitionReview  Transition = "review"
	TransitionApprove Transition = "approve"
	TransitionRevise  Transition = "revise"
)

// transitionOrder fixes the order AllowedTransitions reports in.
var transitionOrder = []Transition{TransitionEdit, TransitionReview, TransitionApprove, TransitionRevise}

type buildingRoleReader interface {
	BuildingRoles(ctx context.Context, userID, buildingID string) ([]models.BuildingRole, error)
}

type transitionRule struct {
	from        mapset.Set[models.MASStatus]
	role        models.BuildingRole
	creatorOnly bool
	// stateDenied is returned when the actor is permitted but the row is not
	// in a state that allows the transition.
	stateDenied *appErrors.Error
}

// AuthorizationPolicy is the single capability check for lifecycle transitions.
// Roles are resolved per building; Admin users get no implicit grants and
// vendors never hold building roles.
type AuthorizationPolicy struct {
	roles buildingRoleReader
	rules map[Transition]transitionRule
}

// NewAuthorizationPolicy constructs the policy over a building role source.
func NewAuthorizationPolicy(roles buildingRoleReader) *AuthorizationPolicy {
	return &AuthorizationPolicy{
		roles: roles,
		rules: map[Transition]transitionRule{
			TransitionEdit: {
				from:        mapset.NewSet(models.MASStatusPendingReview),
				creatorOnly: true,
				stateDenied: appErrors.Clone(appErrors.ErrForbidden, "MAS can no longer be edited"),
			},
			TransitionReview: {
				from:        mapset.NewSet(models.MASStatusPendingReview),
				role:        models.BuildingRoleReviewer,
				stateDenied: appErrors.Clone(appErrors.ErrInvalidTransition, "MAS is not pending review"),
			},
			TransitionApprove: {
				from:        mapset.NewSet(models.MASStatusPendingApproval),
				role:        models.BuildingRoleApprover,
				stateDenied: appErrors.Clone(appErrors.ErrInvalidTransition, "MAS is not pending approval"),
			},
			TransitionRevise: {
				from:        mapset.NewSet(models.MASStatusRejected, models.MASStatusRevisionRequested),
				creatorOnly: true,
				stateDenied: appErrors.Clone(appErrors.ErrInvalidTransition, "MAS is not open for revision"),
			},
		},
	}
}

// CheckTransition returns nil when actor may perform t on mas, a FORBIDDEN
// error when the actor lacks the permission, and the rule's state error when
// the row is in the wrong state.
func (p *AuthorizationPolicy) CheckTransition(ctx context.Context, actor *models.JWTClaims, mas *models.MAS, t Transition) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	roles, err := p.rolesFor(ctx, actor, mas)
	if err != nil {
		return err
	}
	return p.check(actor, mas, t, roles)
}

// CanTransition reports whether CheckTransition passes.
func (p *AuthorizationPolicy) CanTransition(ctx context.Context, actor *models.JWTClaims, mas *models.MAS, t Transition) bool {
	return p.CheckTransition(ctx, actor, mas, t) == nil
}

// AllowedTransitions lists every transition actor may perform on mas now.
func (p *AuthorizationPolicy) AllowedTransitions(ctx context.Context, actor *models.JWTClaims, mas *models.MAS) ([]Transition, error) {
	if actor == nil {
		return []Transition{}, nil
	}
	roles, err := p.rolesFor(ctx, actor, mas)
	if err != nil {
		return nil, err
	}
	allowed := make([]Transition, 0, len(transitionOrder))
	for _, t := range transitionOrder {
		if p.check(actor, mas, t, roles) == nil {
			allowed = append(allowed, t)
		}
	}
	return allowed, nil
}

func (p *AuthorizationPolicy) check(actor *models.JWTClaims, mas *models.MAS, t Transition, roles mapset.Set[models.BuildingRole]) error {
	rule, ok := p.rules[t]
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "unknown transition")
	}
	if rule.creatorOnly && actor.UserID != mas.CreatorID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator may "+string(t)+" this MAS")
	}
	if rule.role != "" && !roles.Contains(rule.role) {
		return appErrors.Clone(appErrors.ErrForbidden, "requires "+string(rule.role)+" role on this building")
	}
	if !mas.IsLatest || !rule.from.Contains(mas.Status) {
		return appErrors.Clone(rule.stateDenied, "")
	}
	return nil
}

func (p *AuthorizationPolicy) rolesFor(ctx context.Context, actor *models.JWTClaims, mas *models.MAS) (mapset.Set[models.BuildingRole], error) {
	roles := mapset.NewThreadUnsafeSet[models.BuildingRole]()
	if actor.UserType == models.UserTypeVendor || p.roles == nil {
		return roles, nil
	}
	granted, err := p.roles.BuildingRoles(ctx, actor.UserID, mas.BuildingID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load building roles")
	}
	for _, role := range granted {
		roles.Add(role)
	}
	return roles, nil
}
