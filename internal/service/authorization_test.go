package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mas-api/internal/models"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
)

type stubRoleReader struct {
	roles map[string][]models.BuildingRole
	err   error
	calls int
}

func (s *stubRoleReader) BuildingRoles(ctx context.Context, userID, buildingID string) ([]models.BuildingRole, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.roles[userID+"|"+buildingID], nil
}

func policyRow(status models.MASStatus) *models.MAS {
	return &models.MAS{ID: "row-1", BuildingID: "building-a", CreatorID: "vendor-1", Status: status, IsLatest: true}
}

func TestAuthorizationPolicyCheckTransition(t *testing.T) {
	roles := &stubRoleReader{roles: map[string][]models.BuildingRole{
		"reviewer-1|building-a": {models.BuildingRoleReviewer},
		"approver-1|building-a": {models.BuildingRoleApprover},
		"both-1|building-a":     {models.BuildingRoleReviewer, models.BuildingRoleApprover},
	}}
	policy := NewAuthorizationPolicy(roles)
	both := &models.JWTClaims{UserID: "both-1", UserType: models.UserTypeTeam}

	cases := []struct {
		name       string
		actor      *models.JWTClaims
		status     models.MASStatus
		transition Transition
		want       *appErrors.Error
	}{
		{"creator edits pending", vendorActor, models.MASStatusPendingReview, TransitionEdit, nil},
		{"creator edits reviewed", vendorActor, models.MASStatusPendingApproval, TransitionEdit, appErrors.ErrForbidden},
		{"other vendor edits", vendor2Actor, models.MASStatusPendingReview, TransitionEdit, appErrors.ErrForbidden},
		{"reviewer reviews", reviewerActor, models.MASStatusPendingReview, TransitionReview, nil},
		{"reviewer reviews twice", reviewerActor, models.MASStatusPendingApproval, TransitionReview, appErrors.ErrInvalidTransition},
		{"approver reviews", approverActor, models.MASStatusPendingReview, TransitionReview, appErrors.ErrForbidden},
		{"admin reviews", adminActor, models.MASStatusPendingReview, TransitionReview, appErrors.ErrForbidden},
		{"approver approves", approverActor, models.MASStatusPendingApproval, TransitionApprove, nil},
		{"approver approves early", approverActor, models.MASStatusPendingReview, TransitionApprove, appErrors.ErrInvalidTransition},
		{"dual role approves", both, models.MASStatusPendingApproval, TransitionApprove, nil},
		{"creator revises rejected", vendorActor, models.MASStatusRejected, TransitionRevise, nil},
		{"creator revises on request", vendorActor, models.MASStatusRevisionRequested, TransitionRevise, nil},
		{"creator revises approved", vendorActor, models.MASStatusApproved, TransitionRevise, appErrors.ErrInvalidTransition},
		{"reviewer revises", reviewerActor, models.MASStatusRejected, TransitionRevise, appErrors.ErrForbidden},
		{"unknown transition", vendorActor, models.MASStatusPendingReview, Transition("archive"), appErrors.ErrInvalidTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.CheckTransition(context.Background(), tc.actor, policyRow(tc.status), tc.transition)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestAuthorizationPolicyStaleRowIsNeverActionable(t *testing.T) {
	policy := NewAuthorizationPolicy(&stubRoleReader{roles: map[string][]models.BuildingRole{
		"reviewer-1|building-a": {models.BuildingRoleReviewer},
	}})
	row := policyRow(models.MASStatusRejected)
	row.IsLatest = false

	err := policy.CheckTransition(context.Background(), vendorActor, row, TransitionRevise)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	row.Status = models.MASStatusPendingReview
	assert.False(t, policy.CanTransition(context.Background(), reviewerActor, row, TransitionReview))
}

func TestAuthorizationPolicyAllowedTransitions(t *testing.T) {
	roles := &stubRoleReader{roles: map[string][]models.BuildingRole{
		"reviewer-1|building-a": {models.BuildingRoleReviewer},
	}}
	policy := NewAuthorizationPolicy(roles)

	allowed, err := policy.AllowedTransitions(context.Background(), vendorActor, policyRow(models.MASStatusRevisionRequested))
	require.NoError(t, err)
	assert.Equal(t, []Transition{TransitionRevise}, allowed)
	assert.Zero(t, roles.calls)

	allowed, err = policy.AllowedTransitions(context.Background(), reviewerActor, policyRow(models.MASStatusApproved))
	require.NoError(t, err)
	assert.Empty(t, allowed)

	allowed, err = policy.AllowedTransitions(context.Background(), nil, policyRow(models.MASStatusPendingReview))
	require.NoError(t, err)
	assert.Empty(t, allowed)
}

func TestAuthorizationPolicyRoleLookupFailure(t *testing.T) {
	policy := NewAuthorizationPolicy(&stubRoleReader{err: errors.New("db down")})

	err := policy.CheckTransition(context.Background(), reviewerActor, policyRow(models.MASStatusPendingReview), TransitionReview)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	err = policy.CheckTransition(context.Background(), nil, policyRow(models.MASStatusPendingReview), TransitionReview)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
