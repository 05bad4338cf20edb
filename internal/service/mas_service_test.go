package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mas-api/internal/dto"
	"github.com/noah-isme/mas-api/internal/models"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
)

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, field, appErr.Field)
}

func TestMASServiceCreateStartsChain(t *testing.T) {
	h := newMASHarness(t)

	mas, err := h.svc.Create(context.Background(), vendorActor, chillerRequest(), pdfUpload(2048))
	require.NoError(t, err)

	assert.Equal(t, "P-100-Tower A-MAS-HVAC-1", mas.MASID)
	assert.Equal(t, 1, mas.SerialNumber)
	assert.Equal(t, "R0", mas.Revision)
	assert.Equal(t, models.MASStatusPendingReview, mas.Status)
	assert.True(t, mas.IsLatest)
	assert.Nil(t, mas.ParentMASID)
	assert.Equal(t, "Daikin", mas.Make)
	assert.Equal(t, "mas_files/project_project-1/P-100-Tower_A-MAS-HVAC-1-R0.pdf", mas.Attachment)
	assert.True(t, h.blobs.Exists(mas.Attachment))

	require.Len(t, h.world.logs, 1)
	entry := h.world.logs[0]
	assert.Equal(t, models.ActivityCreated, entry.Action)
	assert.Equal(t, "vendor1", entry.Username)
	assert.Equal(t, "Harbour View", entry.ProjectName)
	assert.Equal(t, "Tower A", entry.BuildingName)
	assert.Equal(t, "HVAC", entry.ServiceName)
	assert.Equal(t, "Chiller", entry.ItemName)
	assert.Equal(t, "Daikin", entry.Make)
	assert.Equal(t, string(models.MASStatusPendingReview), entry.Status)

	req := chillerRequest()
	req.ItemID, req.MakeID = "item-ahu", "make-trane"
	second, err := h.svc.Create(context.Background(), vendorActor, req, pdfUpload(64))
	require.NoError(t, err)
	assert.Equal(t, 2, second.SerialNumber)
}

func TestMASServiceCreateOtherServiceAndMake(t *testing.T) {
	h := newMASHarness(t)

	req := dto.CreateMASRequest{
		ProjectID:  "project-1",
		BuildingID: "building-a",
		ServiceID:  "service-other",
		ItemID:     "item-lift",
		MakeID:     models.MakeOther,
		OtherMake:  "  Schindler ",
	}
	mas, err := h.svc.Create(context.Background(), vendor2Actor, req, jpegUpload(4096))
	require.NoError(t, err)
	assert.Equal(t, "P-100-Tower A-MAS-Lifts-1", mas.MASID)
	assert.Equal(t, "Schindler", mas.Make)
	require.NotNil(t, mas.OtherMake)
	assert.Equal(t, "Schindler", *mas.OtherMake)
	assert.Equal(t, "mas_files/project_project-1/P-100-Tower_A-MAS-Lifts-1-R0.jpg", mas.Attachment)
}

func TestMASServiceCreateRejectsDuplicateItem(t *testing.T) {
	h := newMASHarness(t)
	h.create(t)

	req := chillerRequest()
	req.MakeID = "make-carrier"
	_, err := h.svc.Create(context.Background(), vendorActor, req, pdfUpload(64))
	requireFieldError(t, err, "item_id")
	assert.Len(t, h.world.rows, 1)
	assert.Len(t, h.world.logs, 1)
}

func TestMASServiceCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		actor  *models.JWTClaims
		mutate func(*dto.CreateMASRequest)
		field  string
	}{
		{"missing make", vendorActor, func(r *dto.CreateMASRequest) { r.MakeID = "" }, "make_id"},
		{"unassigned vendor", &models.JWTClaims{UserID: "vendor-3", Username: "v3", UserType: models.UserTypeVendor}, func(*dto.CreateMASRequest) {}, "project_id"},
		{"building outside assignment", vendor2Actor, func(r *dto.CreateMASRequest) { r.BuildingID = "building-b" }, "building_id"},
		{"service outside assignment", vendorActor, func(r *dto.CreateMASRequest) {
			r.ServiceID, r.ItemID, r.MakeID = "service-other", "item-lift", "make-kone"
		}, "service_id"},
		{"building of another project", vendorActor, func(r *dto.CreateMASRequest) { r.BuildingID = "building-x" }, "building_id"},
		{"item of another service", vendorActor, func(r *dto.CreateMASRequest) { r.ItemID = "item-lift" }, "item_id"},
		{"make of another item", vendorActor, func(r *dto.CreateMASRequest) { r.MakeID = "make-trane" }, "make_id"},
		{"other make without text", vendorActor, func(r *dto.CreateMASRequest) { r.MakeID, r.OtherMake = models.MakeOther, "  " }, "other_make"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newMASHarness(t)
			req := chillerRequest()
			tc.mutate(&req)
			_, err := h.svc.Create(context.Background(), tc.actor, req, pdfUpload(64))
			requireFieldError(t, err, tc.field)
			assert.Empty(t, h.world.rows)
		})
	}
}

func TestMASServiceCreateMissingCatalogEntity(t *testing.T) {
	h := newMASHarness(t)
	req := chillerRequest()
	req.ProjectID = "project-404"

	_, err := h.svc.Create(context.Background(), vendorActor, req, pdfUpload(64))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMASServiceCreateAttachmentRules(t *testing.T) {
	cases := []struct {
		name   string
		upload *dto.AttachmentUpload
		ok     bool
	}{
		{"6MB pdf rejected", pdfUpload(6 * 1024 * 1024), false},
		{"text rejected", &dto.AttachmentUpload{Filename: "notes.txt", Size: 11, Content: bytes.NewReader([]byte("hello world"))}, false},
		{"undeclared oversize rejected while streaming", &dto.AttachmentUpload{Filename: "big.pdf", Content: pdfUpload(6 * 1024 * 1024).Content}, false},
		{"missing attachment rejected", nil, false},
		{"4MB jpeg accepted", jpegUpload(4 * 1024 * 1024), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newMASHarness(t)
			mas, err := h.svc.Create(context.Background(), vendorActor, chillerRequest(), tc.upload)
			if tc.ok {
				require.NoError(t, err)
				assert.True(t, h.blobs.Exists(mas.Attachment))
				return
			}
			requireFieldError(t, err, "attachment")
			assert.Empty(t, h.world.rows)
			assert.Empty(t, h.world.logs)
			assert.False(t, h.blobs.Exists("mas_files/project_project-1/P-100-Tower_A-MAS-HVAC-1-R0.pdf"))
		})
	}
}

func TestMASServiceCreateRollsBackOnLedgerFailure(t *testing.T) {
	h := newMASHarness(t)
	h.activity.appendErr = errors.New("connection reset")

	_, err := h.svc.Create(context.Background(), vendorActor, chillerRequest(), pdfUpload(64))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, h.world.rows)
	assert.Equal(t, 1, h.tx.rollbacks)
	assert.False(t, h.blobs.Exists("mas_files/project_project-1/P-100-Tower_A-MAS-HVAC-1-R0.pdf"))
}

func TestMASServiceRoundTripToApproved(t *testing.T) {
	h := newMASHarness(t)
	ctx := context.Background()
	mas := h.create(t)

	reviewed, err := h.svc.Review(ctx, reviewerActor, mas.ID, dto.ReviewMASRequest{Action: dto.ReviewActionApprove})
	require.NoError(t, err)
	assert.Equal(t, models.MASStatusPendingApproval, reviewed.Status)
	require.NotNil(t, reviewed.ReviewerID)
	assert.Equal(t, "reviewer-1", *reviewed.ReviewerID)
	assert.NotNil(t, reviewed.ReviewDate)

	approved, err := h.svc.Approve(ctx, approverActor, mas.ID, dto.ApprovalMASRequest{Action: dto.ReviewActionApprove, Comment: "ok"})
	require.NoError(t, err)
	assert.Equal(t, models.MASStatusApproved, approved.Status)
	assert.Equal(t, "ok", approved.ApprovalComment)
	assert.Equal(t, models.MASStatusApproved, h.world.rows[mas.ID].Status)

	history, err := h.svc.History(ctx, adminActor, mas.ID)
	require.NoError(t, err)
	require.Len(t, history.Activity, 3)
	assert.Equal(t, models.ActivityCreated, history.Activity[0].Action)
	assert.Equal(t, models.ActivitySubmittedApproval, history.Activity[1].Action)
	assert.Equal(t, models.ActivityApproved, history.Activity[2].Action)
	assert.Equal(t, "rev1", history.Activity[1].Username)
	assert.Equal(t, "app1", history.Activity[2].Username)
}

func TestMASServiceReviewRequiresBuildingRole(t *testing.T) {
	h := newMASHarness(t)
	mas := h.create(t)

	for _, actor := range []*models.JWTClaims{outsiderActor, approverActor, adminActor} {
		_, err := h.svc.Review(context.Background(), actor, mas.ID, dto.ReviewMASRequest{Action: dto.ReviewActionApprove})
		require.Error(t, err, actor.Username)
		assert.True(t, errors.Is(err, appErrors.ErrForbidden), actor.Username)
	}
	assert.Equal(t, models.MASStatusPendingReview, h.world.rows[mas.ID].Status)
	assert.Len(t, h.world.logs, 1)
}

func TestMASServiceReviewCommentRules(t *testing.T) {
	h := newMASHarness(t)
	mas := h.create(t)

	_, err := h.svc.Review(context.Background(), reviewerActor, mas.ID, dto.ReviewMASRequest{Action: dto.ReviewActionReject, Comment: "  "})
	requireFieldError(t, err, "comment")

	_, err = h.svc.Review(context.Background(), reviewerActor, mas.ID, dto.ReviewMASRequest{Action: "escalate"})
	requireFieldError(t, err, "action")

	updated, err := h.svc.Review(context.Background(), reviewerActor, mas.ID, dto.ReviewMASRequest{Action: dto.ReviewActionComment, Comment: "add fan curves"})
	require.NoError(t, err)
	assert.Equal(t, models.MASStatusRevisionRequested, updated.Status)
	assert.Equal(t, "add fan curves", updated.ReviewComment)
	assert.Equal(t, models.ActivityRevisionRequested, h.world.logs[len(h.world.logs)-1].Action)
}

func TestMASServiceApproveOnlyFromPendingApproval(t *testing.T) {
	h := newMASHarness(t)
	mas := h.create(t)

	_, err := h.svc.Approve(context.Background(), approverActor, mas.ID, dto.ApprovalMASRequest{Action: dto.ReviewActionApprove})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	assert.Equal(t, models.MASStatusPendingReview, h.world.rows[mas.ID].Status)

	_, err = h.svc.Review(context.Background(), reviewerActor, mas.ID, dto.ReviewMASRequest{Action: dto.ReviewActionApprove})
	require.NoError(t, err)

	_, err = h.svc.Approve(context.Background(), approverActor, mas.ID, dto.ApprovalMASRequest{Action: dto.ReviewActionReject})
	requireFieldError(t, err, "comment")

	rejected, err := h.svc.Approve(context.Background(), approverActor, mas.ID, dto.ApprovalMASRequest{Action: dto.ReviewActionReject, Comment: "non-compliant"})
	require.NoError(t, err)
	assert.Equal(t, models.MASStatusRejected, rejected.Status)

	_, err = h.svc.Approve(context.Background(), approverActor, mas.ID, dto.ApprovalMASRequest{Action: dto.ReviewActionApprove})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestMASServiceReviseCreatesNextRevision(t *testing.T) {
	h := newMASHarness(t)
	root := h.create(t)
	h.rejectViaReview(t, root.ID)

	result, err := h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-carrier"}, pdfUpload(128))
	require.NoError(t, err)
	rev := result.MAS

	assert.Empty(t, result.RedirectedFrom)
	assert.Equal(t, "R1", rev.Revision)
	assert.Equal(t, root.MASID, rev.MASID)
	assert.Equal(t, root.SerialNumber, rev.SerialNumber)
	require.NotNil(t, rev.ParentMASID)
	assert.Equal(t, root.ID, *rev.ParentMASID)
	assert.Equal(t, models.MASStatusPendingReview, rev.Status)
	assert.Equal(t, "Carrier", rev.Make)
	assert.Equal(t, "mas_files/project_project-1/P-100-Tower_A-MAS-HVAC-1-R1.pdf", rev.Attachment)
	assert.True(t, rev.IsLatest)
	assert.False(t, h.world.rows[root.ID].IsLatest)
	assert.Equal(t, 1, h.world.latestCount(root.MASID))

	last := h.world.logs[len(h.world.logs)-1]
	assert.Equal(t, models.ActivityRevisionSubmitted, last.Action)
	assert.Equal(t, rev.ID, last.MASRowID)

	// R1 rejected again: R2 still points at the root.
	h.rejectViaReview(t, rev.ID)
	again, err := h.svc.Revise(context.Background(), vendorActor, rev.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(128))
	require.NoError(t, err)
	assert.Equal(t, "R2", again.MAS.Revision)
	assert.Equal(t, root.ID, *again.MAS.ParentMASID)
	assert.Equal(t, 1, h.world.latestCount(root.MASID))
}

func TestMASServiceReviseStaleRowRedirectsToLatest(t *testing.T) {
	h := newMASHarness(t)
	root := h.create(t)
	h.rejectViaReview(t, root.ID)
	first, err := h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(64))
	require.NoError(t, err)
	h.rejectViaReview(t, first.MAS.ID)

	result, err := h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(64))
	require.NoError(t, err)
	assert.Equal(t, root.ID, result.RedirectedFrom)
	assert.Equal(t, "R2", result.MAS.Revision)
	assert.False(t, h.world.rows[first.MAS.ID].IsLatest)
}

func TestMASServiceReviseStaleRowWithoutRevisableLatest(t *testing.T) {
	h := newMASHarness(t)
	root := h.create(t)
	h.rejectViaReview(t, root.ID)
	_, err := h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(64))
	require.NoError(t, err)

	_, err = h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(64))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConsistency))
	assert.Equal(t, 1, h.world.latestCount(root.MASID))
	assert.Len(t, h.world.chain(root.MASID), 2)
}

func TestMASServiceRevisePermissionAndState(t *testing.T) {
	h := newMASHarness(t)
	root := h.create(t)

	_, err := h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(64))
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	h.rejectViaReview(t, root.ID)

	_, err = h.svc.Revise(context.Background(), vendor2Actor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(64))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, nil)
	requireFieldError(t, err, "attachment")

	_, err = h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{ItemID: "item-lift", MakeID: "make-kone"}, pdfUpload(64))
	requireFieldError(t, err, "item_id")

	assert.True(t, h.world.rows[root.ID].IsLatest)
	assert.Len(t, h.world.rows, 1)

	first, err := h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(64))
	require.NoError(t, err)
	h.rejectViaReview(t, first.MAS.ID)

	_, err = h.svc.Revise(context.Background(), vendor2Actor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(64))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.False(t, errors.Is(err, appErrors.ErrConsistency))
	assert.True(t, h.world.rows[first.MAS.ID].IsLatest)
	assert.Len(t, h.world.chain(root.MASID), 2)
}

func TestMASServiceLocksProjectBeforeDuplicateCheck(t *testing.T) {
	h := newMASHarness(t)
	root := h.create(t)
	h.store.locked = nil

	_, err := h.svc.Edit(context.Background(), vendorActor, root.ID, dto.EditMASRequest{ItemID: "item-ahu", MakeID: "make-trane"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"project-1"}, h.store.locked)

	h.rejectViaReview(t, root.ID)
	h.store.locked = nil
	_, err = h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-trane"}, pdfUpload(64))
	require.NoError(t, err)
	assert.Equal(t, []string{"project-1"}, h.store.locked)
}

func TestMASServiceEditByCreatorWhilePending(t *testing.T) {
	h := newMASHarness(t)
	mas := h.create(t)
	original := mas.Attachment

	edited, err := h.svc.Edit(context.Background(), vendorActor, mas.ID, dto.EditMASRequest{MakeID: models.MakeOther, OtherMake: "York"}, jpegUpload(512))
	require.NoError(t, err)
	assert.Equal(t, "York", edited.Make)
	assert.NotEqual(t, original, edited.Attachment)
	assert.True(t, h.blobs.Exists(edited.Attachment))
	assert.False(t, h.blobs.Exists(original))
	assert.Equal(t, "York", h.world.rows[mas.ID].Make)
	assert.Equal(t, "R0", h.world.rows[mas.ID].Revision)
	assert.Equal(t, models.ActivityEdited, h.world.logs[len(h.world.logs)-1].Action)

	changed, err := h.svc.Edit(context.Background(), vendorActor, mas.ID, dto.EditMASRequest{ItemID: "item-ahu", MakeID: "make-trane"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "item-ahu", changed.ItemID)
	assert.Equal(t, "AHU", changed.ItemName)
	assert.Equal(t, "Trane", changed.Make)
}

func TestMASServiceEditDenied(t *testing.T) {
	h := newMASHarness(t)
	mas := h.create(t)

	_, err := h.svc.Edit(context.Background(), vendor2Actor, mas.ID, dto.EditMASRequest{MakeID: "make-carrier"}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = h.svc.Edit(context.Background(), vendorActor, mas.ID, dto.EditMASRequest{ItemID: "item-ahu"}, nil)
	requireFieldError(t, err, "make_id")

	logged := len(h.world.logs)
	_, err = h.svc.Edit(context.Background(), vendorActor, mas.ID, dto.EditMASRequest{OtherMake: "York"}, nil)
	requireFieldError(t, err, "make_id")
	assert.Len(t, h.world.logs, logged)

	_, err = h.svc.Review(context.Background(), reviewerActor, mas.ID, dto.ReviewMASRequest{Action: dto.ReviewActionApprove})
	require.NoError(t, err)

	_, err = h.svc.Edit(context.Background(), vendorActor, mas.ID, dto.EditMASRequest{MakeID: "make-carrier"}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, "Daikin", h.world.rows[mas.ID].Make)

	_, err = h.svc.Edit(context.Background(), vendorActor, "missing", dto.EditMASRequest{}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMASServiceGetAllowedActions(t *testing.T) {
	h := newMASHarness(t)
	mas := h.create(t)

	detail, err := h.svc.Get(context.Background(), vendorActor, mas.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"edit"}, detail.AllowedActions)

	detail, err = h.svc.Get(context.Background(), reviewerActor, mas.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"review"}, detail.AllowedActions)

	detail, err = h.svc.Get(context.Background(), adminActor, mas.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.AllowedActions)

	_, err = h.svc.Get(context.Background(), vendor2Actor, mas.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = h.svc.Get(context.Background(), outsiderActor, mas.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestMASServiceListVisibility(t *testing.T) {
	h := newMASHarness(t)
	ctx := context.Background()
	first := h.create(t)

	req := chillerRequest()
	req.ItemID, req.MakeID = "item-ahu", "make-trane"
	second, err := h.svc.Create(ctx, vendorActor, req, pdfUpload(64))
	require.NoError(t, err)
	_, err = h.svc.Review(ctx, reviewerActor, second.ID, dto.ReviewMASRequest{Action: dto.ReviewActionApprove})
	require.NoError(t, err)

	rows, err := h.svc.List(ctx, reviewerActor, dto.MASListQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.True(t, h.store.lastFilter.Scoped)
	assert.Equal(t, []string{"building-a"}, h.store.lastFilter.ReviewerBuildings)

	rows, err = h.svc.List(ctx, approverActor, dto.MASListQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)

	rows, err = h.svc.List(ctx, vendorActor, dto.MASListQuery{Status: models.MASStatusGroupAll})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "vendor-1", h.store.lastFilter.CreatorID)

	rows, err = h.svc.List(ctx, vendor2Actor, dto.MASListQuery{Status: models.MASStatusGroupAll})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = h.svc.List(ctx, outsiderActor, dto.MASListQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = h.svc.List(ctx, adminActor, dto.MASListQuery{Status: models.MASStatusGroupApproved})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = h.svc.List(ctx, adminActor, dto.MASListQuery{Status: "archived"})
	requireFieldError(t, err, "status")
}

func TestMASServiceHistoryIncludesAllRevisions(t *testing.T) {
	h := newMASHarness(t)
	root := h.create(t)
	h.rejectViaReview(t, root.ID)
	result, err := h.svc.Revise(context.Background(), vendorActor, root.ID, dto.ReviseMASRequest{MakeID: "make-daikin"}, pdfUpload(64))
	require.NoError(t, err)

	history, err := h.svc.History(context.Background(), vendorActor, result.MAS.ID)
	require.NoError(t, err)
	assert.Equal(t, root.MASID, history.MASID)
	require.Len(t, history.Revisions, 2)
	assert.Equal(t, "R0", history.Revisions[0].Revision)
	assert.Equal(t, "R1", history.Revisions[1].Revision)
	require.Len(t, history.Activity, 3)
	assert.Equal(t, "R0", history.Activity[1].Revision)
	assert.Equal(t, "R1", history.Activity[2].Revision)
}

func TestMASServiceAttachmentLink(t *testing.T) {
	h := newMASHarness(t)
	mas := h.create(t)

	link, err := h.svc.AttachmentLink(context.Background(), reviewerActor, mas.ID)
	require.NoError(t, err)
	assert.Contains(t, link.URL, "/api/v1/attachments/")

	_, err = h.svc.AttachmentLink(context.Background(), vendor2Actor, mas.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
