package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/mas-api/internal/dto"
	"github.com/noah-isme/mas-api/internal/models"
	"github.com/noah-isme/mas-api/internal/repository"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
	applog "github.com/noah-isme/mas-api/pkg/logger"
)

type masStore interface {
	GetByID(ctx context.Context, id string) (*models.MAS, error)
	GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.MAS, error)
	GetLatestForUpdate(ctx context.Context, exec sqlx.ExtContext, masID string) (*models.MAS, error)
	ListChain(ctx context.Context, masID string) ([]models.MAS, error)
	List(ctx context.Context, filter models.MASFilter) ([]models.MAS, error)
	LockProject(ctx context.Context, exec sqlx.ExtContext, projectID string) error
	NextSerialNumber(ctx context.Context, exec sqlx.ExtContext, projectID string) (int, error)
	HasLatestForItem(ctx context.Context, exec sqlx.ExtContext, creatorID, projectID, itemID, excludeMASID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, mas *models.MAS) error
	UpdateSubmission(ctx context.Context, exec sqlx.ExtContext, mas *models.MAS) error
	ApplyReview(ctx context.Context, exec sqlx.ExtContext, params repository.DecisionParams) error
	ApplyApproval(ctx context.Context, exec sqlx.ExtContext, params repository.DecisionParams) error
	MarkNotLatest(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type masCatalog interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetBuilding(ctx context.Context, id string) (*models.Building, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
	GetItem(ctx context.Context, id string) (*models.Item, error)
	GetMake(ctx context.Context, id string) (*models.ItemMake, error)
}

type masAssignments interface {
	VendorAssignment(ctx context.Context, userID, projectID string) (*models.VendorAssignment, error)
	BuildingRoles(ctx context.Context, userID, buildingID string) ([]models.BuildingRole, error)
	RoleGrants(ctx context.Context, userID string) ([]models.BuildingRoleGrant, error)
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error
}

type masLedger interface {
	Record(ctx context.Context, exec sqlx.ExtContext, mas *models.MAS, action models.ActivityAction, actor *models.JWTClaims, details string) error
	ListChain(ctx context.Context, masID string) ([]models.ActivityLog, error)
}

type masAttachments interface {
	Store(ctx context.Context, upload *dto.AttachmentUpload, base string) (string, error)
	Remove(ctx context.Context, ref string)
	Link(subject, ref string) (*dto.AttachmentLink, error)
}

// MASService runs the MAS lifecycle: create, edit, review, approval and
// revision, each as a single transaction with its ledger entry.
type MASService struct {
	repo        masStore
	catalog     masCatalog
	assignments masAssignments
	tx          txRunner
	policy      *AuthorizationPolicy
	ledger      masLedger
	attachments masAttachments
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	historyTTL  time.Duration
	now         func() time.Time
}

// MASServiceOption configures the service.
type MASServiceOption func(*MASService)

// WithMASCache enables history caching and cache invalidation on writes.
func WithMASCache(cache *CacheService, historyTTL time.Duration) MASServiceOption {
	return func(s *MASService) {
		s.cache = cache
		if historyTTL > 0 {
			s.historyTTL = historyTTL
		}
	}
}

// WithMASMetrics records transition outcomes.
func WithMASMetrics(metrics *MetricsService) MASServiceOption {
	return func(s *MASService) {
		s.metrics = metrics
	}
}

// WithMASClock overrides the decision timestamp source.
func WithMASClock(now func() time.Time) MASServiceOption {
	return func(s *MASService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMASService constructs the lifecycle service.
func NewMASService(
	repo masStore,
	catalog masCatalog,
	assignments masAssignments,
	tx txRunner,
	ledger masLedger,
	attachments masAttachments,
	logger *zap.Logger,
	opts ...MASServiceOption,
) *MASService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &MASService{
		repo:        repo,
		catalog:     catalog,
		assignments: assignments,
		tx:          tx,
		policy:      NewAuthorizationPolicy(assignments),
		ledger:      ledger,
		attachments: attachments,
		validator:   newRequestValidator(),
		logger:      logger,
		historyTTL:  5 * time.Minute,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Policy exposes the transition policy used by the service.
func (s *MASService) Policy() *AuthorizationPolicy {
	return s.policy
}

// Create submits a new chain root (R0) for the vendor.
func (s *MASService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateMASRequest, upload *dto.AttachmentUpload) (result *models.MAS, err error) {
	defer func() { s.observe("create", err) }()
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid MAS payload")
	}

	project, err := s.catalog.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, lookupFailure(err, "project")
	}
	building, err := s.catalog.GetBuilding(ctx, req.BuildingID)
	if err != nil {
		return nil, lookupFailure(err, "building")
	}
	if building.ProjectID != project.ID {
		return nil, appErrors.FieldError("building_id", "building does not belong to the project")
	}
	svc, err := s.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, lookupFailure(err, "service")
	}
	item, err := s.catalog.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, lookupFailure(err, "item")
	}
	if item.ServiceID != svc.ID {
		return nil, appErrors.FieldError("item_id", "item does not belong to the service")
	}
	makeName, otherMake, err := s.resolveMake(ctx, item.ID, req.MakeID, req.OtherMake)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignments.VendorAssignment(ctx, actor.UserID, project.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.FieldError("project_id", "you are not assigned to this project")
		}
		return nil, appErrors.Internal(err, "failed to load vendor assignment")
	}
	if !assignment.AllowsBuilding(building.ID) {
		return nil, appErrors.FieldError("building_id", "building is outside your assignment")
	}
	if !assignment.AllowsService(svc.ID) {
		return nil, appErrors.FieldError("service_id", "service is outside your assignment")
	}
	if upload == nil {
		return nil, appErrors.FieldError("attachment", "attachment is required")
	}

	mas := &models.MAS{
		Revision:        models.InitialRevision,
		ProjectID:       project.ID,
		BuildingID:      building.ID,
		ServiceID:       svc.ID,
		ItemID:          item.ID,
		Make:            makeName,
		OtherMake:       otherMake,
		Status:          models.MASStatusPendingReview,
		CreatorID:       actor.UserID,
		IsLatest:        true,
		ProjectName:     project.Name,
		ProjectNumber:   project.Number,
		BuildingName:    building.Name,
		ServiceName:     svc.DisplayName(),
		ItemName:        item.Name,
		CreatorUsername: actor.Username,
	}

	var stored string
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		serial, err := s.repo.NextSerialNumber(ctx, exec, project.ID)
		if err != nil {
			return appErrors.Internal(err, "failed to allocate serial number")
		}
		if err := s.ensureUniqueItem(ctx, exec, actor.UserID, project.ID, item.ID, ""); err != nil {
			return err
		}
		mas.SerialNumber = serial
		mas.MASID = models.BuildMASID(project.Number, building.Name, mas.ServiceName, serial)

		ref, err := s.attachments.Store(ctx, upload, attachmentBase(project.ID, mas.MASID, mas.Revision, ""))
		if err != nil {
			return err
		}
		stored = ref
		mas.Attachment = ref

		if err := s.repo.Create(ctx, exec, mas); err != nil {
			return appErrors.Internal(err, "failed to create MAS")
		}
		return s.ledger.Record(ctx, exec, mas, models.ActivityCreated, actor, "MAS created")
	})
	if err != nil {
		s.attachments.Remove(ctx, stored)
		return nil, err
	}

	s.invalidate(ctx, mas)
	applog.For(ctx, s.logger).Info("mas created", zap.String("mas_id", mas.MASID), zap.String("id", mas.ID), zap.String("creator", actor.Username))
	return mas, nil
}

// Edit changes a pending submission in place. Only the creator may edit and
// only while the row is the latest pending_review revision.
func (s *MASService) Edit(ctx context.Context, actor *models.JWTClaims, id string, req dto.EditMASRequest, upload *dto.AttachmentUpload) (result *models.MAS, err error) {
	defer func() { s.observe("edit", err) }()
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid MAS payload")
	}

	var stored, replaced string
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		current, err := s.lockRow(ctx, exec, id)
		if err != nil {
			return err
		}
		if err := s.policy.CheckTransition(ctx, actor, current, TransitionEdit); err != nil {
			return err
		}

		if req.ItemID != "" && req.ItemID != current.ItemID {
			item, err := s.catalog.GetItem(ctx, req.ItemID)
			if err != nil {
				return lookupFailure(err, "item")
			}
			if item.ServiceID != current.ServiceID {
				return appErrors.FieldError("item_id", "item must belong to the MAS service")
			}
			if req.MakeID == "" {
				return appErrors.FieldError("make_id", "make is required when the item changes")
			}
			if err := s.ensureUniqueItem(ctx, exec, current.CreatorID, current.ProjectID, item.ID, current.MASID); err != nil {
				return err
			}
			current.ItemID = item.ID
			current.ItemName = item.Name
		}

		switch {
		case req.MakeID != "":
			name, other, err := s.resolveMake(ctx, current.ItemID, req.MakeID, req.OtherMake)
			if err != nil {
				return err
			}
			current.Make = name
			current.OtherMake = other
		case strings.TrimSpace(req.OtherMake) != "":
			if current.OtherMake == nil {
				return appErrors.FieldError("make_id", "make_id must be other when other_make is set")
			}
			other := strings.TrimSpace(req.OtherMake)
			current.Make = other
			current.OtherMake = &other
		}

		if upload != nil {
			suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
			ref, err := s.attachments.Store(ctx, upload, attachmentBase(current.ProjectID, current.MASID, current.Revision, suffix))
			if err != nil {
				return err
			}
			stored = ref
			replaced = current.Attachment
			current.Attachment = ref
		}

		if err := s.repo.UpdateSubmission(ctx, exec, current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInvalidTransition, "MAS changed while editing")
			}
			return appErrors.Internal(err, "failed to update MAS")
		}
		if err := s.ledger.Record(ctx, exec, current, models.ActivityEdited, actor, "MAS edited"); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		s.attachments.Remove(ctx, stored)
		return nil, err
	}

	s.attachments.Remove(ctx, replaced)
	s.invalidate(ctx, result)
	return result, nil
}

// Review applies a reviewer decision to a pending_review row.
func (s *MASService) Review(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviewMASRequest) (result *models.MAS, err error) {
	defer func() { s.observe("review", err) }()
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid review payload")
	}
	comment := strings.TrimSpace(req.Comment)

	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		current, err := s.lockRow(ctx, exec, id)
		if err != nil {
			return err
		}
		if err := s.policy.CheckTransition(ctx, actor, current, TransitionReview); err != nil {
			return err
		}
		if req.Action != dto.ReviewActionApprove && comment == "" {
			return appErrors.FieldError("comment", "comment is required to reject or request a revision")
		}

		var (
			to     models.MASStatus
			action models.ActivityAction
			verb   string
		)
		switch req.Action {
		case dto.ReviewActionApprove:
			to, action, verb = models.MASStatusPendingApproval, models.ActivitySubmittedApproval, "Reviewed and sent for approval"
		case dto.ReviewActionReject:
			to, action, verb = models.MASStatusRejected, models.ActivityRejected, "Rejected by reviewer"
		default:
			to, action, verb = models.MASStatusRevisionRequested, models.ActivityRevisionRequested, "Revision requested by reviewer"
		}

		at := s.now().UTC()
		err = s.repo.ApplyReview(ctx, exec, repository.DecisionParams{
			ID: current.ID, From: current.Status, To: to, ActorID: actor.UserID, Comment: comment, At: at,
		})
		if err != nil {
			return decisionFailure(err)
		}
		reviewer := actor.UserID
		current.Status = to
		current.ReviewerID = &reviewer
		current.ReviewComment = comment
		current.ReviewDate = &at
		current.UpdatedAt = at

		if err := s.ledger.Record(ctx, exec, current, action, actor, withComment(verb, comment)); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, result)
	return result, nil
}

// Approve applies an approver decision to a pending_approval row.
func (s *MASService) Approve(ctx context.Context, actor *models.JWTClaims, id string, req dto.ApprovalMASRequest) (result *models.MAS, err error) {
	defer func() { s.observe("approve", err) }()
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid approval payload")
	}
	comment := strings.TrimSpace(req.Comment)

	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		current, err := s.lockRow(ctx, exec, id)
		if err != nil {
			return err
		}
		if err := s.policy.CheckTransition(ctx, actor, current, TransitionApprove); err != nil {
			return err
		}
		if req.Action == dto.ReviewActionReject && comment == "" {
			return appErrors.FieldError("comment", "comment is required to reject")
		}

		to, action, verb := models.MASStatusApproved, models.ActivityApproved, "Approved"
		if req.Action == dto.ReviewActionReject {
			to, action, verb = models.MASStatusRejected, models.ActivityRejected, "Rejected by approver"
		}

		at := s.now().UTC()
		err = s.repo.ApplyApproval(ctx, exec, repository.DecisionParams{
			ID: current.ID, From: current.Status, To: to, ActorID: actor.UserID, Comment: comment, At: at,
		})
		if err != nil {
			return decisionFailure(err)
		}
		approver := actor.UserID
		current.Status = to
		current.ApproverID = &approver
		current.ApprovalComment = comment
		current.ApprovalDate = &at
		current.UpdatedAt = at

		if err := s.ledger.Record(ctx, exec, current, action, actor, withComment(verb, comment)); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, result)
	return result, nil
}

// Revise starts revision R{n+1} of a rejected or revision_requested chain.
// When id is a stale row the current latest revision is revised instead,
// provided it is revisable by the same creator.
func (s *MASService) Revise(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviseMASRequest, upload *dto.AttachmentUpload) (result *dto.RevisionResult, err error) {
	defer func() { s.observe("revise", err) }()
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid revision payload")
	}

	var (
		created    *models.MAS
		redirected string
		stored     string
	)
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		latest, err := s.lockRow(ctx, exec, id)
		if err != nil {
			return err
		}
		if !latest.IsLatest {
			stale := latest
			if stale.CreatorID != actor.UserID {
				return appErrors.Clone(appErrors.ErrForbidden, "only the creator can revise this MAS")
			}
			latest, err = s.repo.GetLatestForUpdate(ctx, exec, stale.MASID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrConsistency, "MAS chain has no latest revision")
				}
				return appErrors.Internal(err, "failed to load latest revision")
			}
			if !latest.IsRevisable() || latest.CreatorID != actor.UserID {
				return appErrors.Clone(appErrors.ErrConsistency, "MAS is not the latest revision")
			}
			redirected = stale.ID
			applog.For(ctx, s.logger).Info("revision redirected to latest row",
				zap.String("mas_id", stale.MASID),
				zap.String("requested", stale.Revision),
				zap.String("latest", latest.Revision),
			)
		}
		if err := s.policy.CheckTransition(ctx, actor, latest, TransitionRevise); err != nil {
			return err
		}
		if upload == nil {
			return appErrors.FieldError("attachment", "a new attachment is required for a revision")
		}

		itemID, itemName := latest.ItemID, latest.ItemName
		if req.ItemID != "" && req.ItemID != latest.ItemID {
			item, err := s.catalog.GetItem(ctx, req.ItemID)
			if err != nil {
				return lookupFailure(err, "item")
			}
			if item.ServiceID != latest.ServiceID {
				return appErrors.FieldError("item_id", "item must belong to the MAS service")
			}
			itemID, itemName = item.ID, item.Name
		}
		makeName, otherMake, err := s.resolveMake(ctx, itemID, req.MakeID, req.OtherMake)
		if err != nil {
			return err
		}
		if err := s.ensureUniqueItem(ctx, exec, actor.UserID, latest.ProjectID, itemID, latest.MASID); err != nil {
			return err
		}

		next, err := models.NextRevision(latest.Revision)
		if err != nil {
			return appErrors.Internal(err, "failed to compute next revision")
		}
		if err := s.repo.MarkNotLatest(ctx, exec, latest.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrConsistency, "MAS is not the latest revision")
			}
			return appErrors.Internal(err, "failed to retire previous revision")
		}

		ref, err := s.attachments.Store(ctx, upload, attachmentBase(latest.ProjectID, latest.MASID, next, ""))
		if err != nil {
			return err
		}
		stored = ref

		root := latest.RootID()
		created = &models.MAS{
			MASID:           latest.MASID,
			SerialNumber:    latest.SerialNumber,
			Revision:        next,
			ProjectID:       latest.ProjectID,
			BuildingID:      latest.BuildingID,
			ServiceID:       latest.ServiceID,
			ItemID:          itemID,
			Make:            makeName,
			OtherMake:       otherMake,
			Attachment:      ref,
			Status:          models.MASStatusPendingReview,
			CreatorID:       actor.UserID,
			ParentMASID:     &root,
			IsLatest:        true,
			ProjectName:     latest.ProjectName,
			ProjectNumber:   latest.ProjectNumber,
			BuildingName:    latest.BuildingName,
			ServiceName:     latest.ServiceName,
			ItemName:        itemName,
			CreatorUsername: actor.Username,
		}
		if err := s.repo.Create(ctx, exec, created); err != nil {
			return appErrors.Internal(err, "failed to create revision")
		}
		return s.ledger.Record(ctx, exec, created, models.ActivityRevisionSubmitted, actor, fmt.Sprintf("Revision %s submitted", next))
	})
	if err != nil {
		s.attachments.Remove(ctx, stored)
		return nil, err
	}

	s.invalidate(ctx, created)
	applog.For(ctx, s.logger).Info("mas revised", zap.String("mas_id", created.MASID), zap.String("revision", created.Revision))
	return &dto.RevisionResult{MAS: created, RedirectedFrom: redirected}, nil
}

func (s *MASService) lockRow(ctx context.Context, exec sqlx.ExtContext, id string) (*models.MAS, error) {
	mas, err := s.repo.GetForUpdate(ctx, exec, id)
	if err != nil {
		return nil, lookupFailure(err, "MAS")
	}
	return mas, nil
}

// resolveMake returns the stored make name: the catalog name, or the free
// text when "other" is chosen.
func (s *MASService) resolveMake(ctx context.Context, itemID, makeID, otherMake string) (string, *string, error) {
	if makeID == models.MakeOther {
		other := strings.TrimSpace(otherMake)
		if other == "" {
			return "", nil, appErrors.FieldError("other_make", "please specify the make")
		}
		return other, &other, nil
	}
	itemMake, err := s.catalog.GetMake(ctx, makeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, appErrors.FieldError("make_id", "make not found")
		}
		return "", nil, appErrors.Internal(err, "failed to load make")
	}
	if itemMake.ItemID != itemID {
		return "", nil, appErrors.FieldError("make_id", "make is not available for the item")
	}
	return itemMake.Name, nil, nil
}

// ensureUniqueItem holds the project lock for the rest of the transaction so
// concurrent create, edit and revise calls cannot both pass the check.
func (s *MASService) ensureUniqueItem(ctx context.Context, exec sqlx.ExtContext, creatorID, projectID, itemID, excludeMASID string) error {
	if err := s.repo.LockProject(ctx, exec, projectID); err != nil {
		return appErrors.Internal(err, "failed to lock project")
	}
	exists, err := s.repo.HasLatestForItem(ctx, exec, creatorID, projectID, itemID, excludeMASID)
	if err != nil {
		return appErrors.Internal(err, "failed to check for duplicate MAS")
	}
	if exists {
		return appErrors.FieldError("item_id", "a MAS for this item already exists in the project")
	}
	return nil
}

func (s *MASService) invalidate(ctx context.Context, mas *models.MAS) {
	_ = s.cache.Delete(ctx, historyCacheKey(mas.MASID))
	_ = s.cache.Invalidate(ctx, itemOptionsCachePattern(mas.CreatorID, mas.ProjectID))
}

func (s *MASService) observe(transition string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		if appErrors.FromError(err).Status < 500 {
			outcome = OutcomeRejected
		}
	}
	s.metrics.RecordTransition(transition, outcome)
}

func decisionFailure(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "MAS status changed concurrently")
	}
	return appErrors.Internal(err, "failed to record decision")
}

func lookupFailure(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Internal(err, "failed to load "+what)
}

func withComment(verb, comment string) string {
	if comment == "" {
		return verb
	}
	return verb + ": " + comment
}

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func validationFailure(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		msg := fmt.Sprintf("failed on %s", fe.Tag())
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "oneof":
			msg = "must be one of " + fe.Param()
		case "max":
			msg = "must be at most " + fe.Param() + " characters"
		}
		return appErrors.FieldError(fe.Field(), msg)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
