package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mas-api/internal/models"
)

const masSelect = `SELECT m.id, m.mas_id, m.serial_number, m.revision, m.project_id, m.building_id, m.service_id, m.item_id,
	m.make, m.other_make, m.attachment, m.status, m.creator_id, m.reviewer_id, m.approver_id,
	m.review_comment, m.review_date, m.approval_comment, m.approval_date, m.parent_mas_id, m.is_latest,
	m.created_at, m.updated_at,
	p.name AS project_name, p.project_number, b.name AS building_name,
	CASE WHEN s.name = 'Other' AND COALESCE(s.other_name, '') <> '' THEN s.other_name ELSE s.name END AS service_name,
	i.name AS item_name, u.username AS creator_username
FROM mas m
JOIN projects p ON p.id = m.project_id
JOIN buildings b ON b.id = m.building_id
JOIN services s ON s.id = m.service_id
JOIN items i ON i.id = m.item_id
JOIN users u ON u.id = m.creator_id`

// MASRepository persists MAS revision rows. Methods taking an exec run on
// the caller's transaction; a nil exec falls back to the pool.
type MASRepository struct {
	db *sqlx.DB
}

// NewMASRepository constructs the repository.
func NewMASRepository(db *sqlx.DB) *MASRepository {
	return &MASRepository{db: db}
}

func (r *MASRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// GetByID fetches one row with its catalog names.
func (r *MASRepository) GetByID(ctx context.Context, id string) (*models.MAS, error) {
	var mas models.MAS
	if err := sqlx.GetContext(ctx, r.db, &mas, masSelect+` WHERE m.id = $1`, id); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &mas, nil
}

// GetForUpdate fetches and row-locks a MAS inside a transaction.
func (r *MASRepository) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.MAS, error) {
	var mas models.MAS
	if err := sqlx.GetContext(ctx, r.exec(exec), &mas, masSelect+` WHERE m.id = $1 FOR UPDATE OF m`, id); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &mas, nil
}

// GetLatestForUpdate locks the current latest row of a chain.
func (r *MASRepository) GetLatestForUpdate(ctx context.Context, exec sqlx.ExtContext, masID string) (*models.MAS, error) {
	var mas models.MAS
	if err := sqlx.GetContext(ctx, r.exec(exec), &mas, masSelect+` WHERE m.mas_id = $1 AND m.is_latest FOR UPDATE OF m`, masID); err != nil {
		return nil, err
	}
	return &mas, nil
}

// ListChain returns every revision of a chain, oldest first.
func (r *MASRepository) ListChain(ctx context.Context, masID string) ([]models.MAS, error) {
	var rows []models.MAS
	query := masSelect + ` WHERE m.mas_id = $1 ORDER BY CAST(SUBSTRING(m.revision FROM 2) AS INTEGER) ASC`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, masID); err != nil {
		return nil, fmt.Errorf("list mas chain: %w", err)
	}
	return rows, nil
}

// List returns rows matching the filter, newest first.
func (r *MASRepository) List(ctx context.Context, filter models.MASFilter) ([]models.MAS, error) {
	if filter.Scoped && len(filter.ReviewerBuildings) == 0 && len(filter.ApproverBuildings) == 0 {
		return []models.MAS{}, nil
	}

	builder := strings.Builder{}
	builder.WriteString(masSelect)
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 4)

	if filter.LatestOnly {
		conditions = append(conditions, "m.is_latest")
	}
	if filter.CreatorID != "" {
		args = append(args, filter.CreatorID)
		conditions = append(conditions, fmt.Sprintf("m.creator_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		conditions = append(conditions, fmt.Sprintf("m.status = ANY($%d)", len(args)))
	}
	if filter.Scoped {
		scopes := make([]string, 0, 3)
		if len(filter.ReviewerBuildings) > 0 {
			args = append(args, pq.Array(filter.ReviewerBuildings))
			scopes = append(scopes, fmt.Sprintf("(m.building_id = ANY($%d) AND m.status = '%s')", len(args), models.MASStatusPendingReview))
		}
		if len(filter.ApproverBuildings) > 0 {
			args = append(args, pq.Array(filter.ApproverBuildings))
			scopes = append(scopes, fmt.Sprintf("(m.building_id = ANY($%d) AND m.status = '%s')", len(args), models.MASStatusPendingApproval))
		}
		args = append(args, pq.Array(append(append([]string{}, filter.ReviewerBuildings...), filter.ApproverBuildings...)))
		scopes = append(scopes, fmt.Sprintf("(m.building_id = ANY($%d) AND m.status IN ('%s', '%s'))", len(args), models.MASStatusApproved, models.MASStatusRejected))
		conditions = append(conditions, "("+strings.Join(scopes, " OR ")+")")
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY m.created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var rows []models.MAS
	if err := sqlx.SelectContext(ctx, r.db, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list mas: %w", err)
	}
	return rows, nil
}

// LockProject takes the project row lock that serializes serial allocation
// and duplicate-item checks within a project.
func (r *MASRepository) LockProject(ctx context.Context, exec sqlx.ExtContext, projectID string) error {
	var locked string
	if err := sqlx.GetContext(ctx, r.exec(exec), &locked, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID); err != nil {
		return fmt.Errorf("lock project: %w", normalizeLookupErr(err))
	}
	return nil
}

// NextSerialNumber locks the project row and returns max(serial)+1.
func (r *MASRepository) NextSerialNumber(ctx context.Context, exec sqlx.ExtContext, projectID string) (int, error) {
	if err := r.LockProject(ctx, exec, projectID); err != nil {
		return 0, err
	}
	var serial int
	if err := sqlx.GetContext(ctx, r.exec(exec), &serial, `SELECT COALESCE(MAX(serial_number), 0) + 1 FROM mas WHERE project_id = $1`, projectID); err != nil {
		return 0, fmt.Errorf("next serial number: %w", err)
	}
	return serial, nil
}

// HasLatestForItem reports whether the vendor already holds a latest row for
// (project, item) outside the chain excludeMASID.
func (r *MASRepository) HasLatestForItem(ctx context.Context, exec sqlx.ExtContext, creatorID, projectID, itemID, excludeMASID string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM mas
	WHERE creator_id = $1 AND project_id = $2 AND item_id = $3 AND is_latest AND mas_id <> $4
)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, creatorID, projectID, itemID, excludeMASID); err != nil {
		return false, fmt.Errorf("check duplicate mas: %w", err)
	}
	return exists, nil
}

// LatestItemIDs lists items the vendor already holds a latest row for.
func (r *MASRepository) LatestItemIDs(ctx context.Context, creatorID, projectID string) ([]string, error) {
	var ids []string
	const query = `SELECT DISTINCT item_id FROM mas WHERE creator_id = $1 AND project_id = $2 AND is_latest`
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, creatorID, projectID); err != nil {
		return nil, fmt.Errorf("list latest item ids: %w", normalizeLookupErr(err))
	}
	return ids, nil
}

// Create inserts a new revision row.
func (r *MASRepository) Create(ctx context.Context, exec sqlx.ExtContext, mas *models.MAS) error {
	if mas.ID == "" {
		mas.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mas.CreatedAt.IsZero() {
		mas.CreatedAt = now
	}
	mas.UpdatedAt = mas.CreatedAt
	const query = `INSERT INTO mas
	(id, mas_id, serial_number, revision, project_id, building_id, service_id, item_id, make, other_make, attachment,
	 status, creator_id, reviewer_id, approver_id, review_comment, review_date, approval_comment, approval_date,
	 parent_mas_id, is_latest, created_at, updated_at)
	VALUES (:id, :mas_id, :serial_number, :revision, :project_id, :building_id, :service_id, :item_id, :make, :other_make, :attachment,
	 :status, :creator_id, :reviewer_id, :approver_id, :review_comment, :review_date, :approval_comment, :approval_date,
	 :parent_mas_id, :is_latest, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, mas); err != nil {
		return fmt.Errorf("create mas: %w", err)
	}
	return nil
}

// UpdateSubmission rewrites vendor-editable fields while the row is editable.
func (r *MASRepository) UpdateSubmission(ctx context.Context, exec sqlx.ExtContext, mas *models.MAS) error {
	mas.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE mas SET item_id = :item_id, make = :make, other_make = :other_make,
	attachment = :attachment, updated_at = :updated_at
	WHERE id = :id AND is_latest AND status = '%s'`, models.MASStatusPendingReview)
	return r.expectOne(ctx, exec, "update mas submission", query, mas)
}

// DecisionParams captures a reviewer or approver decision.
type DecisionParams struct {
	ID      string
	From    models.MASStatus
	To      models.MASStatus
	ActorID string
	Comment string
	At      time.Time
}

// ApplyReview records a reviewer decision, conditional on the prior status.
func (r *MASRepository) ApplyReview(ctx context.Context, exec sqlx.ExtContext, params DecisionParams) error {
	const query = `UPDATE mas SET status = :to, reviewer_id = :actor_id, review_comment = :comment,
	review_date = :at, updated_at = :at
	WHERE id = :id AND is_latest AND status = :from`
	return r.expectOne(ctx, exec, "apply review", query, decisionArgs(params))
}

// ApplyApproval records an approver decision, conditional on the prior status.
func (r *MASRepository) ApplyApproval(ctx context.Context, exec sqlx.ExtContext, params DecisionParams) error {
	const query = `UPDATE mas SET status = :to, approver_id = :actor_id, approval_comment = :comment,
	approval_date = :at, updated_at = :at
	WHERE id = :id AND is_latest AND status = :from`
	return r.expectOne(ctx, exec, "apply approval", query, decisionArgs(params))
}

// MarkNotLatest clears is_latest on a row that currently holds it.
func (r *MASRepository) MarkNotLatest(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE mas SET is_latest = FALSE, updated_at = :updated_at WHERE id = :id AND is_latest`
	return r.expectOne(ctx, exec, "mark mas not latest", query, map[string]interface{}{
		"id":         id,
		"updated_at": time.Now().UTC(),
	})
}

func (r *MASRepository) expectOne(ctx context.Context, exec sqlx.ExtContext, op, query string, arg interface{}) error {
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, arg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func decisionArgs(params DecisionParams) map[string]interface{} {
	return map[string]interface{}{
		"id":       params.ID,
		"from":     params.From,
		"to":       params.To,
		"actor_id": params.ActorID,
		"comment":  params.Comment,
		"at":       params.At,
	}
}

func statusStrings(statuses []models.MASStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
