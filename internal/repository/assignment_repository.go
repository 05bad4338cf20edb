package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mas-api/internal/models"
)

// AssignmentRepository reads vendor assignments and building roles.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// VendorAssignment returns the vendor's scope in a project or sql.ErrNoRows.
func (r *AssignmentRepository) VendorAssignment(ctx context.Context, userID, projectID string) (*models.VendorAssignment, error) {
	const query = `SELECT pv.project_id, pv.user_id, pv.building_id,
	COALESCE(array_agg(pvs.service_id::text ORDER BY pvs.service_id) FILTER (WHERE pvs.service_id IS NOT NULL), '{}') AS service_ids
FROM project_vendors pv
LEFT JOIN project_vendor_services pvs ON pvs.project_id = pv.project_id AND pvs.user_id = pv.user_id
WHERE pv.user_id = $1 AND pv.project_id = $2
GROUP BY pv.project_id, pv.user_id, pv.building_id`
	var assignment models.VendorAssignment
	if err := r.db.GetContext(ctx, &assignment, query, userID, projectID); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &assignment, nil
}

// BuildingRoles returns the roles userID holds on buildingID.
func (r *AssignmentRepository) BuildingRoles(ctx context.Context, userID, buildingID string) ([]models.BuildingRole, error) {
	var roles []models.BuildingRole
	const query = `SELECT role FROM building_roles WHERE user_id = $1 AND building_id = $2`
	if err := r.db.SelectContext(ctx, &roles, query, userID, buildingID); err != nil {
		return nil, fmt.Errorf("list building roles: %w", normalizeLookupErr(err))
	}
	return roles, nil
}

// RoleGrants returns every (building, role) pair held by userID.
func (r *AssignmentRepository) RoleGrants(ctx context.Context, userID string) ([]models.BuildingRoleGrant, error) {
	var grants []models.BuildingRoleGrant
	const query = `SELECT building_id, role FROM building_roles WHERE user_id = $1 ORDER BY building_id, role`
	if err := r.db.SelectContext(ctx, &grants, query, userID); err != nil {
		return nil, fmt.Errorf("list role grants: %w", normalizeLookupErr(err))
	}
	return grants, nil
}
