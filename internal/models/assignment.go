package models

import "github.com/lib/pq"

// BuildingRole is a team member's per-building authorization.
type BuildingRole string

const (
	BuildingRoleReviewer BuildingRole = "Reviewer"
	BuildingRoleApprover BuildingRole = "Approver"
)

// VendorAssignment scopes what a vendor may submit against in a project.
// A nil BuildingID allows every building; empty ServiceIDs allows every service.
type VendorAssignment struct {
	ProjectID  string         `db:"project_id" json:"project_id"`
	UserID     string         `db:"user_id" json:"user_id"`
	BuildingID *string        `db:"building_id" json:"building_id,omitempty"`
	ServiceIDs pq.StringArray `db:"service_ids" json:"service_ids"`
}

// AllowsBuilding reports whether the vendor may submit against buildingID.
func (a VendorAssignment) AllowsBuilding(buildingID string) bool {
	return a.BuildingID == nil || *a.BuildingID == buildingID
}

// AllowsService reports whether the vendor may submit against serviceID.
func (a VendorAssignment) AllowsService(serviceID string) bool {
	if len(a.ServiceIDs) == 0 {
		return true
	}
	for _, id := range a.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// BuildingRoleGrant is one (building, role) pair held by a team member.
type BuildingRoleGrant struct {
	BuildingID string       `db:"building_id"`
	Role       BuildingRole `db:"role"`
}
