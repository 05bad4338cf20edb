package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MASStatus enumerates lifecycle states of a material approval sheet.
type MASStatus string

const (
	MASStatusPendingReview     MASStatus = "pending_review"
	MASStatusPendingApproval   MASStatus = "pending_approval"
	MASStatusApproved          MASStatus = "approved"
	MASStatusRejected          MASStatus = "rejected"
	MASStatusRevisionRequested MASStatus = "revision_requested"
)

// InitialRevision is the revision label of a chain root.
const InitialRevision = "R0"

// MAS is one revision row of a material approval sheet chain.
type MAS struct {
	ID              string     `db:"id" json:"id"`
	MASID           string     `db:"mas_id" json:"mas_id"`
	SerialNumber    int        `db:"serial_number" json:"serial_number"`
	Revision        string     `db:"revision" json:"revision"`
	ProjectID       string     `db:"project_id" json:"project_id"`
	BuildingID      string     `db:"building_id" json:"building_id"`
	ServiceID       string     `db:"service_id" json:"service_id"`
	ItemID          string     `db:"item_id" json:"item_id"`
	Make            string     `db:"make" json:"make"`
	OtherMake       *string    `db:"other_make" json:"other_make,omitempty"`
	Attachment      string     `db:"attachment" json:"-"`
	Status          MASStatus  `db:"status" json:"status"`
	CreatorID       string     `db:"creator_id" json:"creator_id"`
	ReviewerID      *string    `db:"reviewer_id" json:"reviewer_id,omitempty"`
	ApproverID      *string    `db:"approver_id" json:"approver_id,omitempty"`
	ReviewComment   string     `db:"review_comment" json:"review_comment"`
	ReviewDate      *time.Time `db:"review_date" json:"review_date,omitempty"`
	ApprovalComment string     `db:"approval_comment" json:"approval_comment"`
	ApprovalDate    *time.Time `db:"approval_date" json:"approval_date,omitempty"`
	ParentMASID     *string    `db:"parent_mas_id" json:"parent_mas_id,omitempty"`
	IsLatest        bool       `db:"is_latest" json:"is_latest"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	// Read-only names joined from the catalog and user directory.
	ProjectName     string `db:"project_name" json:"project_name,omitempty"`
	ProjectNumber   string `db:"project_number" json:"project_number,omitempty"`
	BuildingName    string `db:"building_name" json:"building_name,omitempty"`
	ServiceName     string `db:"service_name" json:"service_name,omitempty"`
	ItemName        string `db:"item_name" json:"item_name,omitempty"`
	CreatorUsername string `db:"creator_username" json:"creator_username,omitempty"`
}

// CanEdit holds only for the latest row while it is still pending review.
func (m *MAS) CanEdit() bool {
	return m.Status == MASStatusPendingReview && m.IsLatest
}

// IsRevisable reports whether a new revision may be started from this row.
func (m *MAS) IsRevisable() bool {
	return m.IsLatest && (m.Status == MASStatusRejected || m.Status == MASStatusRevisionRequested)
}

// RootID returns the id of the chain root.
func (m *MAS) RootID() string {
	if m.ParentMASID != nil && *m.ParentMASID != "" {
		return *m.ParentMASID
	}
	return m.ID
}

// BuildMASID renders "{project_number}-{building}-MAS-{service}-{serial}".
func BuildMASID(projectNumber, buildingName, serviceName string, serial int) string {
	return fmt.Sprintf("%s-%s-MAS-%s-%d", projectNumber, buildingName, serviceName, serial)
}

// ParseRevision returns n for a label "R{n}".
func ParseRevision(revision string) (int, error) {
	if !strings.HasPrefix(revision, "R") {
		return 0, fmt.Errorf("invalid revision %q", revision)
	}
	n, err := strconv.Atoi(revision[1:])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid revision %q", revision)
	}
	return n, nil
}

// FormatRevision renders revision number n.
func FormatRevision(n int) string {
	return "R" + strconv.Itoa(n)
}

// NextRevision returns R{n+1} for R{n}.
func NextRevision(revision string) (string, error) {
	n, err := ParseRevision(revision)
	if err != nil {
		return "", err
	}
	return FormatRevision(n + 1), nil
}

// MASStatusGroup is a list filter over statuses.
type MASStatusGroup string

const (
	MASStatusGroupPending  MASStatusGroup = "pending"
	MASStatusGroupApproved MASStatusGroup = "approved"
	MASStatusGroupRejected MASStatusGroup = "rejected"
	MASStatusGroupAll      MASStatusGroup = "all"
)

// Statuses expands the group; nil means no status restriction.
func (g MASStatusGroup) Statuses() []MASStatus {
	switch g {
	case MASStatusGroupPending:
		return []MASStatus{MASStatusPendingReview, MASStatusPendingApproval, MASStatusRevisionRequested}
	case MASStatusGroupApproved:
		return []MASStatus{MASStatusApproved}
	case MASStatusGroupRejected:
		return []MASStatus{MASStatusRejected}
	default:
		return nil
	}
}

// MASFilter narrows MAS listings.
type MASFilter struct {
	Statuses   []MASStatus
	LatestOnly bool
	CreatorID  string
	// Team visibility. When Scoped is set only rows matched by one of
	// the building lists are returned.
	Scoped            bool
	ReviewerBuildings []string
	ApproverBuildings []string
	Limit             int
	Offset            int
}
