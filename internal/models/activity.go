package models

import "time"

// ActivityAction enumerates lifecycle events recorded in the ledger.
type ActivityAction string

const (
	ActivityCreated           ActivityAction = "created"
	ActivityEdited            ActivityAction = "edited"
	ActivitySubmittedReview   ActivityAction = "submitted_review"
	ActivityReviewed          ActivityAction = "reviewed"
	ActivitySubmittedApproval ActivityAction = "submitted_approval"
	ActivityApproved          ActivityAction = "approved"
	ActivityRejected          ActivityAction = "rejected"
	ActivityRevisionRequested ActivityAction = "revision_requested"
	ActivityRevisionSubmitted ActivityAction = "revision_submitted"
)

// ActivityLog is an immutable ledger entry. Name columns are snapshots
// taken at write time and never follow later catalog renames.
type ActivityLog struct {
	ID           string         `db:"id" json:"id"`
	Seq          int64          `db:"seq" json:"-"`
	MASRowID     string         `db:"mas_row_id" json:"mas_row_id"`
	Action       ActivityAction `db:"action" json:"action"`
	UserID       *string        `db:"user_id" json:"user_id,omitempty"`
	Username     string         `db:"username" json:"username"`
	Timestamp    time.Time      `db:"timestamp" json:"timestamp"`
	Details      string         `db:"details" json:"details"`
	ProjectName  string         `db:"project_name" json:"project_name"`
	BuildingName string         `db:"building_name" json:"building_name"`
	ServiceName  string         `db:"service_name" json:"service_name"`
	ItemName     string         `db:"item_name" json:"item_name"`
	Make         string         `db:"make" json:"make"`
	Status       string         `db:"status" json:"status"`

	// Revision of the referenced row, joined on read.
	Revision string `db:"revision" json:"revision,omitempty"`
}
