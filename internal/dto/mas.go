package dto

import (
	"io"
	"time"

	"github.com/noah-isme/mas-api/internal/models"
)

// CreateMASRequest carries the multipart form fields of a new submission.
type CreateMASRequest struct {
	ProjectID  string `form:"project_id" json:"project_id" validate:"required"`
	BuildingID string `form:"building_id" json:"building_id" validate:"required"`
	ServiceID  string `form:"service_id" json:"service_id" validate:"required"`
	ItemID     string `form:"item_id" json:"item_id" validate:"required"`
	MakeID     string `form:"make_id" json:"make_id" validate:"required"`
	OtherMake  string `form:"other_make" json:"other_make" validate:"max=200"`
}

// EditMASRequest changes a pending submission in place. Blank fields keep
// their current value; changing the item requires choosing a make again.
type EditMASRequest struct {
	ItemID    string `form:"item_id" json:"item_id"`
	MakeID    string `form:"make_id" json:"make_id"`
	OtherMake string `form:"other_make" json:"other_make" validate:"max=200"`
}

// ReviseMASRequest starts a new revision. A fresh attachment is mandatory.
type ReviseMASRequest struct {
	ItemID    string `form:"item_id" json:"item_id"`
	MakeID    string `form:"make_id" json:"make_id" validate:"required"`
	OtherMake string `form:"other_make" json:"other_make" validate:"max=200"`
}

// ReviewAction is a reviewer decision.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
	ReviewActionComment ReviewAction = "comment"
)

// ReviewMASRequest is the reviewer decision payload.
type ReviewMASRequest struct {
	Action  ReviewAction `json:"action" validate:"required,oneof=approve reject comment"`
	Comment string       `json:"comment" validate:"max=4000"`
}

// ApprovalMASRequest is the approver decision payload.
type ApprovalMASRequest struct {
	Action  ReviewAction `json:"action" validate:"required,oneof=approve reject"`
	Comment string       `json:"comment" validate:"max=4000"`
}

// MASListQuery mirrors supported listing filters.
type MASListQuery struct {
	Status models.MASStatusGroup `form:"status"`
	Latest *bool                 `form:"latest"`
	Limit  int                   `form:"limit"`
	Offset int                   `form:"offset"`
}

// AttachmentUpload is an incoming file. Size is the declared size.
type AttachmentUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// MASDetail enriches a row with what the caller may do next.
type MASDetail struct {
	MAS            *models.MAS `json:"mas"`
	AllowedActions []string    `json:"allowed_actions"`
}

// RevisionResult reports the new revision. RedirectedFrom is set when the
// request targeted a stale row and the current latest was revised instead.
type RevisionResult struct {
	MAS            *models.MAS `json:"mas"`
	RedirectedFrom string      `json:"redirected_from,omitempty"`
}

// MASHistory is the full audit view of a chain.
type MASHistory struct {
	MASID     string               `json:"mas_id"`
	Revisions []models.MAS         `json:"revisions"`
	Activity  []models.ActivityLog `json:"activity"`
}

// AttachmentLink is a short-lived download URL.
type AttachmentLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OptionQuery selects the parent for option lookups.
type OptionQuery struct {
	ProjectID string `form:"project"`
	ServiceID string `form:"service"`
	ItemID    string `form:"item"`
}
