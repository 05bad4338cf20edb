package models

import "time"

// MakeOther is the make selector meaning "free text in other_make".
const MakeOther = "other"

// ServiceNameOther marks a service whose display name is OtherName.
const ServiceNameOther = "Other"

type Project struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Number    string    `db:"project_number" json:"project_number"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Building struct {
	ID        string `db:"id" json:"id"`
	ProjectID string `db:"project_id" json:"project_id"`
	Name      string `db:"name" json:"name"`
}

type Service struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	OtherName *string `db:"other_name" json:"other_name,omitempty"`
}

// DisplayName returns OtherName for the "Other" service, Name otherwise.
func (s Service) DisplayName() string {
	if s.Name == ServiceNameOther && s.OtherName != nil && *s.OtherName != "" {
		return *s.OtherName
	}
	return s.Name
}

type Item struct {
	ID        string `db:"id" json:"id"`
	ServiceID string `db:"service_id" json:"service_id"`
	Name      string `db:"name" json:"name"`
}

type ItemMake struct {
	ID     string `db:"id" json:"id"`
	ItemID string `db:"item_id" json:"item_id"`
	Name   string `db:"name" json:"name"`
}

// Option is a selectable id/name pair for vendor form lookups.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
