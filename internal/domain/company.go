package domain

import "time"

// CompanyStatus represents whether a company accepts new registrations.
type CompanyStatus string

const (
	CompanyStatusActive   CompanyStatus = "active"
	CompanyStatusInactive CompanyStatus = "inactive"
)

// Company is a customer organization. Companies are deactivated, never removed.
type Company struct {
	ID                 string
	Name               string
	Address            string
	Phone              string
	Status             CompanyStatus
	DeactivatedBy      *string
	DeactivatedAt      *time.Time
	DeactivationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
