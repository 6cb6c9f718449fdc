package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateCompanyRequest payload.
type CreateCompanyRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=300"`
	Phone   string `json:"phone" validate:"max=32"`
}

// DeactivateCompanyRequest payload.
type DeactivateCompanyRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CompanyResponse representation.
type CompanyResponse struct {
	CompanyID          string               `json:"companyId"`
	Name               string               `json:"name"`
	Address            string               `json:"address,omitempty"`
	Phone              string               `json:"phone,omitempty"`
	Status             domain.CompanyStatus `json:"status"`
	DeactivatedBy      *string              `json:"deactivatedBy,omitempty"`
	DeactivatedAt      *time.Time           `json:"deactivatedAt,omitempty"`
	DeactivationReason *string              `json:"reason,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
}

// NewCompanyResponse maps a domain company.
func NewCompanyResponse(c *domain.Company) CompanyResponse {
	return CompanyResponse{
		CompanyID:          c.ID,
		Name:               c.Name,
		Address:            c.Address,
		Phone:              c.Phone,
		Status:             c.Status,
		DeactivatedBy:      c.DeactivatedBy,
		DeactivatedAt:      c.DeactivatedAt,
		DeactivationReason: c.DeactivationReason,
		CreatedAt:          c.CreatedAt,
	}
}
