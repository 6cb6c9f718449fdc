package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CompaniesHandler exposes company endpoints.
type CompaniesHandler struct {
	companies *service.CompanyService
}

// NewCompaniesHandler constructs handler.
func NewCompaniesHandler(companies *service.CompanyService) *CompaniesHandler {
	return &CompaniesHandler{companies: companies}
}

// Available handles GET /companies/available.
func (h *CompaniesHandler) Available(c *fiber.Ctx) error {
	companies, err := h.companies.ListAvailable(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": companyResponses(companies)})
}

// List handles GET /companies.
func (h *CompaniesHandler) List(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	companies, err := h.companies.List(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": companyResponses(companies)})
}

// Create handles POST /companies.
func (h *CompaniesHandler) Create(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateCompanyRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	company, err := h.companies.Create(c.UserContext(), caller, service.CompanyInput{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCompanyResponse(company)})
}

// Deactivate handles POST /companies/:id/deactivate.
func (h *CompaniesHandler) Deactivate(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.DeactivateCompanyRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	company, err := h.companies.Deactivate(c.UserContext(), caller, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCompanyResponse(company)})
}

func companyResponses(companies []domain.Company) []dto.CompanyResponse {
	out := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		out = append(out, dto.NewCompanyResponse(&companies[i]))
	}
	return out
}
