package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UsersHandler exposes registration, login and account endpoints.
type UsersHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, userService *service.UserService) *UsersHandler {
	return &UsersHandler{auth: authService, users: userService}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Register(c.UserContext(), accountInput(req, ""))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Login(c.UserContext(), req.Login, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		UID:       result.User.UID,
		Role:      result.User.Role,
	}})
}

// Me handles GET /me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetProfile(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateMe handles PATCH /me.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.UserContext(), caller, profilePatch(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListUsers handles GET /users?role=.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var role *domain.Role
	if raw := c.Query("role"); raw != "" {
		r := domain.Role(raw)
		role = &r
	}
	users, err := h.users.List(c.UserContext(), caller, role, pageFromQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateUser handles POST /users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), caller, accountInput(req.RegisterRequest, domain.Role(req.Role)))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateUser handles PATCH /users/:uid.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	uid := c.Params("uid")
	if uid == "" {
		return apperrors.NewValidationError("uid required", nil)
	}
	var req dto.UpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	patch := service.UserPatch{
		ProfilePatch: profilePatch(req.UpdateProfileRequest),
		Login:        req.Login,
		Password:     req.Password,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}
	user, err := h.users.Update(c.UserContext(), caller, uid, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func accountInput(req dto.RegisterRequest, role domain.Role) service.AccountInput {
	return service.AccountInput{
		Login:     req.Login,
		Password:  req.Password,
		Role:      role,
		Name:      req.Name,
		Phone:     req.Phone,
		Location:  req.Location,
		CompanyID: req.CompanyID,
	}
}

func profilePatch(req dto.UpdateProfileRequest) service.ProfilePatch {
	return service.ProfilePatch{
		Name:      req.Name,
		Phone:     req.Phone,
		Location:  req.Location,
		CompanyID: req.CompanyID,
	}
}
