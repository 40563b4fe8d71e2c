package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/auth"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/class-booking-backend/internal/user"
)

type UserHandler struct {
	userService user.Service
	jwtManager  *auth.JWTManager
}

func NewHandler(userService user.Service, jwtManager *auth.JWTManager) *UserHandler {
	return &UserHandler{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// Register creates a user account with the user role.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request", err)
		return
	}

	u, err := h.userService.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, MeResponse{User: NewUserResponse(u)})
}

// Login authenticates a user using username and password.
// On success, it returns a JWT access token and the user profile.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request", err)
		return
	}

	u, err := h.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(u.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message:     fmt.Sprintf("Welcome back, %s!", u.Username),
		AccessToken: token,
		ExpiresIn:   int(h.jwtManager.TTL().Seconds()),
		User:        NewUserResponse(u),
	})
}

// Me retrieves the profile of the currently authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	p := auth.GetPrincipal(c)
	if p == nil {
		response.Error(c, access.ErrUnauthenticated)
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), p.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(u)})
}

// List retrieves a paginated list of users. Admin only.
func (h *UserHandler) List(c *gin.Context) {
	var req ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Invalid(c, "invalid query parameters", err)
		return
	}

	filter := user.UserFilter{
		Username: req.Username,
		Role:     access.Role(req.Role),
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	users, total, err := h.userService.List(c.Request.Context(), auth.GetPrincipal(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]UserResponse, len(users))
	for i, u := range users {
		items[i] = NewUserResponse(u)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}
