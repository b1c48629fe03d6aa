package handler

import (
	"net/http"

	"zyllen/internal/middleware"
	"zyllen/internal/model"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"
	"zyllen/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	authService service.AuthService
	userService service.UserService
	gate        *middleware.Gate
}

// NewUserHandler sets up the routing dependencies for auth and internal user endpoints
func NewUserHandler(authService service.AuthService, userService service.UserService, gate *middleware.Gate) *UserHandler {
	return &UserHandler{authService: authService, userService: userService, gate: gate}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth")

	// Public routes
	authGroup.POST("/login", h.Login)
	authGroup.POST("/pin-login", h.PINLogin)
	authGroup.POST("/portal/login", h.PortalLogin)
	authGroup.POST("/refresh", h.RefreshToken)
	authGroup.POST("/logout", h.Logout)

	secured := authGroup.Group("", h.gate.Authenticate())
	secured.GET("/me", h.gate.RequireInternal(), h.GetMe)
	secured.PUT("/me/pin", h.gate.RequireInternal(), h.SetPIN)
	secured.GET("/portal/me", h.GetPortalMe)

	users := secured.Group("/users")
	{
		users.GET("", h.gate.RequirePermission("users.view"), h.ListUsers)
		users.GET("/:id", h.gate.RequirePermission("users.view"), h.GetUserByID)
		users.POST("", h.gate.RequirePermission("users.create"), h.CreateUser)
		users.PUT("/:id", h.gate.RequirePermission("users.edit"), h.UpdateUser)
		users.DELETE("/:id", h.gate.RequirePermission("users.delete"), h.DeleteUser)
	}
}

// Login authenticates an internal user
// @Summary      Internal login
// @Description  Authenticates with email and password, sets HttpOnly cookies and returns tokens plus permission strings
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	h.gate.SetTokenCookies(c, resp.TokenPair)
	ok(c, resp)
}

// PINLogin authenticates an internal user on a shared scanner terminal
// @Summary      PIN login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PINLoginRequest  true  "Email and 4-digit PIN"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      401      {object}  response.Response
// @Router       /auth/pin-login [post]
func (h *UserHandler) PINLogin(c *gin.Context) {
	var req service.PINLoginRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.authService.PINLogin(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	h.gate.SetTokenCookies(c, resp.TokenPair)
	ok(c, resp)
}

// PortalLogin authenticates a client or contractor user
// @Summary      Portal login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      401      {object}  response.Response
// @Router       /auth/portal/login [post]
func (h *UserHandler) PortalLogin(c *gin.Context) {
	var req service.LoginRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.authService.PortalLogin(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	h.gate.SetTokenCookies(c, resp.TokenPair)
	ok(c, resp)
}

// RefreshToken rotates the refresh token, read from the body or the refresh_token cookie
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshRequest  false  "Refresh token (optional when the cookie is set)"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      401      {object}  response.Response
// @Router       /auth/refresh [post]
func (h *UserHandler) RefreshToken(c *gin.Context) {
	req, found := refreshRequest(c)
	if !found {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Refresh token is missing"))
		return
	}

	resp, err := h.authService.Refresh(c.Request.Context(), req)
	if err != nil {
		h.gate.ClearTokenCookies(c)
		fail(c, err)
		return
	}

	h.gate.SetTokenCookies(c, resp.TokenPair)
	ok(c, resp)
}

// Logout revokes the refresh token and clears the cookies
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshRequest  false  "Refresh token (optional when the cookie is set)"
// @Success      200      {object}  response.Response
// @Router       /auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	if req, found := refreshRequest(c); found {
		if err := h.authService.Logout(c.Request.Context(), req); err != nil {
			fail(c, err)
			return
		}
	}

	h.gate.ClearTokenCookies(c)
	ok(c, gin.H{"message": "Logged out successfully"})
}

// GetMe returns the current internal user and its permission strings
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	me, err := h.authService.Me(c.Request.Context(), actor(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, me)
}

// SetPIN sets or clears the caller's scanner PIN
// @Summary      Set PIN
// @Tags         auth
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SetPINRequest  true  "4-digit PIN, empty to clear"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /auth/me/pin [put]
func (h *UserHandler) SetPIN(c *gin.Context) {
	var req service.SetPINRequest
	if !bind(c, &req) {
		return
	}
	if err := h.authService.SetPIN(c.Request.Context(), actor(c), req); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "PIN updated"})
}

// GetPortalMe returns the current client or contractor user
// @Summary      Current portal user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.PortalUserResponse}
// @Failure      403  {object}  response.Response
// @Router       /auth/portal/me [get]
func (h *UserHandler) GetPortalMe(c *gin.Context) {
	a := actor(c)
	if a.Kind == model.KindInternal {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: wrong user type"))
		return
	}
	me, err := h.authService.PortalMe(c.Request.Context(), a.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, me)
}

// ListUsers returns internal users
// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Name or email"
// @Success      200     {object}  response.Response{data=[]service.UserResponse}
// @Router       /auth/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), p.Page, p.Limit, p.Search)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, users, p, total)
}

// GetUserByID returns one internal user
// @Summary      Get user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /auth/users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

// CreateUser creates an internal user
// @Summary      Create user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateUserRequest  true  "User"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /auth/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.userService.CreateUser(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, user)
}

// UpdateUser updates an internal user
// @Summary      Update user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.UpdateUserRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Router       /auth/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.userService.UpdateUser(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

// DeleteUser removes an internal user; deleting yourself is refused
// @Summary      Delete user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Router       /auth/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "User deleted successfully"})
}

func refreshRequest(c *gin.Context) (service.RefreshRequest, bool) {
	var req service.RefreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken == "" {
		req.RefreshToken = middleware.RefreshCookie(c)
	}
	return req, req.RefreshToken != ""
}
