package handler

import (
	"net/http"

	"banco/internal/bizerror"
	"banco/internal/middleware"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/service"
	"banco/pkg/pagination"
	"banco/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PermissionManageUsers guards system user administration
const PermissionManageUsers = "gestionar_usuarios"

type UserHandler struct {
	userService service.SystemUserService
	auth        *middleware.Auth
}

// NewUserHandler sets up the routing dependencies for system user endpoints
func NewUserHandler(userService service.SystemUserService, auth *middleware.Auth) *UserHandler {
	return &UserHandler{userService: userService, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/system-users", h.auth.RequirePermission(PermissionManageUsers))
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id/role", h.ChangeRole)
		users.PUT("/:id/status", h.SetStatus)
		users.POST("/:id/unblock", h.Unblock)
		users.PUT("/:id/password", h.SetPassword)
		users.PUT("/:id/client", h.LinkClient)
	}
}

// ListUsers lists system users, newest first
// @Summary      List system users
// @Tags         system-users
// @Produce      json
// @Security     BearerAuth
// @Param        role    query     string  false  "Role kind"
// @Param        status  query     string  false  "activo, inactivo or bloqueado"
// @Param        search  query     string  false  "Username or client name"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/system-users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.UserFilter{
		Role:   model.RoleName(c.Query("role")),
		Status: model.UserStatus(c.Query("status")),
		Search: c.Query("search"),
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), filter, p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Result(users, total)))
}

// CreateUser creates a system user
// @Summary      Create system user
// @Description  The password is hashed; access flags follow the role
// @Tags         system-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSystemUserRequest  true  "User"
// @Success      201      {object}  response.Response{data=service.SystemUserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/system-users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateSystemUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, service.ToSystemUserResponse(user)))
}

// GetUser returns one system user
// @Summary      Get system user
// @Tags         system-users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.SystemUserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/system-users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToSystemUserResponse(user)))
}

// ChangeRole moves the user to another role
// @Summary      Change role
// @Tags         system-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.ChangeRoleRequest  true  "Role"
// @Success      200      {object}  response.Response{data=service.SystemUserResponse}
// @Router       /api/system-users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		fail(c, &bizerror.ErrBadParam{Cause: err})
		return
	}
	user, err := h.userService.ChangeRole(c.Request.Context(), id, roleID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToSystemUserResponse(user)))
}

// SetStatus changes the account status; leaving bloqueado clears the failure counter
// @Summary      Set status
// @Tags         system-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "User ID"
// @Param        payload  body      service.SetStatusRequest  true  "Status"
// @Success      200      {object}  response.Response{data=service.SystemUserResponse}
// @Router       /api/system-users/{id}/status [put]
func (h *UserHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SetStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.SetStatus(c.Request.Context(), id, model.UserStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToSystemUserResponse(user)))
}

// Unblock reactivates a blocked user
// @Summary      Unblock
// @Tags         system-users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.SystemUserResponse}
// @Router       /api/system-users/{id}/unblock [post]
func (h *UserHandler) Unblock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Unblock(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToSystemUserResponse(user)))
}

// SetPassword resets another user's password
// @Summary      Reset password
// @Tags         system-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "User ID"
// @Param        payload  body      service.SetPasswordRequest  true  "Password"
// @Success      200      {object}  response.Response
// @Router       /api/system-users/{id}/password [put]
func (h *UserHandler) SetPassword(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.userService.SetPassword(c.Request.Context(), id, req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "password updated"))
}

// LinkClient sets or clears the client the user represents
// @Summary      Link client
// @Tags         system-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.LinkClientRequest  true  "Client, null to clear"
// @Success      200      {object}  response.Response{data=service.SystemUserResponse}
// @Router       /api/system-users/{id}/client [put]
func (h *UserHandler) LinkClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.LinkClientRequest
	if !bindJSON(c, &req) {
		return
	}
	var clientID *uuid.UUID
	if req.ClientID != nil && *req.ClientID != "" {
		parsed, err := uuid.Parse(*req.ClientID)
		if err != nil {
			fail(c, &bizerror.ErrBadParam{Cause: err})
			return
		}
		clientID = &parsed
	}
	user, err := h.userService.LinkClient(c.Request.Context(), id, clientID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToSystemUserResponse(user)))
}
