package handler

import (
	"net/http"

	"banco/internal/bizerror"
	"banco/internal/middleware"
	"banco/internal/model"
	"banco/internal/service"
	"banco/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PermissionManageRoles guards the role and permission catalog
const PermissionManageRoles = "gestionar_roles"

type RoleHandler struct {
	catalog service.CatalogService
	auth    *middleware.Auth
}

func NewRoleHandler(catalog service.CatalogService, auth *middleware.Auth) *RoleHandler {
	return &RoleHandler{catalog: catalog, auth: auth}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	guard := h.auth.RequirePermission(PermissionManageRoles)

	roles := router.Group("/roles", guard)
	{
		roles.GET("", h.ListRoles)
		roles.POST("", h.CreateRole)
		roles.PUT("/:id", h.UpdateRole)
		roles.DELETE("/:id", h.DeleteRole)
		roles.POST("/:id/permissions", h.Grant)
		roles.DELETE("/:id/permissions/:permissionId", h.Revoke)
	}

	perms := router.Group("/permissions", guard)
	{
		perms.GET("", h.ListPermissions)
		perms.POST("", h.CreatePermission)
		perms.DELETE("/:id", h.DeletePermission)
		perms.GET("/grants", h.ListGrants)
	}
}

// ListRoles lists every role with its user and permission counts
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]repository.RoleSummary}
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.catalog.ListRoles(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// CreateRole creates one of the role kinds
// @Summary      Create role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRoleRequest  true  "Role"
// @Success      201      {object}  response.Response{data=model.Role}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.catalog.CreateRole(c.Request.Context(), model.RoleName(req.Name), req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// UpdateRole changes the role description
// @Summary      Update role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Role ID"
// @Param        payload  body      service.UpdateRoleRequest  true  "Role"
// @Success      200      {object}  response.Response{data=model.Role}
// @Failure      404      {object}  response.Response
// @Router       /api/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.catalog.UpdateRoleDescription(c.Request.Context(), id, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// DeleteRole deletes a role no system user holds
// @Summary      Delete role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteRole(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "role deleted"))
}

// Grant gives a permission to a role; granting twice is harmless
// @Summary      Grant permission
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Role ID"
// @Param        payload  body      service.GrantRequest  true  "Permission"
// @Success      200      {object}  response.Response
// @Router       /api/roles/{id}/permissions [post]
func (h *RoleHandler) Grant(c *gin.Context) {
	roleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.GrantRequest
	if !bindJSON(c, &req) {
		return
	}
	permID, err := uuid.Parse(req.PermissionID)
	if err != nil {
		fail(c, &bizerror.ErrBadParam{Cause: err})
		return
	}
	if err := h.catalog.Grant(c.Request.Context(), roleID, permID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "permission granted"))
}

// Revoke removes a permission from a role
// @Summary      Revoke permission
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string  true  "Role ID"
// @Param        permissionId  path      string  true  "Permission ID"
// @Success      200           {object}  response.Response
// @Router       /api/roles/{id}/permissions/{permissionId} [delete]
func (h *RoleHandler) Revoke(c *gin.Context) {
	roleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	permID, ok := pathID(c, "permissionId")
	if !ok {
		return
	}
	if err := h.catalog.Revoke(c.Request.Context(), roleID, permID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "permission revoked"))
}

// ListPermissions lists permissions by name, optionally filtered
// @Summary      List permissions
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Substring of name or description"
// @Success      200     {object}  response.Response{data=[]repository.PermissionSummary}
// @Router       /api/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.catalog.ListPermissions(c.Request.Context(), c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}

// CreatePermission adds a permission to the catalog
// @Summary      Create permission
// @Tags         permissions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePermissionRequest  true  "Permission"
// @Success      201      {object}  response.Response{data=model.Permission}
// @Failure      409      {object}  response.Response
// @Router       /api/permissions [post]
func (h *RoleHandler) CreatePermission(c *gin.Context) {
	var req service.CreatePermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	perm, err := h.catalog.CreatePermission(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, perm))
}

// DeletePermission deletes a permission and all its grants
// @Summary      Delete permission
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Permission ID"
// @Success      200  {object}  response.Response
// @Router       /api/permissions/{id} [delete]
func (h *RoleHandler) DeletePermission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeletePermission(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "permission deleted"))
}

// ListGrants lists role-permission pairs
// @Summary      List grants
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Param        role  query     string  false  "Role kind"
// @Success      200   {object}  response.Response{data=[]model.RolePermission}
// @Router       /api/permissions/grants [get]
func (h *RoleHandler) ListGrants(c *gin.Context) {
	grants, err := h.catalog.ListGrants(c.Request.Context(), model.RoleName(c.Query("role")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, grants))
}
