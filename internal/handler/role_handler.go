package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService   service.RoleService
	accessService service.AccessService
}

func NewRoleHandler(roleService service.RoleService, accessService service.AccessService) *RoleHandler {
	return &RoleHandler{roleService: roleService, accessService: accessService}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/api/roles")
	{
		roles.POST("", middleware.Require("role.create"), h.CreateRole)
		roles.GET("", middleware.Require("role.view"), h.ListRoles)
		roles.GET("/:id", middleware.Require("role.view"), h.GetRole)
		roles.PUT("/:id", middleware.Require("role.edit"), h.UpdateRole)
		roles.DELETE("/:id", middleware.Require("role.delete"), h.DeleteRole)

		// grants re-check against the database, not the token snapshot
		roles.POST("/:id/permissions/:permissionId", middleware.RequireFresh("role.edit"), h.GrantPermission)
		roles.DELETE("/:id/permissions/:permissionId", middleware.RequireFresh("role.edit"), h.RevokePermission)
	}

	perms := router.Group("/api/permissions")
	{
		perms.GET("", middleware.Require("role.view"), h.ListPermissions)
	}
}

// CreateRole creates a tenant-scoped role
// @Summary      Create role
// @Tags         roles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRoleRequest  true  "Create Role Payload"
// @Success      201      {object}  response.Response{data=service.RoleResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), distributorID, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// ListRoles lists the tenant's roles with their permissions
// @Summary      List roles
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RoleResponse}
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	roles, err := h.roleService.ListRoles(c.Request.Context(), distributorID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// GetRole returns one role with its permissions
// @Summary      Get role
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RoleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	role, err := h.roleService.GetRole(c.Request.Context(), distributorID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// UpdateRole updates role fields and optionally replaces permissions
// @Summary      Update role
// @Tags         roles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Role ID"
// @Param        payload  body      service.UpdateRoleRequest  true  "Update Role Payload"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), distributorID, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// DeleteRole removes a non-system role
// @Summary      Delete role
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	if err := h.roleService.DeleteRole(c.Request.Context(), distributorID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "role deleted"}))
}

// GrantPermission attaches a permission to a role (idempotent)
// @Summary      Grant permission
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        id            path      string  true  "Role ID"
// @Param        permissionId  path      string  true  "Permission ID"
// @Success      200           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Router       /api/roles/{id}/permissions/{permissionId} [post]
func (h *RoleHandler) GrantPermission(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}
	if err := h.accessService.Grant(c.Request.Context(), distributorID, c.Param("id"), c.Param("permissionId"), actorID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "permission granted"}))
}

// RevokePermission detaches a permission from a role
// @Summary      Revoke permission
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        id            path      string  true  "Role ID"
// @Param        permissionId  path      string  true  "Permission ID"
// @Success      200           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Router       /api/roles/{id}/permissions/{permissionId} [delete]
func (h *RoleHandler) RevokePermission(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}
	if err := h.accessService.Revoke(c.Request.Context(), distributorID, c.Param("id"), c.Param("permissionId"), actorID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "permission revoked"}))
}

// ListPermissions returns the full permission catalog
// @Summary      List permissions
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        grouped  query     bool  false  "Group permissions by module"
// @Success      200      {object}  response.Response{data=[]service.PermissionResponse}
// @Router       /api/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleService.ListPermissions(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	if c.Query("grouped") == "true" {
		grouped := make(map[string][]service.PermissionResponse)
		for _, p := range perms {
			grouped[p.Module] = append(grouped[p.Module], p)
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, grouped))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}
