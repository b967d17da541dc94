package handler

import (
	"net/http"
	"strconv"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	userService   service.UserService
	accessService service.AccessService
}

func NewUserHandler(userService service.UserService, accessService service.AccessService) *UserHandler {
	return &UserHandler{userService: userService, accessService: accessService}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/api/users")
	{
		users.POST("", middleware.Require("user.create"), h.CreateUser)
		users.GET("", middleware.Require("user.view"), h.ListUsers)
		users.GET("/:id", middleware.Require("user.view"), h.GetUser)
		users.PUT("/:id", middleware.Require("user.edit"), h.UpdateUser)
		users.DELETE("/:id", middleware.Require("user.delete"), h.DeleteUser)

		// assignment mutations re-check against the database
		users.GET("/:id/roles", middleware.Require("user.view"), h.ListAssignments)
		users.POST("/:id/roles", middleware.RequireFresh("user.assign_roles"), h.AssignRole)
	}

	assignments := router.Group("/api/assignments")
	{
		assignments.DELETE("/:id", middleware.RequireFresh("user.assign_roles"), h.Unassign)
		assignments.PUT("/:id/primary", middleware.RequireFresh("user.assign_roles"), h.SetPrimary)
	}
}

// CreateUser adds a user to the caller's distributor
// @Summary      Create user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateUserRequest  true  "Create User Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), distributorID, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// ListUsers lists users scoped to the caller's distributor
// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 10)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	// superusers without a header see every tenant's users; everyone
	// else must resolve to exactly one distributor
	var scope *uuid.UUID
	if id, ok := middleware.DistributorIDFrom(c); ok {
		scope = &id
	} else {
		actor, ok := middleware.ActorFrom(c)
		if !ok || !actor.IsSuperuser {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "no distributor scope: user has no distributor and no X-Distributor-ID header set"))
			return
		}
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), scope, page, limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}

// GetUser returns one user
// @Summary      Get user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}
	user, err := h.userService.GetUser(c.Request.Context(), distributorID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateUser updates profile fields and the active flag
// @Summary      Update user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.UpdateUserRequest  true  "Update User Payload"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), distributorID, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// DeleteUser soft-deletes a user
// @Summary      Delete user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(c.Request.Context(), distributorID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "user deleted"}))
}

// ListAssignments lists the user's role assignments across branches
// @Summary      List role assignments
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=[]service.AssignmentResponse}
// @Router       /api/users/{id}/roles [get]
func (h *UserHandler) ListAssignments(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}
	assignments, err := h.accessService.ListUserAssignments(c.Request.Context(), distributorID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, assignments))
}

// AssignRole grants a role to the user in a branch
// @Summary      Assign role
// @Description  Grants a role within a branch; role and branch must share a distributor
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.AssignRoleRequest  true  "Assignment Payload"
// @Success      201      {object}  response.Response{data=service.AssignmentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/users/{id}/roles [post]
func (h *UserHandler) AssignRole(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	// path wins over a mismatched body
	req.UserID = c.Param("id")

	assignment, err := h.accessService.Assign(c.Request.Context(), distributorID, req, actorID(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, assignment))
}

// Unassign removes a role assignment
// @Summary      Remove assignment
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Assignment ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/assignments/{id} [delete]
func (h *UserHandler) Unassign(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}
	if err := h.accessService.Unassign(c.Request.Context(), distributorID, c.Param("id"), actorID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "assignment removed"}))
}

// SetPrimary makes the assignment the user's single primary one
// @Summary      Set primary assignment
// @Description  Atomically clears any other primary flag for the user and moves their current branch
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Assignment ID"
// @Success      200  {object}  response.Response{data=service.AssignmentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/assignments/{id}/primary [put]
func (h *UserHandler) SetPrimary(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}
	assignment, err := h.accessService.SetPrimary(c.Request.Context(), distributorID, c.Param("id"), actorID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, assignment))
}
