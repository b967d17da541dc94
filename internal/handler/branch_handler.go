package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type BranchHandler struct {
	branchService service.BranchService
	accessService service.AccessService
}

func NewBranchHandler(branchService service.BranchService, accessService service.AccessService) *BranchHandler {
	return &BranchHandler{branchService: branchService, accessService: accessService}
}

func (h *BranchHandler) RegisterRoutes(router *gin.RouterGroup) {
	branches := router.Group("/api/branches")
	{
		branches.POST("", middleware.Require("branch.create"), h.CreateBranch)
		branches.GET("", middleware.Require("branch.view"), h.ListBranches)
		branches.GET("/my", middleware.Authenticated(), h.MyBranches)
		branches.GET("/:id", middleware.Require("branch.view"), h.GetBranch)
		branches.PUT("/:id", middleware.Require("branch.edit"), h.UpdateBranch)
		branches.DELETE("/:id", middleware.Require("branch.delete"), h.DeleteBranch)
	}
}

// CreateBranch adds a branch within the subscription's branch cap
// @Summary      Create branch
// @Tags         branches
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBranchRequest  true  "Create Branch Payload"
// @Success      201      {object}  response.Response{data=service.BranchResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/branches [post]
func (h *BranchHandler) CreateBranch(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	branch, err := h.branchService.CreateBranch(c.Request.Context(), distributorID, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, branch))
}

// ListBranches lists the tenant's branches
// @Summary      List branches
// @Tags         branches
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.BranchResponse}
// @Router       /api/branches [get]
func (h *BranchHandler) ListBranches(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	branches, err := h.branchService.ListBranches(c.Request.Context(), distributorID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branches))
}

// MyBranches lists the branches the caller can switch into
// @Summary      My branches
// @Description  Branches the caller holds at least one role assignment in; superusers get the full tenant list
// @Tags         branches
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.BranchResponse}
// @Router       /api/branches/my [get]
func (h *BranchHandler) MyBranches(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
		return
	}

	if actor.IsSuperuser {
		distributorID, ok := tenantScope(c)
		if !ok {
			return
		}
		branches, err := h.branchService.ListBranches(c.Request.Context(), distributorID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, branches))
		return
	}

	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}
	assignments, err := h.accessService.ListUserAssignments(c.Request.Context(), distributorID, actor.UserID.String())
	if err != nil {
		fail(c, err)
		return
	}

	seen := make(map[string]bool, len(assignments))
	branches := make([]gin.H, 0, len(assignments))
	for _, a := range assignments {
		if seen[a.BranchID] {
			continue
		}
		seen[a.BranchID] = true
		branches = append(branches, gin.H{
			"id":         a.BranchID,
			"name":       a.BranchName,
			"is_current": actor.BranchID != nil && actor.BranchID.String() == a.BranchID,
		})
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branches))
}

// GetBranch returns one branch
// @Summary      Get branch
// @Tags         branches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Branch ID"
// @Success      200  {object}  response.Response{data=service.BranchResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/branches/{id} [get]
func (h *BranchHandler) GetBranch(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	branch, err := h.branchService.GetBranch(c.Request.Context(), distributorID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branch))
}

// UpdateBranch updates branch fields and the active flag
// @Summary      Update branch
// @Tags         branches
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Branch ID"
// @Param        payload  body      service.UpdateBranchRequest  true  "Update Branch Payload"
// @Success      200      {object}  response.Response{data=service.BranchResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/branches/{id} [put]
func (h *BranchHandler) UpdateBranch(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.UpdateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	branch, err := h.branchService.UpdateBranch(c.Request.Context(), distributorID, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branch))
}

// DeleteBranch soft-deletes a branch
// @Summary      Delete branch
// @Tags         branches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Branch ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/branches/{id} [delete]
func (h *BranchHandler) DeleteBranch(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	if err := h.branchService.DeleteBranch(c.Request.Context(), distributorID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "branch deleted"}))
}
