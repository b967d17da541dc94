package handler

import (
	"net/http"
	"strconv"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	tenantService service.TenantService
}

func NewTenantHandler(tenantService service.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

func (h *TenantHandler) RegisterRoutes(router *gin.RouterGroup) {
	distributors := router.Group("/api/distributors")
	{
		// self-service signup, no credential required
		distributors.POST("/register", h.Register)

		distributors.GET("", middleware.RequireSuperuser(), h.ListDistributors)
		distributors.GET("/:id", middleware.Require("distributor.settings"), h.GetDistributor)
		distributors.PUT("/:id", middleware.Require("distributor.manage"), h.UpdateDistributor)
		distributors.GET("/:id/stats", middleware.Require("distributor.settings"), h.Stats)
	}
}

// Register signs up a distributor with its owner and main branch
// @Summary      Register distributor
// @Description  Creates the distributor, its main branch, default roles and the owner account in one transaction
// @Tags         distributors
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterDistributorRequest  true  "Registration Payload"
// @Success      201      {object}  response.Response{data=service.DistributorResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/distributors/register [post]
func (h *TenantHandler) Register(c *gin.Context) {
	var req service.RegisterDistributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	distributor, err := h.tenantService.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, distributor))
}

// ListDistributors is the platform operator's tenant list
// @Summary      List distributors
// @Tags         distributors
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/distributors [get]
func (h *TenantHandler) ListDistributors(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	distributors, total, err := h.tenantService.ListDistributors(c.Request.Context(), page, limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"distributors": distributors,
		"total":        total,
		"page":         page,
		"limit":        limit,
	}))
}

// GetDistributor returns the tenant record
// @Summary      Get distributor
// @Tags         distributors
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Distributor ID"
// @Success      200  {object}  response.Response{data=service.DistributorResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/distributors/{id} [get]
func (h *TenantHandler) GetDistributor(c *gin.Context) {
	distributor, err := h.tenantService.GetDistributor(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, distributor))
}

// UpdateDistributor updates tenant settings and subscription tier
// @Summary      Update distributor
// @Tags         distributors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Distributor ID"
// @Param        payload  body      service.UpdateDistributorRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=service.DistributorResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/distributors/{id} [put]
func (h *TenantHandler) UpdateDistributor(c *gin.Context) {
	var req service.UpdateDistributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	distributor, err := h.tenantService.UpdateDistributor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, distributor))
}

// Stats aggregates branches, users and roles for the tenant
// @Summary      Distributor statistics
// @Tags         distributors
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Distributor ID"
// @Success      200  {object}  response.Response{data=service.DistributorStatsResponse}
// @Router       /api/distributors/{id}/stats [get]
func (h *TenantHandler) Stats(c *gin.Context) {
	stats, err := h.tenantService.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
