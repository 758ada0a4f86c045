package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centrohq/centro/services"
)

type RoleHandler struct {
	Roles *services.RoleService
}

func NewRoleHandler(roles *services.RoleService) *RoleHandler {
	return &RoleHandler{Roles: roles}
}

func (h *RoleHandler) Create(c *gin.Context) {
	var req services.CreateRoleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, err := h.Roles.Create(c.Request.Context(), actorID(c), c.Param("companyId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

func (h *RoleHandler) ListForCompany(c *gin.Context) {
	roles, err := h.Roles.GetForCompany(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *RoleHandler) Update(c *gin.Context) {
	var req services.CreateRoleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Roles.Update(c.Request.Context(), actorID(c), c.Param("id"), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.Roles.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role deleted"})
}

func (h *RoleHandler) Request(c *gin.Context) {
	req, err := h.Roles.Request(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *RoleHandler) Requests(c *gin.Context) {
	requests, err := h.Roles.GetRequests(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *RoleHandler) Resolve(c *gin.Context) {
	var req struct {
		Approve *bool `json:"approve" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Roles.Resolve(c.Request.Context(), actorID(c), c.Param("requestId"), *req.Approve); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request resolved"})
}
