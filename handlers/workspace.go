package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centrohq/centro/services"
)

type WorkspaceHandler struct {
	Workspaces *services.WorkspaceService
}

func NewWorkspaceHandler(workspaces *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{Workspaces: workspaces}
}

func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req services.CreateWorkspaceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws, err := h.Workspaces.Create(c.Request.Context(), actorID(c), c.Param("companyId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ws)
}

func (h *WorkspaceHandler) ListForCompany(c *gin.Context) {
	workspaces, err := h.Workspaces.GetForCompany(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, workspaces)
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	ws, err := h.Workspaces.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (h *WorkspaceHandler) Update(c *gin.Context) {
	var req services.UpdateWorkspaceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Workspaces.Update(c.Request.Context(), actorID(c), c.Param("id"), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workspace updated"})
}

func (h *WorkspaceHandler) UpdateHead(c *gin.Context) {
	var req struct {
		WorkspaceHeadID string `json:"workspace_head_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Workspaces.UpdateHead(c.Request.Context(), actorID(c), c.Param("id"), req.WorkspaceHeadID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workspace head updated"})
}

func (h *WorkspaceHandler) Delete(c *gin.Context) {
	if err := h.Workspaces.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workspace deleted"})
}

func (h *WorkspaceHandler) Members(c *gin.Context) {
	members, err := h.Workspaces.GetMembers(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *WorkspaceHandler) AddMember(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"required,oneof=admin member"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	member, err := h.Workspaces.AddMember(c.Request.Context(), actorID(c), c.Param("id"), req.UserID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *WorkspaceHandler) UpdateMemberRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required,oneof=admin member"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Workspaces.UpdateMemberRole(c.Request.Context(), actorID(c), c.Param("memberId"), req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

func (h *WorkspaceHandler) UpdateMemberDesignation(c *gin.Context) {
	var req struct {
		Designation string `json:"designation" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Workspaces.UpdateMemberDesignation(c.Request.Context(), actorID(c), c.Param("memberId"), req.Designation); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Designation updated"})
}

func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	if err := h.Workspaces.RemoveMember(c.Request.Context(), actorID(c), c.Param("memberId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

func (h *WorkspaceHandler) RequestAccess(c *gin.Context) {
	req, err := h.Workspaces.RequestAccess(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *WorkspaceHandler) AccessRequests(c *gin.Context) {
	requests, err := h.Workspaces.GetAccessRequests(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *WorkspaceHandler) MyMemberships(c *gin.Context) {
	members, err := h.Workspaces.GetMyMemberships(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *WorkspaceHandler) Myself(c *gin.Context) {
	membership, err := h.Workspaces.GetMyMembership(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

func (h *WorkspaceHandler) AdminStats(c *gin.Context) {
	stats, err := h.Workspaces.GetMyAdminStats(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *WorkspaceHandler) MyAccessRequests(c *gin.Context) {
	requests, err := h.Workspaces.GetMyAccessRequests(c.Request.Context(), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *WorkspaceHandler) ResolveAccessRequest(c *gin.Context) {
	var req struct {
		Approve *bool `json:"approve" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Workspaces.ResolveAccessRequest(c.Request.Context(), actorID(c), c.Param("requestId"), *req.Approve); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request resolved"})
}
