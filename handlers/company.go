package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centrohq/centro/services"
)

type CompanyHandler struct {
	Companies *services.CompanyService
}

func NewCompanyHandler(companies *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{Companies: companies}
}

func (h *CompanyHandler) Create(c *gin.Context) {
	var req services.CreateCompanyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Companies.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.Companies.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.Companies.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) Update(c *gin.Context) {
	var req services.UpdateDetailsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Companies.UpdateDetails(c.Request.Context(), actorID(c), c.Param("id"), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Company updated"})
}

func (h *CompanyHandler) Delete(c *gin.Context) {
	if err := h.Companies.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Company deleted"})
}

func (h *CompanyHandler) TransferOwnership(c *gin.Context) {
	var req struct {
		NewOwnerID string `json:"new_owner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Companies.TransferOwnership(c.Request.Context(), actorID(c), c.Param("id"), req.NewOwnerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ownership transferred"})
}

func (h *CompanyHandler) MyMemberships(c *gin.Context) {
	memberships, err := h.Companies.GetMyMemberships(c.Request.Context(), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, memberships)
}

func (h *CompanyHandler) MyMembership(c *gin.Context) {
	membership, err := h.Companies.GetMemberRecord(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

func (h *CompanyHandler) Members(c *gin.Context) {
	members, err := h.Companies.GetMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *CompanyHandler) RequestAccess(c *gin.Context) {
	if err := h.Companies.RequestAccess(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Access requested"})
}

func (h *CompanyHandler) UpdateMemberProfile(c *gin.Context) {
	var req services.UpdateMemberProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Companies.UpdateMemberProfile(c.Request.Context(), actorID(c), c.Param("memberId"), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member updated"})
}

func (h *CompanyHandler) UpdateMemberRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required,oneof=admin employee"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Companies.UpdateMemberRole(c.Request.Context(), actorID(c), c.Param("memberId"), req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

func (h *CompanyHandler) UpdateMemberStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required,oneof=active pending"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Companies.UpdateMemberStatus(c.Request.Context(), actorID(c), c.Param("memberId"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

func (h *CompanyHandler) UpdateMemberDesignation(c *gin.Context) {
	var req struct {
		Designation string `json:"designation" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Companies.UpdateMemberDesignation(c.Request.Context(), actorID(c), c.Param("memberId"), req.Designation); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Designation updated"})
}

func (h *CompanyHandler) RemoveMember(c *gin.Context) {
	if err := h.Companies.RemoveMember(c.Request.Context(), actorID(c), c.Param("memberId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
