package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centrohq/centro/services"
)

type AssetHandler struct {
	Assets *services.AssetService
}

func NewAssetHandler(assets *services.AssetService) *AssetHandler {
	return &AssetHandler{Assets: assets}
}

func (h *AssetHandler) GenerateUploadURL(c *gin.Context) {
	var req struct {
		CompanyID   string `json:"company_id" binding:"required"`
		FileName    string `json:"file_name" binding:"required"`
		ContentType string `json:"content_type,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Assets.GenerateUploadURL(c.Request.Context(), actorID(c), req.CompanyID, req.FileName, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AssetHandler) Register(c *gin.Context) {
	var req services.RegisterAssetInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	asset, err := h.Assets.Register(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

func (h *AssetHandler) ListForCompany(c *gin.Context) {
	assets, err := h.Assets.ListForCompany(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (h *AssetHandler) ListForWorkspace(c *gin.Context) {
	assets, err := h.Assets.ListForWorkspace(c.Request.Context(), actorID(c), c.Param("workspaceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (h *AssetHandler) SetRestricted(c *gin.Context) {
	var req struct {
		Restricted *bool `json:"restricted" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Assets.SetRestricted(c.Request.Context(), actorID(c), c.Param("id"), *req.Restricted); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Visibility updated"})
}

func (h *AssetHandler) Delete(c *gin.Context) {
	if err := h.Assets.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset deleted"})
}

func (h *AssetHandler) Events(c *gin.Context) {
	events, err := h.Assets.GetEvents(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
