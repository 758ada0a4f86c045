package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centrohq/centro/services"
)

type APIKeyHandler struct {
	APIKeys *services.APIKeyService
}

func NewAPIKeyHandler(apiKeys *services.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{APIKeys: apiKeys}
}

// Create mints a key and returns the plaintext token exactly once.
func (h *APIKeyHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.APIKeys.Create(c.Request.Context(), actorID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.APIKeys.List(c.Request.Context(), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

func (h *APIKeyHandler) Revoke(c *gin.Context) {
	if err := h.APIKeys.Revoke(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}
