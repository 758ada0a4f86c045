package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/centrohq/centro/services"
)

type ChatHandler struct {
	Chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{Chat: chat}
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req services.SendMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.Chat.Send(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// List reads the channel selector from query params: workspace_id empty or
// absent selects the company-wide channel.
func (h *ChatHandler) List(c *gin.Context) {
	var workspaceID *string
	if ws := c.Query("workspace_id"); ws != "" {
		workspaceID = &ws
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.Chat.List(c.Request.Context(), actorID(c), c.Param("companyId"), workspaceID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
