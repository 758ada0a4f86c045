package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centrohq/centro/services"
)

type KanbanHandler struct {
	Kanban *services.KanbanService
}

func NewKanbanHandler(kanban *services.KanbanService) *KanbanHandler {
	return &KanbanHandler{Kanban: kanban}
}

func (h *KanbanHandler) CreateTask(c *gin.Context) {
	var req services.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.Kanban.CreateTask(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *KanbanHandler) ListForWorkspace(c *gin.Context) {
	tasks, err := h.Kanban.GetForWorkspace(c.Request.Context(), actorID(c), c.Param("workspaceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *KanbanHandler) UpdateTask(c *gin.Context) {
	var req services.UpdateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Kanban.UpdateTask(c.Request.Context(), actorID(c), c.Param("id"), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task updated"})
}

func (h *KanbanHandler) MoveTask(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Kanban.MoveTask(c.Request.Context(), actorID(c), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task moved"})
}

func (h *KanbanHandler) DeleteTask(c *gin.Context) {
	if err := h.Kanban.DeleteTask(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

func (h *KanbanHandler) AddComment(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, err := h.Kanban.AddComment(c.Request.Context(), actorID(c), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *KanbanHandler) Comments(c *gin.Context) {
	comments, err := h.Kanban.GetComments(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *KanbanHandler) Events(c *gin.Context) {
	events, err := h.Kanban.GetEvents(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
