package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centrohq/centro/services"
)

type FinanceHandler struct {
	Finance *services.FinanceService
}

func NewFinanceHandler(finance *services.FinanceService) *FinanceHandler {
	return &FinanceHandler{Finance: finance}
}

func (h *FinanceHandler) LogTransaction(c *gin.Context) {
	var req services.LogTransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	txn, err := h.Finance.LogTransaction(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (h *FinanceHandler) Transactions(c *gin.Context) {
	txns, err := h.Finance.ListTransactions(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *FinanceHandler) UpdateTransactionStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required,oneof=pending approved rejected"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Finance.UpdateTransactionStatus(c.Request.Context(), actorID(c), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

func (h *FinanceHandler) DeleteTransaction(c *gin.Context) {
	if err := h.Finance.DeleteTransaction(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

func (h *FinanceHandler) Summary(c *gin.Context) {
	summary, err := h.Finance.GetSummary(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *FinanceHandler) BudgetOverview(c *gin.Context) {
	budgets, err := h.Finance.GetBudgetOverview(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budgets)
}

func (h *FinanceHandler) SetWorkspaceBudget(c *gin.Context) {
	var req struct {
		Budget *float64 `json:"budget"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Finance.SetWorkspaceBudget(c.Request.Context(), actorID(c), c.Param("workspaceId"), req.Budget); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Budget updated"})
}

func (h *FinanceHandler) CreateRetainer(c *gin.Context) {
	var req services.CreateRetainerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	retainer, err := h.Finance.CreateRetainer(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, retainer)
}

func (h *FinanceHandler) Retainers(c *gin.Context) {
	retainers, err := h.Finance.ListRetainers(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, retainers)
}

func (h *FinanceHandler) UpdateRetainerUsage(c *gin.Context) {
	var req struct {
		UsedBudget *float64 `json:"used_budget" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Finance.UpdateRetainerUsage(c.Request.Context(), actorID(c), c.Param("id"), *req.UsedBudget); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Retainer updated"})
}

func (h *FinanceHandler) CreateInvoice(c *gin.Context) {
	var req services.CreateInvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invoice, err := h.Finance.CreateInvoice(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *FinanceHandler) Invoices(c *gin.Context) {
	invoices, err := h.Finance.ListInvoices(c.Request.Context(), actorID(c), c.Param("companyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *FinanceHandler) UpdateInvoiceStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required,oneof=draft sent paid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Finance.UpdateInvoiceStatus(c.Request.Context(), actorID(c), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice updated"})
}
