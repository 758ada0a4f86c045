package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centrohq/centro/services"
)

type SearchHandler struct {
	Searches *services.SearchService
}

func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{Searches: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	results, err := h.Searches.Search(c.Request.Context(), actorID(c), c.Param("companyId"), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
