package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drravalement/site/internal/api"
	"drravalement/site/internal/apperr"
	"drravalement/site/internal/models"
	"drravalement/site/internal/service"
)

func (h HandlerSet) SubmitQuote(c *gin.Context) {
	var req api.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.ErrValidation.WithMessage("name, email, phone and service are required"))
		return
	}

	quote, err := h.quoteService.Submit(c.Request.Context(), service.QuoteInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Service:   req.Service,
		SurfaceM2: req.SurfaceM2,
		Message:   req.Message,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": quote.ID, "status": quote.Status})
}

func (h HandlerSet) ListQuotes(c *gin.Context) {
	limit, offset := pagination(c)
	quotes, err := h.quoteService.List(c.Request.Context(), models.QuoteStatus(c.Query("status")), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]api.Quote, 0, len(quotes))
	for _, q := range quotes {
		items = append(items, api.FromQuote(q))
	}
	c.JSON(http.StatusOK, api.QuoteList{Items: items})
}

func (h HandlerSet) UpdateQuoteStatus(c *gin.Context) {
	var req api.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.ErrValidation.WithMessage("status is required"))
		return
	}
	quote, err := h.quoteService.UpdateStatus(c.Request.Context(), c.Param("id"), models.QuoteStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": api.FromQuote(quote)})
}

func (h HandlerSet) DeleteQuote(c *gin.Context) {
	if err := h.quoteService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
