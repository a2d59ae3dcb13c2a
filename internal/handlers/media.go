package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drravalement/site/internal/api"
	"drravalement/site/internal/apperr"
	"drravalement/site/internal/media/sniffer"
	"drravalement/site/internal/service"
)

func (h HandlerSet) mediaAvailable(c *gin.Context) bool {
	if h.mediaService == nil {
		apperr.Respond(c, apperr.ErrServiceUnavailable.WithMessage("Media storage is not configured"))
		return false
	}
	return true
}

func (h HandlerSet) UploadMedia(c *gin.Context) {
	if !h.mediaAvailable(c) {
		return
	}
	user := currentUser(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		apperr.Respond(c, apperr.ErrValidation.WithMessage("file is required"))
		return
	}
	defer file.Close()

	item, err := h.mediaService.Upload(c.Request.Context(), service.UploadInput{
		UploadedBy:   user.ID,
		Filename:     header.Filename,
		DeclaredMIME: sniffer.DeclaredMIME(http.Header(header.Header)),
		AltText:      c.PostForm("altText"),
		Body:         file,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID).Msg("upload failed")
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"media": api.FromMedia(item.Media, item.URL)})
}

func (h HandlerSet) ListMedia(c *gin.Context) {
	if !h.mediaAvailable(c) {
		return
	}
	limit, offset := pagination(c)
	items, err := h.mediaService.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]api.Media, 0, len(items))
	for _, item := range items {
		resp = append(resp, api.FromMedia(item.Media, item.URL))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (h HandlerSet) DeleteMedia(c *gin.Context) {
	if !h.mediaAvailable(c) {
		return
	}
	if err := h.mediaService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
