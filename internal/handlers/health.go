package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var errNotConfigured = errors.New("not configured")

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	resp := healthResponse{Status: "ok", Database: "ok", Cache: "ok", Environment: h.cfg.Environment}

	if err := h.pingDatabase(ctx); err != nil {
		resp.Database = "error"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
		h.log.Error().Err(err).Msg("database ping failed")
	}

	if err := h.pingCache(ctx); err != nil {
		resp.Cache = "error"
		resp.Status = "degraded"
		h.log.Error().Err(err).Msg("redis ping failed")
	}

	c.JSON(status, resp)
}

func (h HandlerSet) pingDatabase(ctx context.Context) error {
	if h.db == nil {
		return errNotConfigured
	}
	return h.db.Ping(ctx)
}

func (h HandlerSet) pingCache(ctx context.Context) error {
	if h.cache == nil {
		return errNotConfigured
	}
	return h.cache.Ping(ctx).Err()
}
