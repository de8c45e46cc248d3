package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumikids/radiogen-backend/internal/services"
)

type HealthHandler struct {
	mixer services.MixingService
}

func NewHealthHandler(mixer services.MixingService) *HealthHandler {
	return &HealthHandler{mixer: mixer}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready additionally verifies the mixing backend is usable, so a deploy with
// a broken ffmpeg install fails its readiness probe instead of its first job.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.mixer != nil {
		if err := h.mixer.AssertReady(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, "mixer unavailable")
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
