package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skylink/internal/core/domain"
	"skylink/internal/core/ports"
	"skylink/internal/infrastructure/monitoring"
	apperrors "skylink/pkg/errors"
)

// ViewerHandler exposes the viewer service to the local operator UI.
type ViewerHandler struct {
	viewer ports.Viewer
	health *monitoring.HealthChecker
}

func NewViewerHandler(viewer ports.Viewer, health *monitoring.HealthChecker) *ViewerHandler {
	return &ViewerHandler{
		viewer: viewer,
		health: health,
	}
}

func (h *ViewerHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/config", h.GetConfig)
		api.PATCH("/config", h.PatchConfig)
		api.POST("/config/submit", h.SubmitConfig)

		api.GET("/status", h.GetStatus)
		api.POST("/pipeline/start", h.StartPipeline)
		api.POST("/pipeline/stop", h.StopPipeline)
		api.POST("/pipeline/restart", h.RestartPipeline)

		api.POST("/params", h.LiveUpdate)

		api.GET("/session", h.GetSession)
		api.POST("/session/connect", h.Connect)
		api.POST("/session/disconnect", h.Disconnect)
	}
}

func (h *ViewerHandler) Health(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *ViewerHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config":     h.viewer.Config(),
		"dirty":      h.viewer.Dirty(),
		"validation": h.viewer.Validation(),
	})
}

func (h *ViewerHandler) PatchConfig(c *gin.Context) {
	var patch domain.ConfigPatch
	if err := c.BindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	validation := h.viewer.Edit(c.Request.Context(), patch)

	c.JSON(http.StatusOK, gin.H{
		"config":     h.viewer.Config(),
		"dirty":      h.viewer.Dirty(),
		"validation": validation,
	})
}

func (h *ViewerHandler) SubmitConfig(c *gin.Context) {
	if err := h.viewer.Submit(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

func (h *ViewerHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.viewer.Status()})
}

func (h *ViewerHandler) StartPipeline(c *gin.Context) {
	if err := h.viewer.Start(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "starting"})
}

func (h *ViewerHandler) StopPipeline(c *gin.Context) {
	if err := h.viewer.Stop(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopping"})
}

func (h *ViewerHandler) RestartPipeline(c *gin.Context) {
	if err := h.viewer.Restart(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restarting"})
}

func (h *ViewerHandler) LiveUpdate(c *gin.Context) {
	var req struct {
		Property  string      `json:"property" binding:"required"`
		Value     interface{} `json:"value" binding:"required"`
		Immediate bool        `json:"immediate"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	if req.Immediate {
		err = h.viewer.LiveUpdateImmediate(req.Property, req.Value)
	} else {
		err = h.viewer.LiveUpdate(req.Property, req.Value)
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

func (h *ViewerHandler) GetSession(c *gin.Context) {
	resp := gin.H{"state": h.viewer.SessionState()}
	if snapshot, ok := h.viewer.LastSnapshot(); ok {
		resp["stats"] = snapshot
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ViewerHandler) Connect(c *gin.Context) {
	if err := h.viewer.Connect(c.Request.Context()); err != nil {
		if err == domain.ErrSessionActive {
			c.Error(apperrors.NewConflictError("a session is already active"))
			return
		}
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.viewer.SessionState()})
}

func (h *ViewerHandler) Disconnect(c *gin.Context) {
	h.viewer.Disconnect()
	c.JSON(http.StatusOK, gin.H{"state": h.viewer.SessionState()})
}
