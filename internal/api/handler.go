// Package api exposes the operational and callback HTTP surface of the
// dispatch service.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"herald/internal/logger"
	"herald/pkg/errors"
	"herald/pkg/health"
	"herald/pkg/models"
)

// ModuleResultCallback is the entry point the module-result write path calls.
type ModuleResultCallback interface {
	OnModuleResultBatch(ctx context.Context, refs []models.PrimitiveRef, moduleID, deviceName, moduleConfigID, deploymentID string) error
}

// Pinger starts a liveness check. It returns once the publisher is known;
// the check itself runs detached from the request.
type Pinger interface {
	PingAsync(ctx context.Context, publisherID string) error
}

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
	callback ModuleResultCallback
	pinger   Pinger
	health   *health.CheckerRegistry
}

func NewHandler(callback ModuleResultCallback, pinger Pinger, checks *health.CheckerRegistry, log logger.Logger) *Handler {
	if checks == nil {
		checks = health.NewCheckerRegistry()
	}
	return &Handler{
		BaseHandler: BaseHandler{Logger: log},
		callback:    callback,
		pinger:      pinger,
		health:      checks,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/callbacks/module-results", h.ModuleResults)
		v1.POST("/publishers/:id/ping", h.PingPublisher)
	}
}

func (h *Handler) Health(c *gin.Context) {
	result := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

// ModuleResultsRequest mirrors the dispatch task wire shape.
type ModuleResultsRequest struct {
	Primitives     []models.PrimitiveRef `json:"primitiveData" binding:"required,min=1,dive"`
	ModuleID       string                `json:"moduleId" binding:"required"`
	DeviceName     string                `json:"deviceName"`
	ModuleConfigID string                `json:"moduleConfigId"`
	DeploymentID   string                `json:"deploymentId" binding:"required"`
}

func (h *Handler) ModuleResults(c *gin.Context) {
	var req ModuleResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err).WithMessage(err.Error()))
		return
	}

	err := h.callback.OnModuleResultBatch(c.Request.Context(), req.Primitives,
		req.ModuleID, req.DeviceName, req.ModuleConfigID, req.DeploymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// PingPublisher starts a liveness check to one publisher. Delivery failures
// are reported through the failure sink, not the response.
func (h *Handler) PingPublisher(c *gin.Context) {
	if err := h.pinger.PingAsync(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "ping started"})
}
