package management

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"herald/internal/constants"
	"herald/internal/logger"
	"herald/pkg/errors"
)

// ChangedByHeader names the caller for the audit trail.
const ChangedByHeader = "X-User-ID"

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		publishers := v1.Group("/publishers")
		{
			publishers.GET("", h.ListPublishers)
			publishers.POST("", h.CreatePublisher)
			publishers.GET("/:id", h.GetPublisher)
			publishers.PUT("/:id", h.UpdatePublisher)
			publishers.DELETE("/:id", h.DeletePublisher)
			publishers.GET("/:id/audit", h.GetPublisherAuditLogs)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/logs", h.GetAuditLogs)
		}
	}
}

// ListPublishers godoc
// @Summary      List publishers
// @Description  Get a page of publishers with secrets masked
// @Tags         publishers
// @Produce      json
// @Param        skip   query     int  false  "Records to skip"
// @Param        limit  query     int  false  "Page size (max 1000)"
// @Success      200    {object}  ListPublishersResponse
// @Failure      500    {object}  map[string]interface{}
// @Router       /publishers [get]
func (h *Handler) ListPublishers(c *gin.Context) {
	skip := queryInt(c, "skip", 0)
	limit := queryInt(c, "limit", constants.DefaultLimit)

	resp, err := h.Service.ListPublishers(c.Request.Context(), skip, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreatePublisher godoc
// @Summary      Create a publisher
// @Description  Validate and store a new publisher
// @Tags         publishers
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header    string                  false  "Caller recorded in the audit log"
// @Param        publisher  body      CreatePublisherRequest  true   "Publisher data"
// @Success      201        {object}  publisher.Publisher
// @Failure      400        {object}  map[string]interface{}
// @Failure      409        {object}  map[string]interface{}
// @Failure      500        {object}  map[string]interface{}
// @Router       /publishers [post]
func (h *Handler) CreatePublisher(c *gin.Context) {
	var req CreatePublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	p, err := h.Service.CreatePublisher(WithChangedBy(c.Request.Context(), c.GetHeader(ChangedByHeader)), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// GetPublisher godoc
// @Summary      Get a publisher by ID
// @Tags         publishers
// @Produce      json
// @Param        id   path      string  true  "Publisher ID"
// @Success      200  {object}  publisher.Publisher
// @Failure      404  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /publishers/{id} [get]
func (h *Handler) GetPublisher(c *gin.Context) {
	p, err := h.Service.GetPublisher(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdatePublisher godoc
// @Summary      Update a publisher
// @Description  Replace the sections present in the body; masked secrets keep their stored value
// @Tags         publishers
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header    string                  false  "Caller recorded in the audit log"
// @Param        id         path      string                  true   "Publisher ID"
// @Param        publisher  body      UpdatePublisherRequest  true   "Sections to replace"
// @Success      200        {object}  publisher.Publisher
// @Failure      400        {object}  map[string]interface{}
// @Failure      404        {object}  map[string]interface{}
// @Failure      500        {object}  map[string]interface{}
// @Router       /publishers/{id} [put]
func (h *Handler) UpdatePublisher(c *gin.Context) {
	var req UpdatePublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	ctx := WithChangedBy(c.Request.Context(), c.GetHeader(ChangedByHeader))
	p, err := h.Service.UpdatePublisher(ctx, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePublisher godoc
// @Summary      Delete a publisher
// @Tags         publishers
// @Param        X-User-ID  header  string  false  "Caller recorded in the audit log"
// @Param        id         path    string  true   "Publisher ID"
// @Success      204
// @Failure      404  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /publishers/{id} [delete]
func (h *Handler) DeletePublisher(c *gin.Context) {
	ctx := WithChangedBy(c.Request.Context(), c.GetHeader(ChangedByHeader))
	if err := h.Service.DeletePublisher(ctx, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPublisherAuditLogs godoc
// @Summary      Audit trail of a publisher
// @Tags         audit
// @Produce      json
// @Param        id     path      string  true   "Publisher ID"
// @Param        limit  query     int     false  "Maximum entries"
// @Success      200    {array}   AuditLog
// @Failure      500    {object}  map[string]interface{}
// @Router       /publishers/{id}/audit [get]
func (h *Handler) GetPublisherAuditLogs(c *gin.Context) {
	h.auditLogs(c, c.Param("id"))
}

// GetAuditLogs godoc
// @Summary      Audit trail across publishers
// @Tags         audit
// @Produce      json
// @Param        publisher_id  query     string  false  "Filter by publisher ID"
// @Param        limit         query     int     false  "Maximum entries"
// @Success      200           {array}   AuditLog
// @Failure      500           {object}  map[string]interface{}
// @Router       /audit/logs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	h.auditLogs(c, c.Query("publisher_id"))
}

func (h *Handler) auditLogs(c *gin.Context, publisherID string) {
	limit := queryInt(c, "limit", constants.DefaultLimit)
	logs, err := h.Service.GetAuditLogs(c.Request.Context(), publisherID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
