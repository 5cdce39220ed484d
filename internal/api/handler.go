package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/events"
	"storefront-service/internal/models"
	"storefront-service/internal/session"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	sessions *session.Manager
	catalog  *models.Catalog
}

// NewHandler creates a new HTTP handler
func NewHandler(sessions *session.Manager, catalog *models.Catalog) *Handler {
	return &Handler{
		sessions: sessions,
		catalog:  catalog,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sessions", h.createSession)
		v1.GET("/sessions/:id/view", h.getView)
		v1.POST("/sessions/:id/events", h.dispatchEvent)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the catalog has been populated
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.catalog.Len() == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "catalog unavailable",
			"time":   time.Now().Unix(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createSession opens a new storefront session
func (h *Handler) createSession(c *gin.Context) {
	s := h.sessions.Create()

	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.ID,
		"view":       s.View.Snapshot(),
	})
}

// getView returns the session's current render state
func (h *Handler) getView(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found",
		})
		return
	}

	c.JSON(http.StatusOK, s.View.Snapshot())
}

// EventRequest is a named event with its structural payload.
type EventRequest struct {
	Name    string          `json:"name" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// dispatchEvent decodes an event through the closed vocabulary and delivers
// it to the session's flow controller
func (h *Handler) dispatchEvent(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found",
		})
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	payload, err := events.DecodePayload(req.Name, req.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid event",
			"details": err.Error(),
		})
		return
	}

	s.Flow.Dispatch(req.Name, payload)

	c.JSON(http.StatusOK, s.View.Snapshot())
}

// listProducts returns the current catalog
func (h *Handler) listProducts(c *gin.Context) {
	products := h.catalog.List()
	c.JSON(http.StatusOK, gin.H{
		"items": products,
		"total": len(products),
	})
}

// getProduct returns a single product by id
func (h *Handler) getProduct(c *gin.Context) {
	product, ok := h.catalog.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}

	c.JSON(http.StatusOK, product)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
