package ops

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lookout/internal/broker"
	"lookout/internal/constants"
	"lookout/internal/dedup"
	"lookout/internal/ledger"
	"lookout/internal/logger"
	"lookout/internal/pipeline"
	"lookout/pkg/errors"
	"lookout/pkg/models"
)

// Handler exposes the operational read API: recent ledger records, pipeline
// stats and the eligible-category set. Category updates are applied locally
// and, when a broker is wired, announced on the config update topic so other
// instances converge too.
type Handler struct {
	ledger            ledger.Ledger
	dedup             *dedup.Service
	filter            *pipeline.Filter
	producer          broker.Producer
	configUpdateTopic string
	recentLimit       int
	logger            logger.Logger
}

// NewHandler builds the ops handler. recentLimit is the configured default
// and ceiling for the records listing; non-positive values fall back to the
// built-in default.
func NewHandler(led ledger.Ledger, dedupSvc *dedup.Service, filter *pipeline.Filter, recentLimit int, log logger.Logger) *Handler {
	if recentLimit <= 0 {
		recentLimit = constants.DefaultLimit
	}
	if recentLimit > constants.MaxLimit {
		recentLimit = constants.MaxLimit
	}
	return &Handler{
		ledger:      led,
		dedup:       dedupSvc,
		filter:      filter,
		recentLimit: recentLimit,
		logger:      log,
	}
}

func (h *Handler) WithProducer(producer broker.Producer, topic string) *Handler {
	h.producer = producer
	h.configUpdateTopic = topic
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/records", h.ListRecords)
		v1.GET("/stats", h.GetStats)
		v1.GET("/categories", h.GetCategories)
		v1.PUT("/categories", h.UpdateCategories)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

func (h *Handler) ListRecords(c *gin.Context) {
	limit := h.parseLimit(c.Query("limit"))

	records, err := h.ledger.RecentRecords(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if records == nil {
		records = []models.ProcessedRecord{}
	}
	c.JSON(http.StatusOK, records)
}

type statsResponse struct {
	Ledger    ledger.Stats `json:"ledger"`
	CacheSize int          `json:"cache_size"`
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.ledger.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, statsResponse{
		Ledger:    stats,
		CacheSize: h.dedup.CacheSize(),
	})
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

func (h *Handler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, categoriesResponse{Categories: h.filter.Categories()})
}

type updateCategoriesRequest struct {
	Categories []string `json:"categories" binding:"required,min=1"`
}

func (h *Handler) UpdateCategories(c *gin.Context) {
	var req updateCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	h.filter.UpdateCategories(req.Categories)

	if h.producer != nil && h.configUpdateTopic != "" {
		event := models.ConfigUpdateEvent{
			EventType:  models.EventTypeCategoriesUpdated,
			Action:     models.ActionUpdate,
			Categories: req.Categories,
			Timestamp:  time.Now(),
			ChangedBy:  c.ClientIP(),
		}
		if err := h.producer.Publish(c.Request.Context(), h.configUpdateTopic, models.EventTypeCategoriesUpdated, event); err != nil {
			h.logger.ErrorwCtx(c.Request.Context(), "Failed to announce category update",
				"error", err,
			)
		}
	}

	c.JSON(http.StatusOK, categoriesResponse{Categories: req.Categories})
}

func (h *Handler) parseLimit(limitStr string) int {
	if limitStr == "" {
		return h.recentLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > h.recentLimit {
		return h.recentLimit
	}
	return parsed
}
