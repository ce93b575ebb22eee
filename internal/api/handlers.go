package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"recyclehub/server/internal/catalog"
	"recyclehub/server/internal/models"
	"recyclehub/server/internal/pickups"
	"recyclehub/server/internal/pricing"
	"recyclehub/server/internal/processor"
	"recyclehub/server/internal/scheduler"
)

type PriceEngine interface {
	PriceRecords(ctx context.Context) ([]models.MarketPriceRecord, error)
	PriceRecord(ctx context.Context, materialID string) (*models.MarketPriceRecord, error)
	QuotePrice(ctx context.Context, materialID string) (float64, error)
	ComputeAndCommitPrice(ctx context.Context, materialID string) (float64, error)
}

type BatchRunner interface {
	RunOnce(ctx context.Context) (*scheduler.BatchResult, error)
}

type EventStats interface {
	Stats() processor.Stats
}

// Services are the components the HTTP handlers delegate to. Events may be nil.
type Services struct {
	Catalog *catalog.Service
	Pickups *pickups.Service
	Engine  PriceEngine
	Batch   BatchRunner
	Events  EventStats
}

type Handler struct {
	catalog *catalog.Service
	pickups *pickups.Service
	engine  PriceEngine
	batch   BatchRunner
	events  EventStats
	logger  *logrus.Logger
}

func NewHandler(svc Services, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		catalog: svc.Catalog,
		pickups: svc.Pickups,
		engine:  svc.Engine,
		batch:   svc.Batch,
		events:  svc.Events,
		logger:  logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.events != nil {
		resp["events"] = h.events.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

// respondError maps domain errors to status codes. Client errors echo the
// error text; server errors reply with msg only.
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidMaterial), errors.Is(err, models.ErrInvalidPickup):
		status = http.StatusBadRequest
	case errors.Is(err, pickups.ErrInvalidTransition),
		errors.Is(err, pickups.ErrDuplicateClaim),
		errors.Is(err, models.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, pricing.ErrRetriesExhausted):
		status = http.StatusServiceUnavailable
	}

	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error(msg)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	entry.Warn(msg)
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.WithError(err).Warn("Invalid request body")
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
}
