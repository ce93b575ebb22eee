package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *Handler) ListMarketPrices(c *gin.Context) {
	records, err := h.engine.PriceRecords(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list market prices")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) GetMarketPrice(c *gin.Context) {
	record, err := h.engine.PriceRecord(c.Request.Context(), c.Param("materialId"))
	if err != nil {
		h.respondError(c, err, "Failed to get market price")
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) QuotePrice(c *gin.Context) {
	materialID := c.Param("materialId")
	price, err := h.engine.QuotePrice(c.Request.Context(), materialID)
	if err != nil {
		h.respondError(c, err, "Failed to quote price")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"materialId": materialID,
		"price":      price,
	})
}

// RecomputePrice commits a fresh price for one material and returns its record.
func (h *Handler) RecomputePrice(c *gin.Context) {
	ctx := c.Request.Context()
	materialID := c.Param("materialId")

	price, err := h.engine.ComputeAndCommitPrice(ctx, materialID)
	if err != nil {
		h.respondError(c, err, "Failed to recompute price")
		return
	}
	h.logger.WithFields(logrus.Fields{
		"material_id": materialID,
		"new_price":   price,
	}).Info("Price recomputed on request")

	record, err := h.engine.PriceRecord(ctx, materialID)
	if err != nil {
		h.respondError(c, err, "Failed to get market price")
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) RecomputeAllPrices(c *gin.Context) {
	result, err := h.batch.RunOnce(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to recompute prices")
		return
	}
	c.JSON(http.StatusOK, result)
}
