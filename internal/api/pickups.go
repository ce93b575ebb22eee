package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recyclehub/server/internal/models"
	"recyclehub/server/internal/pickups"
)

type ClaimRequestBody struct {
	RecyclerID string `json:"recyclerId" binding:"required"`
	Message    string `json:"message"`
}

type StatusUpdateBody struct {
	Status     models.PickupStatus `json:"status" binding:"required"`
	RecyclerID string              `json:"recyclerId"`
}

func (h *Handler) CreatePickup(c *gin.Context) {
	var req pickups.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	pickup, err := h.pickups.CreatePickup(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Failed to create pickup")
		return
	}
	c.JSON(http.StatusCreated, pickup)
}

func (h *Handler) GetPickup(c *gin.Context) {
	pickup, err := h.pickups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get pickup")
		return
	}
	c.JSON(http.StatusOK, pickup)
}

func (h *Handler) RequestClaim(c *gin.Context) {
	var body ClaimRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	pickup, err := h.pickups.RequestClaim(c.Request.Context(), c.Param("id"), body.RecyclerID, body.Message)
	if err != nil {
		h.respondError(c, err, "Failed to request claim")
		return
	}
	c.JSON(http.StatusCreated, pickup)
}

func (h *Handler) UpdatePickupStatus(c *gin.Context) {
	var body StatusUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	pickup, err := h.pickups.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status, body.RecyclerID)
	if err != nil {
		h.respondError(c, err, "Failed to update pickup status")
		return
	}
	c.JSON(http.StatusOK, pickup)
}
