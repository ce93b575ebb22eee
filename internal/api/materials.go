package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recyclehub/server/internal/catalog"
	"recyclehub/server/internal/models"
)

type ImpactRequest struct {
	Items []catalog.ImpactItem `json:"items" binding:"required,dive"`
}

func (h *Handler) ListMaterials(c *gin.Context) {
	materials, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list materials")
		return
	}
	c.JSON(http.StatusOK, materials)
}

func (h *Handler) GetMaterial(c *gin.Context) {
	material, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get material")
		return
	}
	c.JSON(http.StatusOK, material)
}

func (h *Handler) CreateMaterial(c *gin.Context) {
	var material models.Material
	if err := c.ShouldBindJSON(&material); err != nil {
		h.badRequest(c, err)
		return
	}
	material.ID = ""

	if err := h.catalog.Create(c.Request.Context(), &material); err != nil {
		h.respondError(c, err, "Failed to create material")
		return
	}
	c.JSON(http.StatusCreated, material)
}

// UpdateMaterial replaces the editable fields. The price per kg in the body is
// ignored; the pricing engine owns it.
func (h *Handler) UpdateMaterial(c *gin.Context) {
	var material models.Material
	if err := c.ShouldBindJSON(&material); err != nil {
		h.badRequest(c, err)
		return
	}
	material.ID = c.Param("id")

	if err := h.catalog.Update(c.Request.Context(), &material); err != nil {
		h.respondError(c, err, "Failed to update material")
		return
	}
	c.JSON(http.StatusOK, material)
}

func (h *Handler) DeleteMaterial(c *gin.Context) {
	if err := h.catalog.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete material")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Material deactivated"})
}

func (h *Handler) CalculateImpact(c *gin.Context) {
	var req ImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	summary, err := h.catalog.CalculateImpact(c.Request.Context(), req.Items)
	if err != nil {
		h.respondError(c, err, "Failed to calculate impact")
		return
	}
	c.JSON(http.StatusOK, summary)
}
