package handlers

import (
	"net/http"

	"scale-station/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CatalogHandler serves the reference-data lists the registration form
// autocompletes from. Only active rows are offered; an optional ?q=
// filters by the display column.
type CatalogHandler struct {
	DB *gorm.DB
}

func (h *CatalogHandler) list(c *gin.Context, dest any, searchColumn string) {
	q := h.DB.Where("active = ?", true)
	if term := c.Query("q"); term != "" {
		q = q.Where(searchColumn+" LIKE ?", "%"+term+"%")
	}
	if err := q.Order(searchColumn + " ASC").Find(dest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
		return
	}
	c.JSON(http.StatusOK, dest)
}

func (h *CatalogHandler) GetCustomers(c *gin.Context) {
	var rows []models.Customer
	h.list(c, &rows, "name")
}

func (h *CatalogHandler) GetVehicles(c *gin.Context) {
	var rows []models.Vehicle
	h.list(c, &rows, "plates")
}

func (h *CatalogHandler) GetTrailers(c *gin.Context) {
	var rows []models.Trailer
	h.list(c, &rows, "name")
}

func (h *CatalogHandler) GetDrivers(c *gin.Context) {
	var rows []models.Driver
	h.list(c, &rows, "name")
}

func (h *CatalogHandler) GetMaterials(c *gin.Context) {
	var rows []models.Material
	h.list(c, &rows, "name")
}
