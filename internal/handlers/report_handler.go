package handlers

import (
	"net/http"
	"time"

	"scale-station/internal/database"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReportHandler serves throughput summaries over closed weighings.
type ReportHandler struct {
	DB *gorm.DB
}

// parseRange reads ?start=YYYY-MM-DD&end=YYYY-MM-DD, defaulting to the
// current day. The end date is inclusive.
func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	layout := "2006-01-02"
	now := time.Now()

	start, err := time.Parse(layout, c.DefaultQuery("start", now.Format(layout)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date, use YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(layout, c.DefaultQuery("end", now.Format(layout)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date, use YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return start, end.Add(24*time.Hour - time.Second), true
}

// GetSummary totals net weight and trip counts for the range.
func (h *ReportHandler) GetSummary(c *gin.Context) {
	start, end, ok := parseRange(c)
	if !ok {
		return
	}
	report, err := database.GetWeighingReport(h.DB, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"start":            start.Format("2006-01-02"),
		"end":              end.Format("2006-01-02"),
		"total_net_weight": report.TotalNetWeight,
		"total_count":      report.TotalCount,
		"open_count":       report.OpenCount,
	})
}

// GetMaterialTotals breaks the range down per material.
func (h *ReportHandler) GetMaterialTotals(c *gin.Context) {
	start, end, ok := parseRange(c)
	if !ok {
		return
	}
	totals, err := database.GetMaterialTotals(h.DB, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report"})
		return
	}
	c.JSON(http.StatusOK, totals)
}

// GetCustomerTotals breaks the range down per customer.
func (h *ReportHandler) GetCustomerTotals(c *gin.Context) {
	start, end, ok := parseRange(c)
	if !ok {
		return
	}
	totals, err := database.GetCustomerTotals(h.DB, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report"})
		return
	}
	c.JSON(http.StatusOK, totals)
}
