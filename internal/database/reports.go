package database

import (
	"time"

	"scale-station/internal/models"

	"gorm.io/gorm"
)

// WeighingReportResult summarizes throughput for a date range.
type WeighingReportResult struct {
	TotalNetWeight int64
	TotalCount     int64
	OpenCount      int64
}

// GetWeighingReport totals closed weighings within a date range.
func GetWeighingReport(db *gorm.DB, start, end time.Time) (*WeighingReportResult, error) {
	var result WeighingReportResult

	// COALESCE ensures we get 0 instead of NULL if no weighings exist
	err := db.Model(&models.WeighingRecord{}).
		Where("status = ? AND date_end BETWEEN ? AND ?", models.StatusClosed, start, end).
		Select("COALESCE(SUM(net_weight), 0)").
		Scan(&result.TotalNetWeight).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.WeighingRecord{}).
		Where("status = ? AND date_end BETWEEN ? AND ?", models.StatusClosed, start, end).
		Count(&result.TotalCount).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.WeighingRecord{}).
		Where("status = ?", models.StatusPending).
		Count(&result.OpenCount).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// MaterialTotal is one row of the per-material breakdown.
type MaterialTotal struct {
	MaterialName string `json:"material_name"`
	Trips        int64  `json:"trips"`
	NetWeight    int64  `json:"net_weight"`
}

// GetMaterialTotals groups closed weighings by material, heaviest first.
func GetMaterialTotals(db *gorm.DB, start, end time.Time) ([]MaterialTotal, error) {
	var totals []MaterialTotal
	err := db.Table("weighing_records").
		Select("m.name AS material_name, COUNT(*) AS trips, COALESCE(SUM(weighing_records.net_weight), 0) AS net_weight").
		Joins("JOIN materials m ON weighing_records.material_id = m.id").
		Where("weighing_records.status = ? AND weighing_records.date_end BETWEEN ? AND ?", models.StatusClosed, start, end).
		Group("m.name").
		Order("net_weight DESC").
		Scan(&totals).Error
	return totals, err
}

// CustomerTotal is one row of the per-customer breakdown.
type CustomerTotal struct {
	CustomerName string `json:"customer_name"`
	Trips        int64  `json:"trips"`
	NetWeight    int64  `json:"net_weight"`
}

// GetCustomerTotals groups closed weighings by customer, heaviest first.
func GetCustomerTotals(db *gorm.DB, start, end time.Time) ([]CustomerTotal, error) {
	var totals []CustomerTotal
	err := db.Table("weighing_records").
		Select("c.name AS customer_name, COUNT(*) AS trips, COALESCE(SUM(weighing_records.net_weight), 0) AS net_weight").
		Joins("JOIN customers c ON weighing_records.customer_id = c.id").
		Where("weighing_records.status = ? AND weighing_records.date_end BETWEEN ? AND ?", models.StatusClosed, start, end).
		Group("c.name").
		Order("net_weight DESC").
		Scan(&totals).Error
	return totals, err
}
