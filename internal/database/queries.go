package database

import (
	"time"

	"scale-station/internal/models"

	"gorm.io/gorm"
)

// WeighingDetail is a weighing row joined with every display field the
// ticket renderer and the ERP payload need. Field names follow the
// column aliases of the join below.
type WeighingDetail struct {
	ID             uint       `json:"id"`
	Folio          string     `json:"folio"`
	WeighingType   string     `json:"weighing_type"`
	Status         string     `json:"status"`
	DateStart      time.Time  `json:"date_start"`
	DateEnd        *time.Time `json:"date_end"`
	GrossWeight    int        `json:"gross_weight"`
	TareWeight     int        `json:"tare_weight"`
	NetWeight      int        `json:"net_weight"`
	WeightOriginal int        `json:"weight_original"`
	FolioALM2      string     `json:"folio_alm2"`
	Notes          string     `json:"notes"`

	Plates       string `json:"plates"`
	VehicleName  string `json:"vehicle_name"`
	VehicleTara  int    `json:"vehicle_tara"`
	TrailerName  string `json:"trailer_name"`
	TrailerTara  int    `json:"trailer_tara"`
	DriverName   string `json:"driver_name"`
	CustomerName string `json:"customer_name"`
	MaterialName string `json:"material_name"`

	CustomerExternalID int64 `json:"customer_external_id"`
	VehicleExternalID  int64 `json:"vehicle_external_id"`
	TrailerExternalID  int64 `json:"trailer_external_id"`
	DriverExternalID   int64 `json:"driver_external_id"`
	MaterialExternalID int64 `json:"material_external_id"`

	CreatedByName string `json:"created_by_name"`
	ClosedByName  string `json:"closed_by_name"`

	ERPSyncStatus string `json:"erp_sync_status"`
	ERPExternalID *int64 `json:"erp_external_id"`
}

// DaysOpen reports how many whole days the folio has been open, the
// figure the ERP tracks per record.
func (d *WeighingDetail) DaysOpen() int {
	end := time.Now()
	if d.DateEnd != nil {
		end = *d.DateEnd
	}
	days := int(end.Sub(d.DateStart).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

const weighingDetailSelect = `
	weighing_records.id, weighing_records.folio, weighing_records.weighing_type,
	weighing_records.status, weighing_records.date_start, weighing_records.date_end,
	weighing_records.gross_weight, weighing_records.tare_weight, weighing_records.net_weight,
	weighing_records.weight_original, weighing_records.folio_alm2, weighing_records.notes,
	weighing_records.erp_sync_status, weighing_records.erp_external_id,
	v.plates AS plates,
	v.plates || '-' || v.vehicle_type AS vehicle_name,
	v.tara AS vehicle_tara,
	v.external_id AS vehicle_external_id,
	t.name AS trailer_name,
	t.tara AS trailer_tara,
	t.external_id AS trailer_external_id,
	d.name AS driver_name,
	d.external_id AS driver_external_id,
	c.name AS customer_name,
	c.external_id AS customer_external_id,
	m.name AS material_name,
	m.external_id AS material_external_id,
	u.username AS created_by_name,
	uc.username AS closed_by_name`

func weighingDetailQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&models.WeighingRecord{}).
		Select(weighingDetailSelect).
		Joins("LEFT JOIN vehicles v ON weighing_records.vehicle_id = v.id").
		Joins("LEFT JOIN trailers t ON weighing_records.trailer_id = t.id").
		Joins("LEFT JOIN drivers d ON weighing_records.driver_id = d.id").
		Joins("LEFT JOIN customers c ON weighing_records.customer_id = c.id").
		Joins("LEFT JOIN materials m ON weighing_records.material_id = m.id").
		Joins("LEFT JOIN users u ON weighing_records.created_by_id = u.id").
		Joins("LEFT JOIN users uc ON weighing_records.closed_by_id = uc.id")
}

// GetWeighingDetail loads one weighing with all joined display fields.
func GetWeighingDetail(db *gorm.DB, id uint) (*WeighingDetail, error) {
	var detail WeighingDetail
	err := weighingDetailQuery(db).Where("weighing_records.id = ?", id).Scan(&detail).Error
	if err != nil {
		return nil, err
	}
	if detail.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &detail, nil
}

// GetPendingWeighings lists open folios for the close screen. ALM2 twin
// rows (folio ending in "A") are hidden: they are closed through their
// primary record, never directly.
func GetPendingWeighings(db *gorm.DB) ([]WeighingDetail, error) {
	var details []WeighingDetail
	err := weighingDetailQuery(db).
		Where("weighing_records.status = ?", models.StatusPending).
		Where("weighing_records.folio NOT LIKE '%A'").
		Order("weighing_records.id DESC").
		Scan(&details).Error
	return details, err
}

// GetClosedWeighings lists closed folios for the history tab, newest first.
func GetClosedWeighings(db *gorm.DB, limit int) ([]WeighingDetail, error) {
	var details []WeighingDetail
	q := weighingDetailQuery(db).
		Where("weighing_records.status = ?", models.StatusClosed).
		Order("weighing_records.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(&details).Error
	return details, err
}
