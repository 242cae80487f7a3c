package models

import (
	"time"
)

// Weighing lifecycle enums. Records move Pending -> Closed exactly once.
const (
	WeighingTypeEntry          = "Entry"
	WeighingTypeExit           = "Exit"
	WeighingTypeExitWithWeight = "ExitWithWeight"

	StatusPending = "Pending"
	StatusClosed  = "Closed"

	SyncStatusNotSynced  = "NotSynced"
	SyncStatusSynced     = "Synced"
	SyncStatusSyncFailed = "SyncFailed"
)

// User - The operator logging into the station
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'admin', 'operator'
	Active       bool      `gorm:"default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Customer - Who the weighed material is billed to.
// DiscountPercent and ALM2TargetID drive the ALM2 split: when the
// discount is positive and the material is discount-eligible, the
// discounted remainder is billed to the ALM2 target account.
type Customer struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	ExternalID      int64  `gorm:"uniqueIndex" json:"external_id"`
	Name            string `json:"name"`
	CompanyName     string `json:"company_name"`
	DiscountPercent int    `json:"discount_percent"` // 0-99
	ALM2TargetID    int64  `json:"alm2_target_id"`   // external id of the ALM2 customer account
	Active          bool   `gorm:"default:true" json:"active"`
}

// Vehicle - The truck crossing the scale. Tara is the static empty
// weight used by the "close with known tara" path.
type Vehicle struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ExternalID  int64  `gorm:"uniqueIndex" json:"external_id"`
	Plates      string `gorm:"uniqueIndex;size:20" json:"plates"`
	VehicleType string `json:"vehicle_type"`
	Tara        int    `json:"tara"`
	Active      bool   `gorm:"default:true" json:"active"`
}

// Trailer - Towed equipment with its own static tara.
type Trailer struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ExternalID int64  `gorm:"uniqueIndex" json:"external_id"`
	Name       string `gorm:"uniqueIndex" json:"name"`
	Category   string `json:"category"`
	Tara       int    `json:"tara"`
	Active     bool   `gorm:"default:true" json:"active"`
}

// Driver
type Driver struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ExternalID    int64  `gorm:"uniqueIndex" json:"external_id"`
	Name          string `json:"name"`
	LicenseNumber string `json:"license_number"`
	Active        bool   `gorm:"default:true" json:"active"`
}

// Material - What is being weighed. DiscountEligible mirrors the ERP
// "spd" flag; both it and a positive customer discount are required
// before any ALM2 split happens.
type Material struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	ExternalID       int64  `gorm:"uniqueIndex" json:"external_id"`
	Name             string `gorm:"uniqueIndex" json:"name"`
	Unit             string `json:"unit"`
	Category         string `json:"category"`
	DiscountEligible bool   `json:"discount_eligible"`
	Active           bool   `gorm:"default:true" json:"active"`
}

// WeighingRecord - The central entity. One ticket (folio) per record.
// A discount split produces a twin record whose folio is "{folio}A";
// the primary keeps the undiscounted gross in WeightOriginal.
type WeighingRecord struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Folio          string     `gorm:"uniqueIndex;size:10" json:"folio"`
	WeighingType   string     `gorm:"size:20" json:"weighing_type"`
	Status         string     `gorm:"size:20;default:Pending" json:"status"`
	DateStart      time.Time  `json:"date_start"`
	DateEnd        *time.Time `json:"date_end"`
	GrossWeight    int        `json:"gross_weight"`
	TareWeight     int        `json:"tare_weight"`
	NetWeight      int        `json:"net_weight"`
	WeightOriginal int        `json:"weight_original"`
	FolioALM2      string     `gorm:"size:10" json:"folio_alm2"`
	Notes          string     `json:"notes"`

	CustomerID uint `json:"customer_id"`
	VehicleID  uint `json:"vehicle_id"`
	TrailerID  uint `json:"trailer_id"`
	DriverID   uint `json:"driver_id"`
	MaterialID uint `json:"material_id"`

	CreatedByID uint  `json:"created_by_id"`
	ClosedByID  *uint `json:"closed_by_id"`

	ERPSyncStatus string `gorm:"size:20;default:NotSynced" json:"erp_sync_status"`
	ERPExternalID *int64 `json:"erp_external_id"`
}

// FolioHistory - Append-only audit trail. A row is written whenever a
// closed/processed record is mutated (manual edits, automatic closes).
type FolioHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WeighingID    uint      `json:"weighing_id"`
	Folio         string    `json:"folio"`
	PreviousValue string    `json:"previous_value"`
	NewValue      string    `json:"new_value"`
	ModifiedAt    time.Time `json:"modified_at"`
	ModifiedByID  uint      `json:"modified_by_id"`
	Note          string    `json:"note"`
}

// SyncTask - Outbox row. Weighing mutations enqueue one of these; the
// sync worker claims and processes them so storage writes never wait
// on the network.
type SyncTask struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	WeighingID    uint       `gorm:"index" json:"weighing_id"`
	CorrelationID string     `gorm:"size:40" json:"correlation_id"`
	Attempts      int        `json:"attempts"`
	LockedAt      *time.Time `json:"locked_at"`
	LockedBy      *string    `json:"locked_by"`
	LastError     *string    `json:"last_error"`
	Processed     bool       `gorm:"index;default:false" json:"processed"`
	CreatedAt     time.Time  `json:"created_at"`
}
