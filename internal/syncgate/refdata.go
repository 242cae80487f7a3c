package syncgate

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scale-station/internal/erp"
	"scale-station/internal/models"
)

// RefdataSyncer pulls the weighing catalogs from the ERP into the local
// database so the station keeps working through network outages. Rows
// are upserted by ERP external id; nothing local is ever deleted, rows
// that disappear upstream just stop being refreshed.
type RefdataSyncer struct {
	db     *gorm.DB
	client *erp.Client
	log    *logrus.Logger
}

func NewRefdataSyncer(db *gorm.DB, client *erp.Client, log *logrus.Logger) *RefdataSyncer {
	return &RefdataSyncer{db: db, client: client, log: log}
}

// RefdataCounts reports how many rows each catalog refresh touched.
type RefdataCounts struct {
	Customers int `json:"customers"`
	Vehicles  int `json:"vehicles"`
	Trailers  int `json:"trailers"`
	Drivers   int `json:"drivers"`
	Materials int `json:"materials"`
}

// SyncAll refreshes every catalog. A failing catalog aborts the run so
// the caller sees the error; catalogs already refreshed stay refreshed.
func (s *RefdataSyncer) SyncAll(ctx context.Context) (RefdataCounts, error) {
	var counts RefdataCounts
	var err error

	if counts.Customers, err = s.SyncCustomers(ctx); err != nil {
		return counts, err
	}
	if counts.Vehicles, err = s.SyncVehicles(ctx); err != nil {
		return counts, err
	}
	if counts.Trailers, err = s.SyncTrailers(ctx); err != nil {
		return counts, err
	}
	if counts.Drivers, err = s.SyncDrivers(ctx); err != nil {
		return counts, err
	}
	if counts.Materials, err = s.SyncMaterials(ctx); err != nil {
		return counts, err
	}

	s.log.WithFields(logrus.Fields{
		"customers": counts.Customers,
		"vehicles":  counts.Vehicles,
		"trailers":  counts.Trailers,
		"drivers":   counts.Drivers,
		"materials": counts.Materials,
	}).Info("reference data refreshed")
	return counts, nil
}

func (s *RefdataSyncer) SyncCustomers(ctx context.Context) (int, error) {
	refs, err := s.client.GetCustomers(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([]models.Customer, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, models.Customer{
			ExternalID:      r.ExternalID,
			Name:            r.Name,
			CompanyName:     r.CompanyName,
			DiscountPercent: r.DiscountPercent,
			ALM2TargetID:    r.ALM2TargetID,
			Active:          r.Active,
		})
	}
	return s.upsert(ctx, &rows, len(rows),
		[]string{"name", "company_name", "discount_percent", "alm2_target_id", "active"})
}

func (s *RefdataSyncer) SyncVehicles(ctx context.Context) (int, error) {
	refs, err := s.client.GetVehicles(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([]models.Vehicle, 0, len(refs))
	for _, r := range refs {
		if r.Plates == "" {
			continue
		}
		rows = append(rows, models.Vehicle{
			ExternalID:  r.ExternalID,
			Plates:      r.Plates,
			VehicleType: r.VehicleType,
			Tara:        r.Tara,
			Active:      r.Active,
		})
	}
	return s.upsert(ctx, &rows, len(rows),
		[]string{"plates", "vehicle_type", "tara", "active"})
}

func (s *RefdataSyncer) SyncTrailers(ctx context.Context) (int, error) {
	refs, err := s.client.GetTrailers(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([]models.Trailer, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, models.Trailer{
			ExternalID: r.ExternalID,
			Name:       r.Name,
			Category:   r.Category,
			Tara:       r.Tara,
			Active:     r.Active,
		})
	}
	return s.upsert(ctx, &rows, len(rows),
		[]string{"name", "category", "tara", "active"})
}

func (s *RefdataSyncer) SyncDrivers(ctx context.Context) (int, error) {
	refs, err := s.client.GetDrivers(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([]models.Driver, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, models.Driver{
			ExternalID:    r.ExternalID,
			Name:          r.Name,
			LicenseNumber: r.LicenseNumber,
			Active:        r.Active,
		})
	}
	return s.upsert(ctx, &rows, len(rows),
		[]string{"name", "license_number", "active"})
}

func (s *RefdataSyncer) SyncMaterials(ctx context.Context) (int, error) {
	refs, err := s.client.GetMaterials(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([]models.Material, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, models.Material{
			ExternalID:       r.ExternalID,
			Name:             r.Name,
			Unit:             r.Unit,
			Category:         r.Category,
			DiscountEligible: r.DiscountEligible,
			Active:           r.Active,
		})
	}
	return s.upsert(ctx, &rows, len(rows),
		[]string{"name", "unit", "category", "discount_eligible", "active"})
}

func (s *RefdataSyncer) upsert(ctx context.Context, rows any, count int, updateCols []string) (int, error) {
	if count == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(updateCols),
	}).Create(rows).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
