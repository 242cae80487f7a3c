package weighing

import (
	"errors"
	"fmt"
	"time"

	"scale-station/internal/database"
	"scale-station/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Scale is the snapshot view of the scale device the state machine
// needs: the latest polled weight, never a blocking serial read.
type Scale interface {
	CurrentWeight() (weight int, unit string, err error)
	Simulated() bool
}

// SyncEnqueuer persists an outbox row for a mutated weighing inside the
// caller's transaction. The actual ERP call happens later, on the sync
// worker, so a dead network never blocks a registration or close.
type SyncEnqueuer interface {
	Enqueue(tx *gorm.DB, weighingID uint) error
}

// Service drives the weighing lifecycle: register entry/exit, close
// manually or from known taras, split discounted loads into ALM2 twins.
type Service struct {
	db    *gorm.DB
	scale Scale
	sync  SyncEnqueuer
	log   *logrus.Logger

	// simTareOffset is subtracted from tare captures when running
	// against the simulator, whose readings sit on a fake loaded truck.
	simTareOffset int

	now func() time.Time
}

func NewService(db *gorm.DB, scale Scale, sync SyncEnqueuer, log *logrus.Logger, simTareOffset int) *Service {
	return &Service{
		db:            db,
		scale:         scale,
		sync:          sync,
		log:           log,
		simTareOffset: simTareOffset,
		now:           time.Now,
	}
}

// Form carries the operator's selections for a new weighing. All five
// references are mandatory.
type Form struct {
	VehicleID  uint   `json:"vehicle_id" binding:"required"`
	TrailerID  uint   `json:"trailer_id" binding:"required"`
	DriverID   uint   `json:"driver_id" binding:"required"`
	CustomerID uint   `json:"customer_id" binding:"required"`
	MaterialID uint   `json:"material_id" binding:"required"`
	Notes      string `json:"notes"`
}

func (f *Form) validate() error {
	missing := ""
	switch {
	case f.VehicleID == 0:
		missing = "vehicle"
	case f.TrailerID == 0:
		missing = "trailer"
	case f.DriverID == 0:
		missing = "driver"
	case f.CustomerID == 0:
		missing = "customer"
	case f.MaterialID == 0:
		missing = "material"
	}
	if missing != "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, missing)
	}
	return nil
}

// Result is what every lifecycle operation hands back to the UI layer:
// the persisted record (re-read after the write) and the next folio to
// display on the registration form.
type Result struct {
	Record    *models.WeighingRecord `json:"record"`
	NextFolio string                 `json:"next_folio"`
}

func (s *Service) liveWeight() (int, error) {
	w, _, err := s.scale.CurrentWeight()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	if w <= 0 {
		return 0, fmt.Errorf("%w: no positive weight on the scale", ErrDevice)
	}
	return w, nil
}

// tareFromReading adjusts a live reading captured as a tare. The
// simulator keeps a loaded truck on the platform, so its configured
// offset is removed to approximate the empty weight.
func (s *Service) tareFromReading(reading int) int {
	if s.scale.Simulated() {
		return reading - s.simTareOffset
	}
	return reading
}

// RegisterEntry persists a Pending entry weighing from the live gross
// reading. When the customer carries a discount and the material is
// discount-eligible, the ALM2 twin is written first with folio
// "{folio}A", then the primary with the rounded remainder.
func (s *Service) RegisterEntry(form Form, userID uint) (*Result, error) {
	if err := form.validate(); err != nil {
		return nil, err
	}

	customer, material, err := s.loadReferences(form)
	if err != nil {
		return nil, err
	}

	gross, err := s.liveWeight()
	if err != nil {
		return nil, err
	}

	record := models.WeighingRecord{
		WeighingType:   models.WeighingTypeEntry,
		Status:         models.StatusPending,
		DateStart:      s.now(),
		GrossWeight:    gross,
		TareWeight:     0,
		NetWeight:      0,
		WeightOriginal: gross,
		Notes:          form.Notes,
		CustomerID:     form.CustomerID,
		VehicleID:      form.VehicleID,
		TrailerID:      form.TrailerID,
		DriverID:       form.DriverID,
		MaterialID:     form.MaterialID,
		CreatedByID:    userID,
	}

	var twin *models.WeighingRecord
	if customer.DiscountPercent > 0 && material.DiscountEligible {
		alm2Customer, err := s.resolveALM2Customer(customer)
		if err != nil {
			return nil, err
		}
		split := SplitEntry(gross, customer.DiscountPercent)
		record.GrossWeight = split.PrimaryWeight

		t := record
		t.GrossWeight = split.ALM2Weight
		t.CustomerID = alm2Customer.ID
		twin = &t

		s.log.WithFields(logrus.Fields{
			"gross":    gross,
			"discount": customer.DiscountPercent,
			"primary":  split.PrimaryWeight,
			"alm2":     split.ALM2Weight,
		}).Info("applying ALM2 discount split")
	}

	saved, err := s.insertWithFolio(&record, twin)
	if err != nil {
		return nil, err
	}

	return &Result{Record: saved, NextFolio: NextFolio(s.db)}, nil
}

// RegisterExit persists a Pending exit weighing: the live reading is
// the tare, gross stays 0 until the loaded truck returns.
func (s *Service) RegisterExit(form Form, userID uint) (*Result, error) {
	if err := form.validate(); err != nil {
		return nil, err
	}
	if _, _, err := s.loadReferences(form); err != nil {
		return nil, err
	}

	reading, err := s.liveWeight()
	if err != nil {
		return nil, err
	}
	tare := s.tareFromReading(reading)

	record := models.WeighingRecord{
		WeighingType: models.WeighingTypeExit,
		Status:       models.StatusPending,
		DateStart:    s.now(),
		GrossWeight:  0,
		TareWeight:   tare,
		NetWeight:    NetWeight(0, tare),
		Notes:        form.Notes,
		CustomerID:   form.CustomerID,
		VehicleID:    form.VehicleID,
		TrailerID:    form.TrailerID,
		DriverID:     form.DriverID,
		MaterialID:   form.MaterialID,
		CreatedByID:  userID,
	}

	saved, err := s.insertWithFolio(&record, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Record: saved, NextFolio: NextFolio(s.db)}, nil
}

// RegisterExitWithWeight captures the gross directly from the live
// reading; tare and net are resolved at a later close.
func (s *Service) RegisterExitWithWeight(form Form, userID uint) (*Result, error) {
	if err := form.validate(); err != nil {
		return nil, err
	}
	if _, _, err := s.loadReferences(form); err != nil {
		return nil, err
	}

	gross, err := s.liveWeight()
	if err != nil {
		return nil, err
	}

	record := models.WeighingRecord{
		WeighingType:   models.WeighingTypeExitWithWeight,
		Status:         models.StatusPending,
		DateStart:      s.now(),
		GrossWeight:    gross,
		WeightOriginal: gross,
		Notes:          form.Notes,
		CustomerID:     form.CustomerID,
		VehicleID:      form.VehicleID,
		TrailerID:      form.TrailerID,
		DriverID:       form.DriverID,
		MaterialID:     form.MaterialID,
		CreatedByID:    userID,
	}

	saved, err := s.insertWithFolio(&record, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Record: saved, NextFolio: NextFolio(s.db)}, nil
}

// Close finishes a pending weighing using the live scale reading.
// Entry records with an ALM2 twin recompute both halves with the
// close-time split; plain entries capture the tare; exits capture the
// gross. Closing an already-closed record is rejected.
func (s *Service) Close(recordID, userID uint) (*database.WeighingDetail, error) {
	reading, err := s.liveWeight()
	if err != nil {
		return nil, err
	}
	return s.close(recordID, userID, reading, false)
}

// CloseWithKnownTara closes a pending weighing without a truck on the
// platform, using the static vehicle + trailer taras. Refused when
// either tara is unknown; every mutation leaves a FolioHistory row.
func (s *Service) CloseWithKnownTara(recordID, userID uint) (*database.WeighingDetail, error) {
	var record models.WeighingRecord
	if err := s.db.First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	var vehicle models.Vehicle
	var trailer models.Trailer
	if err := s.db.First(&vehicle, record.VehicleID).Error; err != nil {
		return nil, fmt.Errorf("%w: vehicle not found", ErrValidation)
	}
	if err := s.db.First(&trailer, record.TrailerID).Error; err != nil {
		return nil, fmt.Errorf("%w: trailer not found", ErrValidation)
	}
	if vehicle.Tara <= 0 || trailer.Tara <= 0 {
		return nil, fmt.Errorf("%w: vehicle or trailer tara is not registered", ErrValidation)
	}

	return s.close(recordID, userID, vehicle.Tara+trailer.Tara, true)
}

// close is the shared close transition. reading is the captured weight:
// a live scale value (tare offset still to be applied) for manual
// closes, or the combined static tara for automatic ones.
func (s *Service) close(recordID, userID uint, reading int, automatic bool) (*database.WeighingDetail, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var record models.WeighingRecord
		if err := tx.First(&record, recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if record.Status == models.StatusClosed {
			return fmt.Errorf("%w: folio %s is already closed", ErrValidation, record.Folio)
		}

		closedAt := s.now()

		switch {
		case record.WeighingType != models.WeighingTypeExit && record.FolioALM2 != "":
			return s.closeSplitPair(tx, &record, userID, reading, closedAt, automatic)

		case record.WeighingType == models.WeighingTypeExit:
			// Exit: the stored weight is the tare, the live reading the gross.
			record.GrossWeight = reading
			record.NetWeight = NetWeight(record.GrossWeight, record.TareWeight)

		default:
			// Entry / exit-with-weight without a twin: capture the tare.
			tare := reading
			if !automatic {
				tare = s.tareFromReading(reading)
			}
			record.TareWeight = tare
			record.NetWeight = NetWeight(record.GrossWeight, record.TareWeight)
		}

		record.Status = models.StatusClosed
		record.DateEnd = &closedAt
		record.ClosedByID = &userID
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if automatic {
			if err := s.appendAutoCloseHistory(tx, &record, userID, closedAt); err != nil {
				return err
			}
		}
		return s.sync.Enqueue(tx, record.ID)
	})
	if err != nil {
		return nil, err
	}

	// Re-read the persisted row with joins; the ticket is printed from
	// what the store says, not from in-memory state.
	detail, err := database.GetWeighingDetail(s.db, recordID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return detail, nil
}

// closeSplitPair recomputes both halves of a discounted weighing and
// closes twin and primary together. The twin is looked up by its
// "{folio}A" identifier.
func (s *Service) closeSplitPair(tx *gorm.DB, record *models.WeighingRecord, userID uint, reading int, closedAt time.Time, automatic bool) error {
	var customer models.Customer
	if err := tx.First(&customer, record.CustomerID).Error; err != nil {
		return fmt.Errorf("%w: customer not found", ErrValidation)
	}

	var twin models.WeighingRecord
	if err := tx.Where("folio = ?", record.FolioALM2).First(&twin).Error; err != nil {
		return fmt.Errorf("%w: ALM2 twin %s not found", ErrValidation, record.FolioALM2)
	}

	tare := reading
	if !automatic {
		tare = s.tareFromReading(reading)
	}
	split := SplitClose(record.WeightOriginal, tare, customer.DiscountPercent)

	twin.GrossWeight = split.NewGrossALM2
	twin.TareWeight = tare
	twin.NetWeight = split.NewNetALM2
	twin.Status = models.StatusClosed
	twin.DateEnd = &closedAt
	twin.ClosedByID = &userID
	if err := tx.Save(&twin).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	record.GrossWeight = split.NewGross
	record.TareWeight = tare
	record.NetWeight = split.NewNet
	record.Status = models.StatusClosed
	record.DateEnd = &closedAt
	record.ClosedByID = &userID
	if err := tx.Save(record).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if automatic {
		if err := s.appendAutoCloseHistory(tx, &twin, userID, closedAt); err != nil {
			return err
		}
		if err := s.appendAutoCloseHistory(tx, record, userID, closedAt); err != nil {
			return err
		}
	}

	if err := s.sync.Enqueue(tx, twin.ID); err != nil {
		return err
	}
	return s.sync.Enqueue(tx, record.ID)
}

func (s *Service) appendAutoCloseHistory(tx *gorm.DB, record *models.WeighingRecord, userID uint, at time.Time) error {
	entry := models.FolioHistory{
		WeighingID:    record.ID,
		Folio:         record.Folio,
		PreviousValue: "0",
		NewValue:      fmt.Sprintf("%d", record.TareWeight),
		ModifiedAt:    at,
		ModifiedByID:  userID,
		Note:          "Closed automatically",
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// insertWithFolio allocates the folio and inserts record (and its ALM2
// twin first, when present) in one transaction. The unique index on
// folio is the backstop against two writers allocating the same number;
// on a collision the whole allocation is retried.
func (s *Service) insertWithFolio(record *models.WeighingRecord, twin *models.WeighingRecord) (*models.WeighingRecord, error) {
	const maxAttempts = 3

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			folio := NextFolio(tx)
			record.Folio = folio
			if twin != nil {
				twin.ID = 0
				twin.Folio = folio + "A"
				record.FolioALM2 = twin.Folio
				if err := tx.Create(twin).Error; err != nil {
					return err
				}
				if err := s.sync.Enqueue(tx, twin.ID); err != nil {
					return err
				}
			}
			record.ID = 0
			if err := tx.Create(record).Error; err != nil {
				return err
			}
			return s.sync.Enqueue(tx, record.ID)
		})
		if err == nil {
			return record, nil
		}
		lastErr = err
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		s.log.WithField("attempt", attempt+1).Warn("folio collision, retrying allocation")
	}
	return nil, fmt.Errorf("%w: %v", ErrPersistence, lastErr)
}

func (s *Service) loadReferences(form Form) (*models.Customer, *models.Material, error) {
	var customer models.Customer
	if err := s.db.First(&customer, form.CustomerID).Error; err != nil {
		return nil, nil, fmt.Errorf("%w: customer not found", ErrValidation)
	}
	var material models.Material
	if err := s.db.First(&material, form.MaterialID).Error; err != nil {
		return nil, nil, fmt.Errorf("%w: material not found", ErrValidation)
	}
	var count int64
	s.db.Model(&models.Vehicle{}).Where("id = ?", form.VehicleID).Count(&count)
	if count == 0 {
		return nil, nil, fmt.Errorf("%w: vehicle not found", ErrValidation)
	}
	s.db.Model(&models.Trailer{}).Where("id = ?", form.TrailerID).Count(&count)
	if count == 0 {
		return nil, nil, fmt.Errorf("%w: trailer not found", ErrValidation)
	}
	s.db.Model(&models.Driver{}).Where("id = ?", form.DriverID).Count(&count)
	if count == 0 {
		return nil, nil, fmt.Errorf("%w: driver not found", ErrValidation)
	}
	return &customer, &material, nil
}

// resolveALM2Customer maps a discount customer to the local row of its
// ALM2 billing account. A discount without a resolvable ALM2 account is
// a data problem the operator has to fix before registering.
func (s *Service) resolveALM2Customer(customer *models.Customer) (*models.Customer, error) {
	if customer.ALM2TargetID == 0 {
		return nil, fmt.Errorf("%w: customer %s has a discount but no ALM2 account", ErrValidation, customer.Name)
	}
	var alm2 models.Customer
	if err := s.db.Where("external_id = ?", customer.ALM2TargetID).First(&alm2).Error; err != nil {
		return nil, fmt.Errorf("%w: ALM2 account %d for customer %s is not synced locally", ErrValidation, customer.ALM2TargetID, customer.Name)
	}
	return &alm2, nil
}
