package weighing

import (
	"errors"
	"fmt"
	"time"

	"scale-station/internal/database"
	"scale-station/internal/models"

	"gorm.io/gorm"
)

// ManualForm registers a weighing that happened off-system (scale
// outage, paper ticket): the operator types both weights and the folio
// is created already closed.
type ManualForm struct {
	Form
	GrossWeight int        `json:"gross_weight" binding:"required"`
	TareWeight  int        `json:"tare_weight"`
	DateStart   *time.Time `json:"date_start"`
}

// RegisterManual persists a hand-entered, already-closed weighing.
// No discount split applies here; manual folios are settled as typed.
func (s *Service) RegisterManual(form ManualForm, userID uint) (*Result, error) {
	if err := form.validate(); err != nil {
		return nil, err
	}
	if _, _, err := s.loadReferences(form.Form); err != nil {
		return nil, err
	}
	if form.GrossWeight <= 0 {
		return nil, fmt.Errorf("%w: gross weight must be positive", ErrValidation)
	}
	if form.TareWeight < 0 {
		return nil, fmt.Errorf("%w: tare weight cannot be negative", ErrValidation)
	}

	now := s.now()
	start := now
	if form.DateStart != nil {
		start = *form.DateStart
	}

	record := models.WeighingRecord{
		WeighingType:   models.WeighingTypeEntry,
		Status:         models.StatusClosed,
		DateStart:      start,
		DateEnd:        &now,
		GrossWeight:    form.GrossWeight,
		TareWeight:     form.TareWeight,
		NetWeight:      NetWeight(form.GrossWeight, form.TareWeight),
		WeightOriginal: form.GrossWeight,
		Notes:          form.Notes,
		CustomerID:     form.CustomerID,
		VehicleID:      form.VehicleID,
		TrailerID:      form.TrailerID,
		DriverID:       form.DriverID,
		MaterialID:     form.MaterialID,
		CreatedByID:    userID,
		ClosedByID:     &userID,
	}

	saved, err := s.insertWithFolio(&record, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Record: saved, NextFolio: NextFolio(s.db)}, nil
}

// WeightEdit corrects the weights of a closed record in place.
type WeightEdit struct {
	GrossWeight int    `json:"gross_weight" binding:"required"`
	TareWeight  int    `json:"tare_weight"`
	Note        string `json:"note"`
}

// EditClosedWeights mutates a closed record's weights. The row is
// updated destructively, but every edit leaves a FolioHistory entry
// with the previous and new values, so corrections stay auditable.
func (s *Service) EditClosedWeights(recordID uint, edit WeightEdit, userID uint) (*database.WeighingDetail, error) {
	if edit.GrossWeight <= 0 || edit.TareWeight < 0 {
		return nil, fmt.Errorf("%w: invalid weights", ErrValidation)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var record models.WeighingRecord
		if err := tx.First(&record, recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if record.Status != models.StatusClosed {
			return fmt.Errorf("%w: folio %s is still open, close it instead", ErrValidation, record.Folio)
		}

		previous := fmt.Sprintf("gross=%d tare=%d net=%d", record.GrossWeight, record.TareWeight, record.NetWeight)

		record.GrossWeight = edit.GrossWeight
		record.TareWeight = edit.TareWeight
		record.NetWeight = NetWeight(edit.GrossWeight, edit.TareWeight)
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		history := models.FolioHistory{
			WeighingID:    record.ID,
			Folio:         record.Folio,
			PreviousValue: previous,
			NewValue:      fmt.Sprintf("gross=%d tare=%d net=%d", record.GrossWeight, record.TareWeight, record.NetWeight),
			ModifiedAt:    s.now(),
			ModifiedByID:  userID,
			Note:          edit.Note,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		return s.sync.Enqueue(tx, record.ID)
	})
	if err != nil {
		return nil, err
	}

	detail, err := database.GetWeighingDetail(s.db, recordID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return detail, nil
}
