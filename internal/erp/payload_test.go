package erp

import (
	"testing"
	"time"

	"scale-station/internal/database"
	"scale-station/internal/models"
)

func TestBuildScalePayload(t *testing.T) {
	start := time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	detail := &database.WeighingDetail{
		ID:                 7,
		Folio:              "000042",
		WeighingType:       models.WeighingTypeEntry,
		Status:             models.StatusClosed,
		DateStart:          start,
		DateEnd:            &end,
		GrossWeight:        38120,
		TareWeight:         15120,
		NetWeight:          23000,
		WeightOriginal:     38120,
		Notes:              "carga completa",
		CustomerExternalID: 102,
		VehicleExternalID:  201,
		TrailerExternalID:  301,
		DriverExternalID:   401,
		MaterialExternalID: 501,
		CreatedByName:      "ana",
		ClosedByName:       "luis",
	}

	vals := BuildScalePayload(detail, 6)

	checks := map[string]any{
		"x_studio_folio_number":        "000042",
		"x_studio_weighing_type":       models.WeighingTypeEntry,
		"x_studio_scale_record_status": "Cerrado",
		"x_studio_stage_id":            2,
		"x_studio_partner_id":          int64(102),
		"x_studio_gross_weight":        38120,
		"x_studio_tare_weight":         15120,
		"x_studio_net_weight":          23000,
		"x_studio_date":                "2026-03-14",
		"x_studio_date_start":          "2026-03-14 14:30:00",
		"x_studio_date_end":            "2026-03-14 16:30:00",
		"x_studio_scale_user_start":    "ana",
		"x_studio_scale_user_end":      "luis",
	}
	for key, want := range checks {
		if got := vals[key]; got != want {
			t.Errorf("%s = %v, want %v", key, got, want)
		}
	}
}

func TestBuildScalePayload_PendingWithoutEnd(t *testing.T) {
	detail := &database.WeighingDetail{
		Folio:        "000001",
		Status:       models.StatusPending,
		WeighingType: models.WeighingTypeExit,
		DateStart:    time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}

	vals := BuildScalePayload(detail, 6)

	if vals["x_studio_scale_record_status"] != "Pendiente" {
		t.Errorf("status = %v, want Pendiente", vals["x_studio_scale_record_status"])
	}
	if vals["x_studio_stage_id"] != 1 {
		t.Errorf("stage = %v, want 1", vals["x_studio_stage_id"])
	}
	// Odoo expects false, not null, for an unset datetime.
	if vals["x_studio_date_end"] != false {
		t.Errorf("date_end = %v, want false", vals["x_studio_date_end"])
	}
}

func TestShiftToUTC(t *testing.T) {
	local := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

	if got := shiftToUTC(&local, 6); got != "2026-05-02 02:00:00" {
		t.Errorf("shiftToUTC(+6) = %v", got)
	}
	if got := shiftToUTC(nil, 6); got != false {
		t.Errorf("shiftToUTC(nil) = %v, want false", got)
	}
	zero := time.Time{}
	if got := shiftToUTC(&zero, 6); got != false {
		t.Errorf("shiftToUTC(zero) = %v, want false", got)
	}
}
