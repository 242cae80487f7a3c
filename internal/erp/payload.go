package erp

import (
	"time"

	"scale-station/internal/database"
	"scale-station/internal/models"
)

// Status labels and stage ids as the ERP board expects them. The local
// lifecycle is English; the ERP kanban keeps the original Spanish labels.
var statusLabels = map[string]string{
	models.StatusPending: "Pendiente",
	models.StatusClosed:  "Cerrado",
}

var stageIDs = map[string]int{
	models.StatusPending: 1,
	models.StatusClosed:  2,
}

const erpDateTime = "2006-01-02 15:04:05"
const erpDate = "2006-01-02"

// shiftToUTC corrects a local station timestamp by the configured UTC
// offset before it is sent to the ERP, which stores naive UTC.
func shiftToUTC(t *time.Time, offsetHours int) any {
	if t == nil || t.IsZero() {
		return false
	}
	return t.Add(time.Duration(offsetHours) * time.Hour).Format(erpDateTime)
}

// BuildScalePayload maps a joined weighing row onto the x_studio_*
// fields of the ERP scale-record model.
func BuildScalePayload(d *database.WeighingDetail, utcOffsetHours int) map[string]any {
	status := statusLabels[d.Status]
	if status == "" {
		status = d.Status
	}

	return map[string]any{
		"x_studio_weighing_type":       d.WeighingType,
		"x_studio_folio_number":        d.Folio,
		"x_studio_partner_id":          d.CustomerExternalID,
		"x_studio_scale_record_status": status,
		"x_studio_stage_id":            stageIDs[d.Status],
		"x_studio_id_vehicle":          d.VehicleExternalID,
		"x_studio_id_trailer":          d.TrailerExternalID,
		"x_studio_id_material":         d.MaterialExternalID,
		"x_studio_id_driver":           d.DriverExternalID,
		"x_studio_date":                d.DateStart.Format(erpDate),
		"x_studio_date_start":          shiftToUTC(&d.DateStart, utcOffsetHours),
		"x_studio_date_end":            shiftToUTC(d.DateEnd, utcOffsetHours),
		"x_studio_gross_weight":        d.GrossWeight,
		"x_studio_tare_weight":         d.TareWeight,
		"x_studio_net_weight":          d.NetWeight,
		"x_studio_weight_original":     d.WeightOriginal,
		"x_studio_days_open_folio":     d.DaysOpen(),
		"x_studio_scale_user_start":    d.CreatedByName,
		"x_studio_scale_user_end":      d.ClosedByName,
		"x_studio_notas":               d.Notes,
		"x_studio_company_id":          1,
	}
}
