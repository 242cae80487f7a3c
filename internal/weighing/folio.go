package weighing

import (
	"fmt"
	"strconv"

	"scale-station/internal/models"

	"gorm.io/gorm"
)

// DefaultFolio is issued when the store is empty, unreadable, or the
// last stored folio is not numeric.
const DefaultFolio = "000001"

// NextFolio returns the next ticket identifier: the last persisted
// folio incremented by one, zero-padded to six digits. It never fails;
// any persistence problem maps to the default starting folio.
//
// ALM2 twin folios end in "A" and are always inserted before their
// primary, so the newest row is numeric whenever a split happened.
func NextFolio(db *gorm.DB) string {
	var last string
	err := db.Model(&models.WeighingRecord{}).
		Select("folio").
		Order("id DESC").
		Limit(1).
		Scan(&last).Error
	if err != nil || last == "" {
		return DefaultFolio
	}

	n, err := strconv.Atoi(last)
	if err != nil {
		return DefaultFolio
	}
	return fmt.Sprintf("%06d", n+1)
}
