package syncgate

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"scale-station/internal/models"
)

// Gate enqueues sync work for mutated weighings. The outbox row is
// written inside the caller's transaction, so a committed weighing
// mutation always has a sync task and an aborted one never does.
type Gate struct{}

func NewGate() *Gate { return &Gate{} }

// Enqueue records that the weighing must be pushed to the ERP. Multiple
// mutations of the same record before the worker runs just mean the
// worker pushes the latest persisted state more than once, which the
// create-vs-update branch keeps harmless.
func (g *Gate) Enqueue(tx *gorm.DB, weighingID uint) error {
	task := models.SyncTask{
		WeighingID:    weighingID,
		CorrelationID: uuid.NewString(),
	}
	return tx.Create(&task).Error
}
