package syncgate

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"scale-station/internal/database"
	"scale-station/internal/erp"
	"scale-station/internal/models"
	"scale-station/internal/utils"
)

// ERPClient is the slice of the ERP surface the worker needs.
type ERPClient interface {
	CreateRecord(ctx context.Context, vals map[string]any) (int64, error)
	UpdateRecord(ctx context.Context, externalID int64, vals map[string]any) error
}

// Worker drains the sync outbox: claim pending tasks, push each
// weighing to the ERP, record the outcome on the weighing row. Failures
// mark the record SyncFailed and leave the task for a later attempt;
// the local transaction that produced the task is never touched.
type Worker struct {
	DB             *gorm.DB
	Client         ERPClient
	Log            *logrus.Logger
	WorkerID       string
	Interval       time.Duration
	BatchSize      int
	LockTTL        time.Duration
	MaxAttempts    int
	UTCOffsetHours int
}

func NewWorker(db *gorm.DB, client ERPClient, log *logrus.Logger, utcOffsetHours int) *Worker {
	return &Worker{
		DB:             db,
		Client:         client,
		Log:            log,
		WorkerID:       utils.GetStationID() + "-" + time.Now().Format("150405.000"),
		Interval:       5 * time.Second,
		BatchSize:      25,
		LockTTL:        60 * time.Second,
		MaxAttempts:    10,
		UTCOffsetHours: utcOffsetHours,
	}
}

// Run processes the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce claims one batch of unprocessed tasks and pushes them.
func (w *Worker) ProcessOnce(ctx context.Context) {
	now := time.Now().UTC()
	staleBefore := now.Add(-w.LockTTL)

	var claimed []models.SyncTask
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("processed = ?", false).
			Where("locked_at IS NULL OR locked_at <= ?", staleBefore).
			Order("id ASC").
			Limit(w.BatchSize)
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &w.WorkerID
			if err := tx.Model(&models.SyncTask{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"locked_at": claimed[i].LockedAt,
					"locked_by": claimed[i].LockedBy,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || len(claimed) == 0 {
		return
	}

	for _, task := range claimed {
		if err := w.pushWeighing(ctx, task.WeighingID); err != nil {
			w.recordFailure(ctx, task, err)
			continue
		}
		w.recordSuccess(ctx, task)
	}
}

// pushWeighing loads the joined row and creates or updates the remote
// record depending on whether an external id is already stored.
func (w *Worker) pushWeighing(ctx context.Context, weighingID uint) error {
	detail, err := database.GetWeighingDetail(w.DB.WithContext(ctx), weighingID)
	if err != nil {
		return fmt.Errorf("load weighing %d: %w", weighingID, err)
	}

	vals := erp.BuildScalePayload(detail, w.UTCOffsetHours)

	if detail.ERPExternalID == nil || *detail.ERPExternalID == 0 {
		externalID, err := w.Client.CreateRecord(ctx, vals)
		if err != nil {
			return err
		}
		return w.DB.WithContext(ctx).Model(&models.WeighingRecord{}).
			Where("id = ?", weighingID).
			Updates(map[string]interface{}{
				"erp_external_id": externalID,
				"erp_sync_status": models.SyncStatusSynced,
			}).Error
	}

	if err := w.Client.UpdateRecord(ctx, *detail.ERPExternalID, vals); err != nil {
		return err
	}
	return w.DB.WithContext(ctx).Model(&models.WeighingRecord{}).
		Where("id = ?", weighingID).
		Update("erp_sync_status", models.SyncStatusSynced).Error
}

func (w *Worker) recordSuccess(ctx context.Context, task models.SyncTask) {
	_ = w.DB.WithContext(ctx).Model(&models.SyncTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"processed": true,
			"locked_at": nil,
			"locked_by": nil,
		}).Error
}

func (w *Worker) recordFailure(ctx context.Context, task models.SyncTask, cause error) {
	errMsg := cause.Error()
	attempts := task.Attempts + 1

	updates := map[string]interface{}{
		"attempts":   attempts,
		"last_error": &errMsg,
		"locked_at":  nil,
		"locked_by":  nil,
	}
	// After MaxAttempts the task is parked; the reconciliation sweep can
	// revive the record later with a fresh task.
	if attempts >= w.MaxAttempts {
		updates["processed"] = true
	}
	_ = w.DB.WithContext(ctx).Model(&models.SyncTask{}).
		Where("id = ?", task.ID).
		Updates(updates).Error

	_ = w.DB.WithContext(ctx).Model(&models.WeighingRecord{}).
		Where("id = ?", task.WeighingID).
		Update("erp_sync_status", models.SyncStatusSyncFailed).Error

	w.Log.WithFields(logrus.Fields{
		"task_id":        task.ID,
		"weighing_id":    task.WeighingID,
		"correlation_id": task.CorrelationID,
		"attempts":       attempts,
	}).Error("erp sync failed: " + errMsg)
}

// Reconcile enqueues a fresh task for every weighing that is not marked
// Synced and has no pending task, so records stranded by outages or
// parked tasks eventually reach the ERP.
func (w *Worker) Reconcile(ctx context.Context, gate *Gate) (int, error) {
	var stranded []models.WeighingRecord
	err := w.DB.WithContext(ctx).
		Where("erp_sync_status <> ?", models.SyncStatusSynced).
		Where("id NOT IN (?)", w.DB.Model(&models.SyncTask{}).
			Select("weighing_id").
			Where("processed = ?", false)).
		Find(&stranded).Error
	if err != nil {
		return 0, err
	}

	count := 0
	for _, record := range stranded {
		err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return gate.Enqueue(tx, record.ID)
		})
		if err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		w.Log.WithField("count", count).Info("reconciliation re-enqueued unsynced weighings")
	}
	return count, nil
}
