package handlers

import (
	"net/http"

	"scale-station/internal/erp"
	"scale-station/internal/models"
	"scale-station/internal/syncgate"
	"scale-station/internal/utils"
	"scale-station/internal/weighing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SystemHandler reports station health and drives the manual sync
// actions (reference-data refresh, reconciliation sweep).
type SystemHandler struct {
	DB      *gorm.DB
	Scale   weighing.Scale
	ERP     *erp.Client
	Refdata *syncgate.RefdataSyncer
	Worker  *syncgate.Worker
	Gate    *syncgate.Gate
}

// GetSystemStatus is the dashboard snapshot: station identity, scale
// state, sync backlog.
func (h *SystemHandler) GetSystemStatus(c *gin.Context) {
	weight, unit, scaleErr := h.Scale.CurrentWeight()
	scaleStatus := "online"
	if scaleErr != nil {
		scaleStatus = scaleErr.Error()
	}

	var backlog, failed int64
	h.DB.Model(&models.SyncTask{}).Where("processed = ?", false).Count(&backlog)
	h.DB.Model(&models.WeighingRecord{}).Where("erp_sync_status = ?", models.SyncStatusSyncFailed).Count(&failed)

	c.JSON(http.StatusOK, gin.H{
		"station_id":      utils.GetStationID(),
		"scale_status":    scaleStatus,
		"scale_weight":    weight,
		"scale_unit":      unit,
		"scale_simulated": h.Scale.Simulated(),
		"sync_backlog":    backlog,
		"sync_failed":     failed,
	})
}

// PingERP checks connectivity and credentials against the ERP.
func (h *SystemHandler) PingERP(c *gin.Context) {
	if err := h.ERP.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SyncRefdata pulls the weighing catalogs from the ERP.
func (h *SystemHandler) SyncRefdata(c *gin.Context) {
	counts, err := h.Refdata.SyncAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "counts": counts})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Reconcile re-enqueues every weighing the ERP has not confirmed.
func (h *SystemHandler) Reconcile(c *gin.Context) {
	count, err := h.Worker.Reconcile(c.Request.Context(), h.Gate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"re_enqueued": count})
}
