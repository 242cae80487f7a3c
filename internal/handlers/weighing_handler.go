package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"scale-station/internal/database"
	"scale-station/internal/ticket"
	"scale-station/internal/weighing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// WeighingHandler exposes the weighing lifecycle over HTTP.
type WeighingHandler struct {
	DB      *gorm.DB
	Service *weighing.Service
	Scale   weighing.Scale
	Tickets *ticket.Renderer
}

// statusForError maps the service error taxonomy onto HTTP codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, weighing.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, weighing.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, weighing.ErrDevice):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func currentUserID(c *gin.Context) uint {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record id"})
		return 0, false
	}
	return uint(id), true
}

// GetCurrentWeight returns the live scale snapshot for the UI poll.
func (h *WeighingHandler) GetCurrentWeight(c *gin.Context) {
	w, unit, err := h.Scale.CurrentWeight()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"weight": 0, "unit": unit, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"weight": w, "unit": unit, "simulated": h.Scale.Simulated()})
}

// GetNextFolio previews the folio the next registration will take.
func (h *WeighingHandler) GetNextFolio(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"next_folio": weighing.NextFolio(h.DB)})
}

func (h *WeighingHandler) register(c *gin.Context, fn func(weighing.Form, uint) (*weighing.Result, error)) {
	// 1. Validate Input JSON
	var form weighing.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	// 2. Run the lifecycle operation
	result, err := fn(form, currentUserID(c))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	// 3. Success! Return the saved record and the next folio
	c.JSON(http.StatusCreated, result)
}

func (h *WeighingHandler) RegisterEntry(c *gin.Context) {
	h.register(c, h.Service.RegisterEntry)
}

func (h *WeighingHandler) RegisterExit(c *gin.Context) {
	h.register(c, h.Service.RegisterExit)
}

func (h *WeighingHandler) RegisterExitWithWeight(c *gin.Context) {
	h.register(c, h.Service.RegisterExitWithWeight)
}

// RegisterManual creates an already-closed, hand-entered folio.
func (h *WeighingHandler) RegisterManual(c *gin.Context) {
	var form weighing.ManualForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	result, err := h.Service.RegisterManual(form, currentUserID(c))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *WeighingHandler) closeWith(c *gin.Context, fn func(uint, uint) (*database.WeighingDetail, error)) {
	// 1. Resolve the record
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	// 2. Run the close transition
	detail, err := fn(id, currentUserID(c))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	// 3. Print the ticket; a dead printer degrades to a PDF, never fails the close
	ticketResult, ticketErr := h.Tickets.Render(detail)
	resp := gin.H{"record": detail, "ticket": ticketResult}
	if ticketErr != nil {
		resp["ticket_error"] = ticketErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Close finishes a pending folio from the live scale reading.
func (h *WeighingHandler) Close(c *gin.Context) {
	h.closeWith(c, h.Service.Close)
}

// CloseAutomatic finishes a pending folio from the stored vehicle and
// trailer taras, without a truck on the platform.
func (h *WeighingHandler) CloseAutomatic(c *gin.Context) {
	h.closeWith(c, h.Service.CloseWithKnownTara)
}

// EditWeights corrects a closed folio; admin only, audited.
func (h *WeighingHandler) EditWeights(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var edit weighing.WeightEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	detail, err := h.Service.EditClosedWeights(id, edit, currentUserID(c))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetPending lists open folios for the close screen.
func (h *WeighingHandler) GetPending(c *gin.Context) {
	details, err := database.GetPendingWeighings(h.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pending weighings"})
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetClosed lists recent closed folios, newest first.
func (h *WeighingHandler) GetClosed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	details, err := database.GetClosedWeighings(h.DB, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load closed weighings"})
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetDetail loads a single folio with all joined display fields.
func (h *WeighingHandler) GetDetail(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	detail, err := database.GetWeighingDetail(h.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Weighing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load weighing"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ReprintTicket renders the ticket for any existing folio again.
func (h *WeighingHandler) ReprintTicket(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	detail, err := database.GetWeighingDetail(h.DB, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Weighing not found"})
		return
	}
	result, err := h.Tickets.Render(detail)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
