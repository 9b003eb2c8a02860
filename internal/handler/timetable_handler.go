package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/service"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type timetableService interface {
	Snapshot(ctx context.Context) models.TimetableData
	Days() []string
	UpdateSlot(ctx context.Context, day string, period int, patch models.SlotPatch) (models.TimetableSlot, error)
	Export(ctx context.Context, format string) (*service.ExportFile, error)
	Reference(ctx context.Context) (models.Reference, error)
}

// TimetableHandler exposes the weekly timetable.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler builds a new handler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// Get godoc
// @Summary Get the weekly timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	data := h.service.Snapshot(c.Request.Context())
	response.JSON(c, http.StatusOK, data, map[string]interface{}{"days": h.service.Days()})
}

// UpdateSlot godoc
// @Summary Override a timetable slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param day path string true "Day name"
// @Param period path int true "Period (1-based)"
// @Param payload body models.SlotPatch true "Slot fields to replace"
// @Success 200 {object} response.Envelope
// @Router /timetable/{day}/{period} [put]
func (h *TimetableHandler) UpdateSlot(c *gin.Context) {
	period, err := positiveIntParam(c, "period")
	if err != nil {
		response.Error(c, err)
		return
	}
	var patch models.SlotPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload"))
		return
	}
	slot, err := h.service.UpdateSlot(c.Request.Context(), c.Param("day"), period, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// Export godoc
// @Summary Export the timetable
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}

// Reference godoc
// @Summary Lookup data for clients
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference [get]
func (h *TimetableHandler) Reference(c *gin.Context) {
	ref, err := h.service.Reference(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ref)
}
