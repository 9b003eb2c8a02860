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

type absenceService interface {
	Report(ctx context.Context, actor models.Actor, req service.ReportAbsenceRequest) (*models.AbsenceRequest, error)
	ReportForTomorrow(ctx context.Context, teacherID int, req service.ReportTomorrowRequest) ([]models.AbsenceRequest, error)
	Resolve(ctx context.Context, id int64) (*models.AbsenceRequest, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.AbsenceRequest, error)
	List(ctx context.Context, actor models.Actor, filter service.AbsenceListFilter) ([]models.AbsenceRequest, error)
}

// AbsenceHandler exposes absence reporting and resolution.
type AbsenceHandler struct {
	service absenceService
}

// NewAbsenceHandler builds a new handler.
func NewAbsenceHandler(service absenceService) *AbsenceHandler {
	return &AbsenceHandler{service: service}
}

// Report godoc
// @Summary Report a teacher absent for one slot
// @Tags Absences
// @Accept json
// @Produce json
// @Param payload body service.ReportAbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /absences [post]
func (h *AbsenceHandler) Report(c *gin.Context) {
	var req service.ReportAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload"))
		return
	}
	result, err := h.service.Report(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	if result.Status.Terminal() {
		response.JSON(c, http.StatusOK, result)
		return
	}
	response.Created(c, result)
}

// ReportTomorrow godoc
// @Summary Report the caller absent for all of tomorrow's classes
// @Tags Absences
// @Accept json
// @Produce json
// @Param payload body service.ReportTomorrowRequest false "Optional reason"
// @Success 201 {object} response.Envelope
// @Router /absences/tomorrow [post]
func (h *AbsenceHandler) ReportTomorrow(c *gin.Context) {
	actor := actorFromContext(c)
	if actor.TeacherID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token is not linked to a teacher"))
		return
	}
	var req service.ReportTomorrowRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload"))
			return
		}
	}
	items, err := h.service.ReportForTomorrow(c.Request.Context(), actor.TeacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, items, map[string]interface{}{"count": len(items)})
}

// List godoc
// @Summary List absence requests visible to the caller
// @Tags Absences
// @Produce json
// @Param teacherId query int false "Absent teacher filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /absences [get]
func (h *AbsenceHandler) List(c *gin.Context) {
	var filter service.AbsenceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter"))
		return
	}
	items, err := h.service.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"count": len(items)})
}

// Get godoc
// @Summary Get one absence request
// @Tags Absences
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id} [get]
func (h *AbsenceHandler) Get(c *gin.Context) {
	id, err := requestIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.Get(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Resolve godoc
// @Summary Find and apply a substitute for a pending request
// @Tags Absences
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/resolve [post]
func (h *AbsenceHandler) Resolve(c *gin.Context) {
	id, err := requestIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.service.Get(ctx, actorFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Resolve(ctx, id)
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
