package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type directoryService interface {
	List(ctx context.Context, actor models.Actor) ([]models.Teacher, error)
}

type availabilityService interface {
	Scope() string
	FreeTeachers(ctx context.Context, day string, period int, excludingID int) ([]models.Teacher, error)
}

// AvailabilityQuery selects the slot to inspect.
type AvailabilityQuery struct {
	Day     string `form:"day" binding:"required"`
	Period  int    `form:"period" binding:"required,gt=0"`
	Exclude int    `form:"exclude"`
}

// DirectoryHandler exposes the teacher directory and availability.
type DirectoryHandler struct {
	directory    directoryService
	availability availabilityService
}

// NewDirectoryHandler builds a new handler.
func NewDirectoryHandler(directory directoryService, availability availabilityService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, availability: availability}
}

// Teachers godoc
// @Summary List teachers visible to the caller
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *DirectoryHandler) Teachers(c *gin.Context) {
	teachers, err := h.directory.List(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, map[string]interface{}{"count": len(teachers)})
}

// Availability godoc
// @Summary List teachers free at a slot
// @Tags Teachers
// @Produce json
// @Param day query string true "Day name"
// @Param period query int true "Period (1-based)"
// @Param exclude query int false "Teacher ID to leave out"
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *DirectoryHandler) Availability(c *gin.Context) {
	var query AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "day and period are required"))
		return
	}
	free, err := h.availability.FreeTeachers(c.Request.Context(), query.Day, query.Period, query.Exclude)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, free, map[string]interface{}{
		"count": len(free),
		"scope": h.availability.Scope(),
	})
}
