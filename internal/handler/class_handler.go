package handler

import (
	"net/http"

	"github.com/coachhub/scheduler/internal/dto"
	"github.com/coachhub/scheduler/internal/models"
	"github.com/coachhub/scheduler/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ClassHandler struct {
	svc service.ClassService
}

func NewClassHandler(svc service.ClassService) *ClassHandler {
	return &ClassHandler{svc: svc}
}

func (h *ClassHandler) RegisterRoutes(e *echo.Echo) {
	classes := e.Group("/api/v1/classes")
	classes.POST("", h.CreateClass)
	classes.POST("/recurring", h.CreateRecurring)
	classes.GET("/:id", h.GetClass)
	classes.GET("/:id/status", h.GetClassStatus)
	classes.POST("/:id/start", h.StartClass)
	classes.POST("/:id/complete", h.CompleteClass)
	classes.POST("/:id/cancel", h.CancelClass)
}

func (h *ClassHandler) CreateClass(c echo.Context) error {
	var req dto.CreateClassRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	class, err := h.svc.CreateClass(c.Request().Context(), toCreateClassInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.ToClassResponse(class))
}

func (h *ClassHandler) CreateRecurring(c echo.Context) error {
	var req dto.CreateRecurringClassRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	classes, err := h.svc.CreateRecurring(c.Request().Context(),
		toCreateClassInput(req.CreateClassRequest), req.Pattern.ToModel(), req.RangeEnd)
	if err != nil {
		return err
	}

	resp := make([]dto.ClassResponse, len(classes))
	for i := range classes {
		resp[i] = dto.ToClassResponse(&classes[i])
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *ClassHandler) GetClass(c echo.Context) error {
	id, err := parseID(c, "id", "class")
	if err != nil {
		return err
	}
	class, err := h.svc.GetClass(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToClassResponse(class))
}

func (h *ClassHandler) GetClassStatus(c echo.Context) error {
	id, err := parseID(c, "id", "class")
	if err != nil {
		return err
	}
	occ, err := h.svc.ClassOccupancy(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ClassStatusResponse{
		ClassResponse:  dto.ToClassResponse(occ.Class),
		ActiveBookings: occ.ActiveBookings,
		SeatsAvailable: occ.SeatsAvailable,
	})
}

func (h *ClassHandler) StartClass(c echo.Context) error {
	id, err := parseID(c, "id", "class")
	if err != nil {
		return err
	}
	class, err := h.svc.StartClass(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToClassResponse(class))
}

func (h *ClassHandler) CompleteClass(c echo.Context) error {
	id, err := parseID(c, "id", "class")
	if err != nil {
		return err
	}
	class, err := h.svc.CompleteClass(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToClassResponse(class))
}

func (h *ClassHandler) CancelClass(c echo.Context) error {
	id, err := parseID(c, "id", "class")
	if err != nil {
		return err
	}

	var req dto.CancelClassRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	class, err := h.svc.CancelClass(c.Request().Context(), id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToClassResponse(class))
}

func toCreateClassInput(req dto.CreateClassRequest) service.CreateClassInput {
	classType := models.ClassType(req.Type)
	if req.Type == "" {
		classType = models.ClassRegular
	}
	return service.CreateClassInput{
		OrganizationID: req.OrganizationID,
		CoachID:        req.CoachID,
		CenterID:       req.CenterID,
		GroupID:        req.GroupID,
		Name:           req.Name,
		Description:    req.Description,
		Location:       req.Location,
		ScheduledAt:    req.ScheduledAt,
		DurationMin:    req.Duration,
		MaxStudents:    req.MaxStudents,
		Type:           classType,
		Equipment:      req.Equipment,
		Metadata:       req.Metadata,
	}
}

func parseID(c echo.Context, param, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, &service.ValidationError{Field: param, Reason: "invalid " + entity + " id"}
	}
	return id, nil
}
