package handler

import (
	"net/http"

	"github.com/coachhub/scheduler/internal/dto"
	"github.com/coachhub/scheduler/internal/models"
	"github.com/coachhub/scheduler/internal/service"
	"github.com/labstack/echo/v4"
)

type GroupHandler struct {
	svc      service.GroupService
	classSvc service.ClassService
}

func NewGroupHandler(svc service.GroupService, classSvc service.ClassService) *GroupHandler {
	return &GroupHandler{svc: svc, classSvc: classSvc}
}

func (h *GroupHandler) RegisterRoutes(e *echo.Echo) {
	groups := e.Group("/api/v1/groups")
	groups.POST("", h.CreateGroup)
	groups.GET("/:id", h.GetGroup)
	groups.POST("/:id/members", h.AddMember)
	groups.DELETE("/:id/members/:sid", h.RemoveMember)
	groups.POST("/:id/status", h.TransitionGroup)
	groups.POST("/:id/generate-classes", h.GenerateClasses)
}

func (h *GroupHandler) CreateGroup(c echo.Context) error {
	var req dto.CreateGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	in := service.CreateGroupInput{
		OrganizationID: req.OrganizationID,
		CoachID:        req.CoachID,
		CenterID:       req.CenterID,
		Name:           req.Name,
		Description:    req.Description,
		Type:           models.GroupType(req.Type),
		MaxStudents:    req.MaxStudents,
		Level:          req.Level,
		AgeGroup:       req.AgeGroup,
		Equipment:      req.Equipment,
		Metadata:       req.Metadata,
	}
	if req.SchedulePattern != nil {
		pattern := req.SchedulePattern.ToModel()
		in.SchedulePattern = &pattern
	}

	group, err := h.svc.CreateGroup(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.ToGroupResponse(group))
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	id, err := parseID(c, "id", "group")
	if err != nil {
		return err
	}
	group, err := h.svc.GetGroup(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToGroupResponse(group))
}

func (h *GroupHandler) AddMember(c echo.Context) error {
	id, err := parseID(c, "id", "group")
	if err != nil {
		return err
	}

	var req dto.AddMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	group, err := h.svc.AddMember(c.Request().Context(), id, req.StudentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToGroupResponse(group))
}

func (h *GroupHandler) RemoveMember(c echo.Context) error {
	id, err := parseID(c, "id", "group")
	if err != nil {
		return err
	}
	studentID, err := parseID(c, "sid", "student")
	if err != nil {
		return err
	}

	group, err := h.svc.RemoveMember(c.Request().Context(), id, studentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToGroupResponse(group))
}

func (h *GroupHandler) TransitionGroup(c echo.Context) error {
	id, err := parseID(c, "id", "group")
	if err != nil {
		return err
	}

	var req dto.GroupStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	group, err := h.svc.TransitionGroup(c.Request().Context(), id, models.GroupStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToGroupResponse(group))
}

func (h *GroupHandler) GenerateClasses(c echo.Context) error {
	id, err := parseID(c, "id", "group")
	if err != nil {
		return err
	}

	var req dto.GenerateClassesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	classes, err := h.classSvc.GenerateFromGroup(c.Request().Context(), service.GenerateClassesInput{
		GroupID:     id,
		StartDate:   req.StartDate,
		DaysAhead:   req.DaysAhead,
		Name:        req.Name,
		Location:    req.Location,
		DurationMin: req.Duration,
		MaxStudents: req.MaxStudents,
		Type:        models.ClassType(req.Type),
	})
	if err != nil {
		return err
	}

	resp := make([]dto.ClassResponse, len(classes))
	for i := range classes {
		resp[i] = dto.ToClassResponse(&classes[i])
	}
	return c.JSON(http.StatusCreated, resp)
}
