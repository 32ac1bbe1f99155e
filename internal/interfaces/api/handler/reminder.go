package handler

import (
	"errors"
	"net/http"

	"medremind/internal/application/dto"
	"medremind/internal/application/service"
	appErrors "medremind/internal/pkg/errors"
	"medremind/internal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ReminderHandler exposes the reminder controller over HTTP.
type ReminderHandler struct {
	reminderService service.ReminderService
	log             logger.Logger
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(reminderService service.ReminderService, log logger.Logger) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
		log:             log,
	}
}

// List returns the current reminder list.
func (h *ReminderHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.reminderService.ListReminders(c.Request().Context()))
}

// Create validates and stores a new reminder.
func (h *ReminderHandler) Create(c echo.Context) error {
	var req dto.SaveReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	req.ID = ""
	resp, err := h.reminderService.SaveReminder(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Update replaces an existing reminder and re-arms its schedules.
func (h *ReminderHandler) Update(c echo.Context) error {
	var req dto.SaveReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	req.ID = c.Param("id")
	resp, err := h.reminderService.SaveReminder(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete removes a reminder and cancels its schedules.
func (h *ReminderHandler) Delete(c echo.Context) error {
	if err := h.reminderService.DeleteReminder(c.Request().Context(), c.Param("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ToggleSlot enables or disables one of a reminder's time slots.
func (h *ReminderHandler) ToggleSlot(c echo.Context) error {
	var req dto.ToggleSlotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	if err := h.reminderService.ToggleSlot(c.Request().Context(), c.Param("id"), req); err != nil {
		return h.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReminderHandler) writeError(c echo.Context, err error) error {
	switch {
	case isValidationError(err):
		return c.JSON(http.StatusBadRequest, errorBody(err))
	case errors.Is(err, appErrors.ErrReminderNotFound), errors.Is(err, appErrors.ErrSlotNotFound):
		return c.JSON(http.StatusNotFound, errorBody(err))
	default:
		h.log.Error("Reminder request failed", err)
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		appErrors.ErrNameRequired,
		appErrors.ErrDateRequired,
		appErrors.ErrInvalidDate,
		appErrors.ErrPastDate,
		appErrors.ErrDateOrder,
		appErrors.ErrInvalidDailyCount,
		appErrors.ErrTimeCountMismatch,
		appErrors.ErrInvalidTime,
		appErrors.ErrDuplicateTime,
		appErrors.ErrInvalidRepeat,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
