package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medremind/internal/application/service"
	"medremind/internal/infrastructure/line"
	"medremind/internal/infrastructure/notify"
	"medremind/internal/pkg/hash"
	"medremind/internal/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// LineHandler handles incoming LINE webhook events. Postback actions
// from delivered notifications carry the reminder payload back and are
// routed to the dispatcher as user-activated events.
type LineHandler struct {
	lineClient *line.Client
	dispatcher service.DispatcherService
	log        logger.Logger
}

// NewLineHandler creates a new LineHandler.
func NewLineHandler(
	lineClient *line.Client,
	dispatcher service.DispatcherService,
	log logger.Logger,
) *LineHandler {
	return &LineHandler{
		lineClient: lineClient,
		dispatcher: dispatcher,
		log:        log,
	}
}

// HandleWebhook is the main entry point for webhook requests.
func (h *LineHandler) HandleWebhook(c echo.Context) error {
	events, err := h.lineClient.ParseRequest(c.Request())
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			h.log.Warn("Invalid LINE signature received")
			return c.String(http.StatusBadRequest, "Invalid signature")
		}
		h.log.Error("Failed to parse LINE webhook request", err)
		return c.String(http.StatusInternalServerError, "Error parsing request")
	}

	for _, event := range events {
		switch event.Type {
		case linebot.EventTypePostback:
			h.handlePostbackEvent(c, event)
		default:
			h.log.Debug(fmt.Sprintf("Unhandled event type: %s", event.Type))
		}
	}

	return c.String(http.StatusOK, "OK")
}

// handlePostbackEvent routes a "Taken" tap back into the dispatcher.
// The postback data format is "ack:<reminderID>:<slot>:<fireAtUnix>".
func (h *LineHandler) handlePostbackEvent(c echo.Context, event *linebot.Event) {
	data := event.Postback.Data
	evt, err := parseAckPostback(data)
	if err != nil {
		h.log.Warn(fmt.Sprintf("Ignoring malformed postback %q: %v", data, err))
		return
	}
	h.log.Info(fmt.Sprintf("User acknowledged reminder %s slot %s", evt.ReminderID, evt.Slot))
	h.dispatcher.OnUserActivated(c.Request().Context(), evt)
}

func parseAckPostback(data string) (notify.Event, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 5 || parts[0] != "ack" {
		return notify.Event{}, fmt.Errorf("expected ack:<reminder>:<hh>:<mm>:<unix>")
	}
	slot := parts[2] + ":" + parts[3]
	unix, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return notify.Event{}, fmt.Errorf("bad fire timestamp: %w", err)
	}
	reminderID := parts[1]
	return notify.Event{
		ID:         hash.NotificationID(reminderID, slot),
		ReminderID: reminderID,
		Slot:       slot,
		FireAt:     time.Unix(unix, 0),
	}, nil
}
