package handlers

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tellyousomeday/api/apperrors"
	"github.com/tellyousomeday/api/services"
	"go.uber.org/zap"
)

// MessageHandler exposes the message service over REST. All domain errors are
// translated to the JSON envelope here; nothing below this layer knows HTTP.
type MessageHandler struct {
	service    *services.MessageService
	ping       func(ctx context.Context) error
	logger     *zap.Logger
	production bool
	startedAt  time.Time
}

func NewMessageHandler(service *services.MessageService, ping func(ctx context.Context) error, logger *zap.Logger, production bool) *MessageHandler {
	return &MessageHandler{
		service:    service,
		ping:       ping,
		logger:     logger,
		production: production,
		startedAt:  time.Now(),
	}
}

func (h *MessageHandler) Create(c *fiber.Ctx) error {
	var in services.CreateMessageInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   string(apperrors.CodeValidation),
			"message": "Invalid request body",
		})
	}

	created, err := h.service.Create(c.Context(), in)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Message saved successfully",
		"data":    created,
	})
}

func (h *MessageHandler) Search(c *fiber.Ctx) error {
	sender := c.Params("senderName")
	if unescaped, err := url.PathUnescape(sender); err == nil {
		sender = unescaped
	}

	in := services.SearchInput{
		SenderName:    sender,
		RecipientType: c.Query("recipientType"),
		DeliveryType:  c.Query("deliveryType"),
		SortBy:        c.Query("sortBy", "createdAt"),
		SortOrder:     c.Query("sortOrder", "desc"),
		Page:          queryInt(c, "page", 1),
		Limit:         queryInt(c, "limit", 20),
	}
	if v := c.Query("isPrivate"); v != "" {
		isPrivate := v == "true"
		in.IsPrivate = &isPrivate
	}

	result, err := h.service.Search(c.Context(), in)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"count":       len(result.Messages),
		"totalCount":  result.TotalCount,
		"page":        result.Page,
		"limit":       result.Limit,
		"hasNextPage": result.HasNextPage,
		"hasPrevPage": result.HasPrevPage,
		"messages":    result.Messages,
	})
}

func (h *MessageHandler) Read(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("messageId"))
	if err != nil {
		return h.renderError(c, apperrors.NotFound("Message not found"))
	}

	var body struct {
		Password string `json:"password"`
	}
	// An empty body is a valid request for public messages.
	_ = c.BodyParser(&body)

	msg, err := h.service.Read(c.Context(), id, body.Password)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}

func (h *MessageHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}

func (h *MessageHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	status := fiber.StatusOK
	health := "ok"
	db := "connected"
	if err := h.ping(ctx); err != nil {
		h.logger.Error("health check: store unreachable", zap.Error(err))
		status = fiber.StatusServiceUnavailable
		health = "degraded"
		db = "unreachable"
	}

	return c.Status(status).JSON(fiber.Map{
		"success":  status == fiber.StatusOK,
		"status":   health,
		"database": db,
		"uptime":   time.Since(h.startedAt).String(),
	})
}

var statusByCode = map[apperrors.Code]int{
	apperrors.CodeValidation:      fiber.StatusBadRequest,
	apperrors.CodeNotFound:        fiber.StatusNotFound,
	apperrors.CodeNotAvailableYet: fiber.StatusForbidden,
	apperrors.CodeSecretRequired:  fiber.StatusUnauthorized,
	apperrors.CodeInvalidSecret:   fiber.StatusUnauthorized,
	apperrors.CodeRateLimited:     fiber.StatusTooManyRequests,
	apperrors.CodeSpamRejected:    fiber.StatusBadRequest,
	apperrors.CodeInternal:        fiber.StatusInternalServerError,
}

func (h *MessageHandler) renderError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal("Internal server error", err)
	}

	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	if status == fiber.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.Path()), zap.Error(appErr))
	}

	body := fiber.Map{
		"success": false,
		"error":   string(appErr.Code),
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	if appErr.Hint != "" {
		body["hint"] = appErr.Hint
	}
	if !appErr.AvailableAt.IsZero() {
		body["availableAt"] = appErr.AvailableAt
	}
	if status == fiber.StatusInternalServerError && !h.production && appErr.Cause != nil {
		body["details"] = []string{appErr.Cause.Error()}
	}

	return c.Status(status).JSON(body)
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
