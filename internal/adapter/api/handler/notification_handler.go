package handler

import (
	"github.com/labstack/echo/v4"

	"plantia/internal/usecase"
	"plantia/pkg/errors"
	"plantia/pkg/response"
)

type NotificationHandler struct {
	notifier    *usecase.NotifierUseCase
	rateLimiter usecase.RateLimiter
}

func NewNotificationHandler(notifier *usecase.NotifierUseCase, rateLimiter usecase.RateLimiter) *NotificationHandler {
	return &NotificationHandler{
		notifier:    notifier,
		rateLimiter: rateLimiter,
	}
}

type registerTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type notificationSettingRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// RegisterToken stores an FCM registration token for the authenticated user
func (h *NotificationHandler) RegisterToken(c echo.Context) error {
	userID := c.Get("uid").(string)

	if allowed, _ := h.rateLimiter.Allow(userID, "register_token"); !allowed {
		return response.Error(c, errors.TooManyRequests("Too many token registrations"))
	}

	var req registerTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.notifier.RegisterToken(c.Request().Context(), userID, req.Token); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "registered"})
}

// UpdateSetting toggles push notifications for the authenticated user
func (h *NotificationHandler) UpdateSetting(c echo.Context) error {
	userID := c.Get("uid").(string)

	var req notificationSettingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.notifier.SetEnabled(c.Request().Context(), userID, *req.Enabled); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"enabled": *req.Enabled})
}
