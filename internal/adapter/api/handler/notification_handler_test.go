package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantia/internal/adapter/api"
	"plantia/internal/domain/entity"
	"plantia/internal/infrastructure/push"
	"plantia/internal/usecase"
)

type stubUserRepo struct {
	tokens  map[string][]string
	enabled map[string]bool
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		tokens:  make(map[string][]string),
		enabled: make(map[string]bool),
	}
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return &entity.User{ID: id}, nil
}

func (r *stubUserRepo) SaveFCMToken(ctx context.Context, userID, token string) error {
	r.tokens[userID] = append(r.tokens[userID], token)
	return nil
}

func (r *stubUserRepo) RemoveFCMTokens(ctx context.Context, userID string, tokens []string) error {
	return nil
}

func (r *stubUserRepo) SetNotificationEnabled(ctx context.Context, userID string, enabled bool) error {
	r.enabled[userID] = enabled
	return nil
}

type stubSender struct{}

func (stubSender) SendToTokens(ctx context.Context, tokens []string, n push.Notification) ([]string, error) {
	return nil, nil
}

type openLimiter struct{}

func (openLimiter) Allow(userID, action string) (bool, time.Duration) { return true, 0 }

type shutLimiter struct{}

func (shutLimiter) Allow(userID, action string) (bool, time.Duration) { return false, time.Minute }

func notificationRequest(t *testing.T, body string, limiter usecase.RateLimiter) (*NotificationHandler, echo.Context, *httptest.ResponseRecorder, *stubUserRepo) {
	t.Helper()

	userRepo := newStubUserRepo()
	notifier := usecase.NewNotifierUseCase(userRepo, stubSender{}, "https://plantiaworld.web.app")
	h := NewNotificationHandler(notifier, limiter)

	e := echo.New()
	e.Validator = api.NewValidator()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("uid", "u1")

	return h, c, rec, userRepo
}

func TestRegisterTokenHandler(t *testing.T) {
	h, c, rec, userRepo := notificationRequest(t, `{"token":"tok-1"}`, openLimiter{})

	require.NoError(t, h.RegisterToken(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "registered")
	assert.Equal(t, []string{"tok-1"}, userRepo.tokens["u1"])
}

func TestRegisterTokenHandlerValidation(t *testing.T) {
	h, c, rec, _ := notificationRequest(t, `{}`, openLimiter{})

	require.NoError(t, h.RegisterToken(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestRegisterTokenHandlerRateLimited(t *testing.T) {
	h, c, rec, userRepo := notificationRequest(t, `{"token":"tok-1"}`, shutLimiter{})

	require.NoError(t, h.RegisterToken(c))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, userRepo.tokens["u1"])
}

func TestUpdateSettingHandler(t *testing.T) {
	h, c, rec, userRepo := notificationRequest(t, `{"enabled":false}`, openLimiter{})

	require.NoError(t, h.UpdateSetting(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, userRepo.enabled["u1"])
}

func TestUpdateSettingHandlerRequiresField(t *testing.T) {
	h, c, rec, _ := notificationRequest(t, `{}`, openLimiter{})

	require.NoError(t, h.UpdateSetting(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
