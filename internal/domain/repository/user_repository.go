package repository

import (
	"context"

	"plantia/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	SaveFCMToken(ctx context.Context, userID, token string) error
	RemoveFCMTokens(ctx context.Context, userID string, tokens []string) error
	SetNotificationEnabled(ctx context.Context, userID string, enabled bool) error
}
