package repository

import (
	"context"

	"plantia/internal/domain/entity"
)

// ChatStream is a live query handle. Each value on Snapshots is the full
// current result set of the query, not a delta. A value on Errors ends the
// stream; Close must always be called to release the underlying listener.
type ChatStream interface {
	Snapshots() <-chan []*entity.Chat
	Errors() <-chan error
	Close()
}

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	Update(ctx context.Context, chat *entity.Chat) error
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error)
	MarkRead(ctx context.Context, chatID, userID string) error
	Leave(ctx context.Context, chatID, userID string) error

	// Live queries backing the chat list aggregator.
	WatchByParticipant(ctx context.Context, userID string) (ChatStream, error)
	WatchBySeller(ctx context.Context, userID string, ordered bool) (ChatStream, error)
	WatchByBuyer(ctx context.Context, userID string, ordered bool) (ChatStream, error)

	// Message methods
	CreateMessage(ctx context.Context, message *entity.Message) error
	GetMessagesByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)
}
