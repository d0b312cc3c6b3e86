package usecase

import (
	"plantia/internal/domain/repository"
)

// AggregatorFactory builds one ChatListAggregator per session over the
// shared repositories.
type AggregatorFactory struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
}

func NewAggregatorFactory(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
) *AggregatorFactory {
	return &AggregatorFactory{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
	}
}

func (f *AggregatorFactory) New(userID string, render RenderFunc) *ChatListAggregator {
	return NewChatListAggregator(userID, f.chatRepo, f.userRepo, f.productRepo, render)
}
