package usecase

import (
	"context"
	"encoding/json"
	"time"

	"plantia/internal/domain/entity"
	"plantia/internal/domain/repository"
	ws "plantia/internal/infrastructure/websocket"
	"plantia/pkg/errors"
	"plantia/pkg/logger"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	wsManager   *ws.Manager
	notifier    *NotifierUseCase
	rateLimiter RateLimiter
}

// RateLimiter is satisfied by the token-bucket limiter in
// infrastructure/ratelimit.
type RateLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	wsManager *ws.Manager,
	notifier *NotifierUseCase,
	rateLimiter RateLimiter,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		wsManager:   wsManager,
		notifier:    notifier,
		rateLimiter: rateLimiter,
	}
}

type CreateChatInput struct {
	RecipientID    string
	ProductID      string
	InitialMessage string
}

type SendMessageInput struct {
	ChatID   string
	Content  string
	Type     string // "text", "image", "system"
	ImageURL string
}

type ChatResponse struct {
	*entity.Chat
	Product   *entity.Product `json:"product,omitempty"`
	OtherUser *entity.User    `json:"other_user,omitempty"`
}

type MessageResponse struct {
	*entity.Message
	Sender *entity.User `json:"sender,omitempty"`
}

func (uc *ChatUseCase) CreateChat(ctx context.Context, userID string, input CreateChatInput) (*ChatResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "create_chat")
	if !allowed {
		logger.Warn("CreateChat rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before creating another chat")
	}

	if userID == input.RecipientID {
		return nil, errors.BadRequest("You cannot create a chat with yourself", nil)
	}

	recipient, err := uc.userRepo.GetByID(ctx, input.RecipientID)
	if err != nil {
		return nil, errors.NotFound("Recipient", err)
	}

	var product *entity.Product
	if input.ProductID != "" {
		product, err = uc.productRepo.GetByID(ctx, input.ProductID)
		if err != nil {
			return nil, errors.NotFound("Product", err)
		}
	}

	chat, err := uc.findExistingChat(ctx, userID, input.RecipientID, input.ProductID)
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	if chat == nil {
		chat = &entity.Chat{
			Participants: []string{userID, input.RecipientID},
			BuyerID:      userID,
			SellerID:     input.RecipientID,
			ProductID:    input.ProductID,
			UnreadCount:  make(map[string]int),
		}
		if product != nil {
			// Denormalized so the list can render without a product lookup.
			chat.SellerID = product.SellerID
			if product.SellerID == userID {
				chat.SellerID = userID
				chat.BuyerID = input.RecipientID
			}
			chat.ProductTitle = product.Title
			chat.ProductImage = product.Thumbnail()
		}

		if err := uc.chatRepo.Create(ctx, chat); err != nil {
			return nil, err
		}
	}

	if input.InitialMessage != "" {
		if _, err := uc.SendMessage(ctx, userID, SendMessageInput{
			ChatID:  chat.ID,
			Content: input.InitialMessage,
			Type:    "text",
		}); err != nil {
			return nil, err
		}
	}

	return &ChatResponse{
		Chat:      chat,
		Product:   product,
		OtherUser: recipient,
	}, nil
}

func (uc *ChatUseCase) findExistingChat(ctx context.Context, userID, recipientID, productID string) (*entity.Chat, error) {
	chats, _, err := uc.chatRepo.ListByUserID(ctx, userID, 0, 0)
	if err != nil {
		return nil, err
	}

	for _, chat := range chats {
		if chat.HasParticipant(recipientID) && chat.ProductID == productID {
			return chat, nil
		}
	}

	return nil, errors.NotFound("Chat", nil)
}

func (uc *ChatUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*MessageResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "send_message")
	if !allowed {
		logger.Warn("SendMessage rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message")
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}

	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	sender, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NotFound("Sender", err)
	}

	message := &entity.Message{
		ChatID:     input.ChatID,
		SenderID:   userID,
		SenderName: sender.BestName(),
		Content:    input.Content,
		ImageURL:   input.ImageURL,
		Type:       input.Type,
		ReadBy:     []string{userID},
		CreatedAt:  time.Now(),
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	if message.Type != "system" {
		chat.LastMessage = input.Content
		chat.LastMessageTime = message.CreatedAt
		if chat.UnreadCount == nil {
			chat.UnreadCount = make(map[string]int)
		}
		for _, participantID := range chatParticipants(chat) {
			if participantID != userID {
				chat.UnreadCount[participantID]++
			}
		}

		if err := uc.chatRepo.Update(ctx, chat); err != nil {
			return nil, err
		}
	}

	uc.fanOutMessage(chat, message, userID)

	// Push delivery happens off the request path; a failed push must never
	// fail the send.
	if uc.notifier != nil {
		go uc.notifier.NotifyNewMessage(context.WithoutCancel(ctx), chat, message)
	}

	return &MessageResponse{
		Message: message,
		Sender:  sender,
	}, nil
}

func (uc *ChatUseCase) fanOutMessage(chat *entity.Chat, message *entity.Message, senderID string) {
	if uc.wsManager == nil {
		return
	}

	update := map[string]interface{}{
		"type":            "chat_list_update",
		"chat_id":         chat.ID,
		"last_message":    message.Content,
		"last_message_at": message.CreatedAt.Format(time.RFC3339),
		"sender_id":       senderID,
		"sender_name":     message.SenderName,
		"message_type":    message.Type,
	}
	frame, _ := json.Marshal(update)

	for _, participantID := range chatParticipants(chat) {
		if participantID != senderID {
			uc.wsManager.SendToUser(participantID, frame)
		}
	}
}

func chatParticipants(chat *entity.Chat) []string {
	if len(chat.Participants) > 0 {
		return chat.Participants
	}
	var out []string
	if chat.SellerID != "" {
		out = append(out, chat.SellerID)
	}
	if chat.BuyerID != "" {
		out = append(out, chat.BuyerID)
	}
	return out
}

// GetUserChats returns a one-shot merged list for the REST surface; the live
// view goes through ChatListAggregator instead.
func (uc *ChatUseCase) GetUserChats(ctx context.Context, userID string, limit, offset int) ([]entity.ChatListItem, int64, error) {
	chats, total, err := uc.chatRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	items := EnrichChats(ctx, userID, chats, uc.userRepo, uc.productRepo)
	return items, total, nil
}

func (uc *ChatUseCase) GetChatByID(ctx context.Context, userID, chatID string) (*ChatResponse, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	resp := &ChatResponse{Chat: chat}

	if chat.ProductID != "" && chat.ProductTitle == "" {
		if product, err := uc.productRepo.GetByID(ctx, chat.ProductID); err == nil {
			resp.Product = product
		} else {
			logger.Warn("GetChatByID: product %s not found for chat %s: %v", chat.ProductID, chat.ID, err)
		}
	}

	if otherID := chat.Counterpart(userID); otherID != "" {
		if other, err := uc.userRepo.GetByID(ctx, otherID); err == nil {
			resp.OtherUser = other
		} else {
			logger.Warn("GetChatByID: other user %s not found for chat %s: %v", otherID, chat.ID, err)
		}
	}

	return resp, nil
}

func (uc *ChatUseCase) GetChatMessages(ctx context.Context, userID, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, 0, err
	}

	if !chat.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("User is not a participant in this chat", nil)
	}

	return uc.chatRepo.GetMessagesByChat(ctx, chatID, limit, offset)
}

func (uc *ChatUseCase) MarkChatAsRead(ctx context.Context, userID, chatID string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}

	if !chat.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	return uc.chatRepo.MarkRead(ctx, chatID, userID)
}

// LeaveChat archives the chat for userID; the documents stay in place for
// the other participant.
func (uc *ChatUseCase) LeaveChat(ctx context.Context, userID, chatID string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}

	if !chat.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	return uc.chatRepo.Leave(ctx, chatID, userID)
}
