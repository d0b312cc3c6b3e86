package usecase

import (
	"context"

	"plantia/internal/domain/entity"
	"plantia/internal/domain/repository"
	"plantia/internal/infrastructure/push"
	"plantia/pkg/errors"
	"plantia/pkg/logger"
)

// NotifierUseCase relays new-message events to the push transport: it picks
// the recipient, honors their notification setting, builds the payload and
// prunes tokens the provider reports as dead. Every failure here is logged
// and swallowed; the message send path never depends on push delivery.
type NotifierUseCase struct {
	userRepo   repository.UserRepository
	sender     push.Sender
	appBaseURL string
}

func NewNotifierUseCase(userRepo repository.UserRepository, sender push.Sender, appBaseURL string) *NotifierUseCase {
	return &NotifierUseCase{
		userRepo:   userRepo,
		sender:     sender,
		appBaseURL: appBaseURL,
	}
}

func (uc *NotifierUseCase) NotifyNewMessage(ctx context.Context, chat *entity.Chat, message *entity.Message) {
	if message.Type == "system" || message.Deleted {
		return
	}
	if message.SenderID == "" {
		return
	}

	recipientID := chat.Counterpart(message.SenderID)
	if recipientID == "" {
		logger.Debug("Notify: chat %s has no counterpart for sender %s", chat.ID, message.SenderID)
		return
	}

	recipient, err := uc.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		logger.Warn("Notify: recipient %s lookup failed: %v", recipientID, err)
		return
	}

	if !recipient.NotificationsEnabled() {
		logger.Debug("Notify: recipient %s has notifications disabled", recipientID)
		return
	}

	tokens := validTokens(recipient.FCMTokens)
	if len(tokens) == 0 {
		logger.Debug("Notify: recipient %s has no FCM tokens", recipientID)
		return
	}

	senderName := message.SenderName
	if senderName == "" {
		if sender, err := uc.userRepo.GetByID(ctx, message.SenderID); err == nil {
			senderName = sender.BestName()
		}
	}
	if senderName == "" {
		senderName = "Plantia"
	}

	title := senderName
	if chat.ProductTitle != "" {
		title = senderName + " · " + chat.ProductTitle
	}

	body := message.Content
	if message.ImageURL != "" {
		body = "📷 Sent a photo"
	}
	if body == "" {
		body = "You have a new message"
	}

	notification := push.Notification{
		Title:  title,
		Body:   body,
		ChatID: chat.ID,
		Link:   uc.appBaseURL + "/chat-room.html?id=" + chat.ID,
		Icon:   uc.appBaseURL + "/icons/icon-192x192.png",
		Badge:  uc.appBaseURL + "/icons/icon-192x192.png",
	}

	dead, err := uc.sender.SendToTokens(ctx, tokens, notification)
	if err != nil {
		logger.Warn("Notify: push for chat %s failed: %v", chat.ID, err)
		return
	}

	if len(dead) > 0 {
		if err := uc.userRepo.RemoveFCMTokens(ctx, recipientID, dead); err != nil {
			logger.Warn("Notify: pruning %d dead tokens for %s failed: %v", len(dead), recipientID, err)
		} else {
			logger.Info("Notify: pruned %d dead tokens for %s", len(dead), recipientID)
		}
	}
}

// RegisterToken stores an FCM registration token on the user document and
// re-enables notifications for them.
func (uc *NotifierUseCase) RegisterToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return errors.BadRequest("Token is required", nil)
	}
	return uc.userRepo.SaveFCMToken(ctx, userID, token)
}

func (uc *NotifierUseCase) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	return uc.userRepo.SetNotificationEnabled(ctx, userID, enabled)
}

func validTokens(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
