package push

import (
	"context"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"plantia/pkg/errors"
	"plantia/pkg/logger"
)

// Notification is the payload the push channel delivers: title, body and the
// chat the receiver should land on when tapping it.
type Notification struct {
	Title  string
	Body   string
	ChatID string
	Link   string
	Icon   string
	Badge  string
}

// Sender is the push-delivery transport. SendToTokens returns the tokens the
// provider reported as dead so the caller can prune them.
type Sender interface {
	SendToTokens(ctx context.Context, tokens []string, n Notification) ([]string, error)
}

type FCMClient struct {
	client *messaging.Client
	ttl    int64
}

func NewFCMClient(ctx context.Context, app *firebase.App, ttlSeconds int64) (*FCMClient, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Internal("Failed to initialize FCM client", err)
	}
	return &FCMClient{client: client, ttl: ttlSeconds}, nil
}

func (c *FCMClient) SendToTokens(ctx context.Context, tokens []string, n Notification) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Webpush: &messaging.WebpushConfig{
			Headers: map[string]string{
				"TTL": strconv.FormatInt(c.ttl, 10),
			},
			Notification: &messaging.WebpushNotification{
				Icon:     n.Icon,
				Badge:    n.Badge,
				Tag:      "chat-" + n.ChatID, // replaces earlier alerts for the same room
				Renotify: true,
			},
			FCMOptions: &messaging.WebpushFCMOptions{
				Link: n.Link,
			},
		},
		Data: map[string]string{
			"chatId": n.ChatID,
			"url":    n.Link,
		},
	}

	resp, err := c.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, errors.Internal("Failed to send push notification", err)
	}

	logger.Info("Push for chat %s: %d sent, %d failed", n.ChatID, resp.SuccessCount, resp.FailureCount)

	var dead []string
	for i, r := range resp.Responses {
		if r.Success || r.Error == nil {
			continue
		}
		if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
			dead = append(dead, tokens[i])
		}
	}

	return dead, nil
}
