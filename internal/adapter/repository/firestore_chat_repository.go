package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"plantia/internal/domain/entity"
	"plantia/internal/domain/repository"
	"plantia/pkg/errors"
	"plantia/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	_, err := r.client.Collection("chats").Doc(chat.ID).Set(ctx, chat)
	if err != nil {
		return errors.Internal("Failed to create chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection("chats").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	chat.ID = doc.Ref.ID

	return &chat, nil
}

func (r *firestoreChatRepository) Update(ctx context.Context, chat *entity.Chat) error {
	chat.UpdatedAt = time.Now()

	_, err := r.client.Collection("chats").Doc(chat.ID).Set(ctx, chat)
	if err != nil {
		return errors.Internal("Failed to update chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	query := r.client.Collection("chats").Where("participants", "array-contains", userID).OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		if status.Code(err) == codes.FailedPrecondition {
			// Index not available for the participants query; fall back to
			// the seller/buyer pair laid down by the old document shape.
			logger.Warn("Participants query rejected for user %s, using seller/buyer fallback: %v", userID, err)
			return r.listBySellerBuyer(ctx, userID, limit, offset)
		}
		return nil, 0, errors.Internal("Failed to fetch chats", err)
	}

	chats := decodeChatDocs(allDocs, userID)
	total := int64(len(chats))

	return paginateChats(chats, limit, offset), total, nil
}

func (r *firestoreChatRepository) listBySellerBuyer(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	sellerDocs, err := r.client.Collection("chats").Where("sellerId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to fetch seller chats", err)
	}
	buyerDocs, err := r.client.Collection("chats").Where("buyerId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to fetch buyer chats", err)
	}

	seen := make(map[string]bool)
	var chats []*entity.Chat
	for _, chat := range decodeChatDocs(append(sellerDocs, buyerDocs...), userID) {
		if seen[chat.ID] {
			continue
		}
		seen[chat.ID] = true
		chats = append(chats, chat)
	}

	total := int64(len(chats))
	return paginateChats(chats, limit, offset), total, nil
}

func decodeChatDocs(docs []*firestore.DocumentSnapshot, userID string) []*entity.Chat {
	var chats []*entity.Chat
	for _, doc := range docs {
		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat document %s: %v", doc.Ref.ID, err)
			continue
		}
		chat.ID = doc.Ref.ID
		if chat.LeftByUser(userID) {
			continue
		}
		chats = append(chats, &chat)
	}
	return chats
}

func paginateChats(chats []*entity.Chat, limit, offset int) []*entity.Chat {
	start := offset
	if start > len(chats) {
		start = len(chats)
	}
	end := len(chats)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return chats[start:end]
}

func (r *firestoreChatRepository) MarkRead(ctx context.Context, chatID, userID string) error {
	_, err := r.client.Collection("chats").Doc(chatID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"unreadCount", userID}, Value: 0},
	})
	if err != nil {
		return errors.Internal("Failed to mark chat as read", err)
	}
	return nil
}

func (r *firestoreChatRepository) Leave(ctx context.Context, chatID, userID string) error {
	_, err := r.client.Collection("chats").Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "leftBy", Value: firestore.ArrayUnion(userID)},
	})
	if err != nil {
		return errors.Internal("Failed to leave chat", err)
	}
	return nil
}

func (r *firestoreChatRepository) WatchByParticipant(ctx context.Context, userID string) (repository.ChatStream, error) {
	query := r.client.Collection("chats").
		Where("participants", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc)
	return newFirestoreChatStream(ctx, query), nil
}

func (r *firestoreChatRepository) WatchBySeller(ctx context.Context, userID string, ordered bool) (repository.ChatStream, error) {
	query := r.client.Collection("chats").Where("sellerId", "==", userID)
	if ordered {
		query = query.OrderBy("updatedAt", firestore.Desc)
	}
	return newFirestoreChatStream(ctx, query), nil
}

func (r *firestoreChatRepository) WatchByBuyer(ctx context.Context, userID string, ordered bool) (repository.ChatStream, error) {
	query := r.client.Collection("chats").Where("buyerId", "==", userID)
	if ordered {
		query = query.OrderBy("updatedAt", firestore.Desc)
	}
	return newFirestoreChatStream(ctx, query), nil
}

// firestoreChatStream adapts a Firestore snapshot listener to the ChatStream
// interface. Every snapshot delivers the full result set of the query.
type firestoreChatStream struct {
	cancel context.CancelFunc
	snaps  chan []*entity.Chat
	errs   chan error
}

func newFirestoreChatStream(ctx context.Context, query firestore.Query) *firestoreChatStream {
	streamCtx, cancel := context.WithCancel(ctx)
	s := &firestoreChatStream{
		cancel: cancel,
		snaps:  make(chan []*entity.Chat, 1),
		errs:   make(chan error, 1),
	}

	go s.run(streamCtx, query)
	return s
}

func (s *firestoreChatStream) run(ctx context.Context, query firestore.Query) {
	iter := query.Snapshots(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.errs <- classifyWatchError(err)
			return
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.errs <- classifyWatchError(err)
			return
		}

		var chats []*entity.Chat
		for _, doc := range docs {
			var chat entity.Chat
			if err := doc.DataTo(&chat); err != nil {
				logger.Warn("Skipping malformed chat document %s: %v", doc.Ref.ID, err)
				continue
			}
			chat.ID = doc.Ref.ID
			chats = append(chats, &chat)
		}

		select {
		case s.snaps <- chats:
		case <-ctx.Done():
			return
		}
	}
}

func classifyWatchError(err error) error {
	if status.Code(err) == codes.FailedPrecondition {
		return errors.Schema("Chat query requires an index that is not available", err)
	}
	return errors.Internal("Chat subscription failed", err)
}

func (s *firestoreChatStream) Snapshots() <-chan []*entity.Chat {
	return s.snaps
}

func (s *firestoreChatStream) Errors() <-chan error {
	return s.errs
}

func (s *firestoreChatStream) Close() {
	s.cancel()
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	message.CreatedAt = time.Now()

	_, err := r.client.Collection("chats").Doc(message.ChatID).Collection("messages").Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetMessagesByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("chats").Doc(chatID).Collection("messages").OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to count messages for chat", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}
		message.ID = doc.Ref.ID

		messages = append(messages, &message)
	}

	return messages, total, nil
}
