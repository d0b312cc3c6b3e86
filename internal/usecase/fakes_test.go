package usecase

import (
	"context"
	"sync"
	"time"

	"plantia/internal/domain/entity"
	"plantia/internal/domain/repository"
	"plantia/internal/infrastructure/push"
	"plantia/pkg/errors"
)

type fakeStream struct {
	snaps chan []*entity.Chat
	errs  chan error

	mu     sync.Mutex
	closed bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		snaps: make(chan []*entity.Chat, 8),
		errs:  make(chan error, 1),
	}
}

func (s *fakeStream) Snapshots() <-chan []*entity.Chat { return s.snaps }
func (s *fakeStream) Errors() <-chan error             { return s.errs }

func (s *fakeStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) push(chats ...*entity.Chat) {
	s.snaps <- chats
}

func (s *fakeStream) fail(err error) {
	s.errs <- err
}

// fakeChatRepo drives the aggregator through scripted watch behavior and
// backs the write-side use case with in-memory documents.
type fakeChatRepo struct {
	mu sync.Mutex

	chats    map[string]*entity.Chat
	messages []*entity.Message

	watchParticipant func(ctx context.Context, userID string) (repository.ChatStream, error)
	watchSeller      func(ctx context.Context, userID string, ordered bool) (repository.ChatStream, error)
	watchBuyer       func(ctx context.Context, userID string, ordered bool) (repository.ChatStream, error)

	sellerOrderedCalls []bool
	buyerOrderedCalls  []bool
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: make(map[string]*entity.Chat)}
}

func (r *fakeChatRepo) Create(ctx context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat.ID == "" {
		chat.ID = "chat-" + time.Now().Format("150405.000000000")
	}
	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	r.chats[chat.ID] = chat
	return nil
}

func (r *fakeChatRepo) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat, nil
}

func (r *fakeChatRepo) Update(ctx context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat.UpdatedAt = time.Now()
	r.chats[chat.ID] = chat
	return nil
}

func (r *fakeChatRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Chat
	for _, chat := range r.chats {
		if chat.HasParticipant(userID) && !chat.LeftByUser(userID) {
			out = append(out, chat)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeChatRepo) MarkRead(ctx context.Context, chatID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat, ok := r.chats[chatID]; ok && chat.UnreadCount != nil {
		chat.UnreadCount[userID] = 0
	}
	return nil
}

func (r *fakeChatRepo) Leave(ctx context.Context, chatID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat, ok := r.chats[chatID]; ok {
		chat.LeftBy = append(chat.LeftBy, userID)
	}
	return nil
}

func (r *fakeChatRepo) WatchByParticipant(ctx context.Context, userID string) (repository.ChatStream, error) {
	if r.watchParticipant != nil {
		return r.watchParticipant(ctx, userID)
	}
	return newFakeStream(), nil
}

func (r *fakeChatRepo) WatchBySeller(ctx context.Context, userID string, ordered bool) (repository.ChatStream, error) {
	r.mu.Lock()
	r.sellerOrderedCalls = append(r.sellerOrderedCalls, ordered)
	r.mu.Unlock()
	if r.watchSeller != nil {
		return r.watchSeller(ctx, userID, ordered)
	}
	return newFakeStream(), nil
}

func (r *fakeChatRepo) WatchByBuyer(ctx context.Context, userID string, ordered bool) (repository.ChatStream, error) {
	r.mu.Lock()
	r.buyerOrderedCalls = append(r.buyerOrderedCalls, ordered)
	r.mu.Unlock()
	if r.watchBuyer != nil {
		return r.watchBuyer(ctx, userID, ordered)
	}
	return newFakeStream(), nil
}

func (r *fakeChatRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID == "" {
		message.ID = "msg-" + time.Now().Format("150405.000000000")
	}
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeChatRepo) GetMessagesByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

type fakeUserRepo struct {
	mu sync.Mutex

	users   map[string]*entity.User
	failIDs map[string]bool

	savedTokens   map[string][]string
	removedTokens map[string][]string
	enabledSet    map[string]bool
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users:         make(map[string]*entity.User),
		failIDs:       make(map[string]bool),
		savedTokens:   make(map[string][]string),
		removedTokens: make(map[string][]string),
		enabledSet:    make(map[string]bool),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[id] {
		return nil, errors.Internal("User lookup failed", nil)
	}
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (r *fakeUserRepo) SaveFCMToken(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.savedTokens[userID] = append(r.savedTokens[userID], token)
	return nil
}

func (r *fakeUserRepo) RemoveFCMTokens(ctx context.Context, userID string, tokens []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removedTokens[userID] = append(r.removedTokens[userID], tokens...)
	return nil
}

func (r *fakeUserRepo) SetNotificationEnabled(ctx context.Context, userID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabledSet[userID] = enabled
	return nil
}

type fakeProductRepo struct {
	mu sync.Mutex

	products map[string]*entity.Product
	failIDs  map[string]bool
	calls    []string
}

func newFakeProductRepo(products ...*entity.Product) *fakeProductRepo {
	r := &fakeProductRepo{
		products: make(map[string]*entity.Product),
		failIDs:  make(map[string]bool),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.mu.Lock()
	r.calls = append(r.calls, id)
	fail := r.failIDs[id]
	product, ok := r.products[id]
	r.mu.Unlock()

	if fail {
		return nil, errors.Internal("Product lookup failed", nil)
	}
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	return product, nil
}

type fakePushSender struct {
	mu sync.Mutex

	sent []sentPush
	dead []string
	err  error
}

type sentPush struct {
	tokens       []string
	notification push.Notification
}

func (s *fakePushSender) SendToTokens(ctx context.Context, tokens []string, n push.Notification) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, sentPush{tokens: tokens, notification: n})
	return s.dead, nil
}

func (s *fakePushSender) sentPushes() []sentPush {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentPush, len(s.sent))
	copy(out, s.sent)
	return out
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(userID, action string) (bool, time.Duration) { return true, 0 }

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(userID, action string) (bool, time.Duration) {
	return false, time.Minute
}
