package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"plantia/internal/domain/entity"
	"plantia/internal/domain/repository"
	"plantia/pkg/errors"
	"plantia/pkg/logger"
	"plantia/pkg/utils"
)

// AggregatorState tracks the lifecycle of one chat list instance:
// Uninitialized -> Loading -> {Empty | Populated | Error}. Empty and
// Populated flip back and forth on subscription updates; Error is terminal
// for the instance.
type AggregatorState string

const (
	StateUninitialized AggregatorState = "uninitialized"
	StateLoading       AggregatorState = "loading"
	StateEmpty         AggregatorState = "empty"
	StatePopulated     AggregatorState = "populated"
	StateError         AggregatorState = "error"
)

// DefaultAvatar is the generated placeholder shown when a profile carries no
// usable image.
const DefaultAvatar = "data:image/svg+xml,%3Csvg%20xmlns%3D%22http%3A%2F%2Fwww.w3.org%2F2000%2Fsvg%22%20width%3D%2256%22%20height%3D%2256%22%20viewBox%3D%220%200%2056%2056%22%3E%3Ccircle%20cx%3D%2228%22%20cy%3D%2228%22%20r%3D%2228%22%20fill%3D%22%2310b981%22%2F%3E%3Ccircle%20cx%3D%2228%22%20cy%3D%2221%22%20r%3D%2211%22%20fill%3D%22white%22%2F%3E%3Cellipse%20cx%3D%2228%22%20cy%3D%2249%22%20rx%3D%2217%22%20ry%3D%2211%22%20fill%3D%22white%22%2F%3E%3C%2Fsvg%3E"

// ChatListUpdate is handed to the render callback on every state or content
// change. Items is the filtered view when a search keyword is set.
type ChatListUpdate struct {
	State AggregatorState       `json:"state"`
	Items []entity.ChatListItem `json:"items"`
	Err   error                 `json:"-"`
}

type RenderFunc func(ChatListUpdate)

type streamKind int

const (
	kindParticipant streamKind = iota
	kindSeller
	kindBuyer
)

// subscription pairs one live query with its local cache. Caches are owned
// by the aggregator's run loop and never touched from outside it.
type subscription struct {
	kind     streamKind
	ordered  bool
	stream   repository.ChatStream
	cache    map[string]*entity.Chat
	active   bool
	received bool
}

type streamEvent struct {
	sub   *subscription
	chats []*entity.Chat
	err   error
}

// ChatListAggregator keeps one user's chat list current. It opens a live
// participants query against the store, falls back to paired seller/buyer
// queries when the preferred query is rejected for want of an index, merges
// the resulting caches into one deduplicated list sorted by last activity,
// enriches every entry with profile and product lookups, and invokes the
// render callback with the outcome. One instance serves one session and must
// be Closed on teardown.
type ChatListAggregator struct {
	userID      string
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	render      RenderFunc

	mu      sync.Mutex
	state   AggregatorState
	keyword string
	items   []entity.ChatListItem

	subs   []*subscription
	events chan streamEvent
	cancel context.CancelFunc
	done   chan struct{}
}

func NewChatListAggregator(
	userID string,
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	render RenderFunc,
) *ChatListAggregator {
	return &ChatListAggregator{
		userID:      userID,
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		render:      render,
		state:       StateUninitialized,
		events:      make(chan streamEvent, 8),
		done:        make(chan struct{}),
	}
}

// Start opens the preferred subscription and launches the run loop. It
// returns immediately; list content arrives through the render callback.
func (a *ChatListAggregator) Start(ctx context.Context) error {
	if a.userID == "" {
		return errors.Unauthorized("Chat list requires an authenticated user", nil)
	}

	ctx, a.cancel = context.WithCancel(ctx)

	stream, err := a.chatRepo.WatchByParticipant(ctx, a.userID)
	if err == nil {
		a.addSubscription(ctx, &subscription{kind: kindParticipant, ordered: true, stream: stream})
	} else if errors.IsSchema(err) {
		if err := a.startFallback(ctx); err != nil {
			a.setState(StateError)
			a.emit(ChatListUpdate{State: StateError, Err: err})
			close(a.done)
			return err
		}
	} else {
		a.setState(StateError)
		a.emit(ChatListUpdate{State: StateError, Err: err})
		close(a.done)
		return err
	}

	a.setState(StateLoading)
	a.emit(ChatListUpdate{State: StateLoading})

	go a.run(ctx)
	return nil
}

func (a *ChatListAggregator) startFallback(ctx context.Context) error {
	logger.Info("Chat list for user %s: participants query unavailable, using seller/buyer queries", a.userID)

	for _, sub := range a.subscriptions() {
		sub.active = false
		sub.stream.Close()
	}
	a.mu.Lock()
	a.subs = nil
	a.mu.Unlock()

	sellerStream, err := a.chatRepo.WatchBySeller(ctx, a.userID, true)
	if err != nil {
		return err
	}
	buyerStream, err := a.chatRepo.WatchByBuyer(ctx, a.userID, true)
	if err != nil {
		sellerStream.Close()
		return err
	}

	a.addSubscription(ctx, &subscription{kind: kindSeller, ordered: true, stream: sellerStream})
	a.addSubscription(ctx, &subscription{kind: kindBuyer, ordered: true, stream: buyerStream})
	return nil
}

func (a *ChatListAggregator) addSubscription(ctx context.Context, sub *subscription) {
	sub.cache = make(map[string]*entity.Chat)
	sub.active = true
	a.mu.Lock()
	a.subs = append(a.subs, sub)
	a.mu.Unlock()
	go a.forward(ctx, sub)
}

func (a *ChatListAggregator) subscriptions() []*subscription {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*subscription, len(a.subs))
	copy(out, a.subs)
	return out
}

// forward relays one stream's snapshots and errors onto the shared event
// channel so the run loop stays single-threaded.
func (a *ChatListAggregator) forward(ctx context.Context, sub *subscription) {
	for {
		select {
		case chats := <-sub.stream.Snapshots():
			select {
			case a.events <- streamEvent{sub: sub, chats: chats}:
			case <-ctx.Done():
				return
			}
		case err := <-sub.stream.Errors():
			select {
			case a.events <- streamEvent{sub: sub, err: err}:
			case <-ctx.Done():
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// run serializes every merge pass: each event is applied, any events that
// queued up meanwhile are drained first, and only then is a single merge
// executed. A pass therefore never interleaves with another, and redundant
// passes are coalesced rather than run back to back.
func (a *ChatListAggregator) run(ctx context.Context) {
	defer close(a.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.events:
			fatal := a.apply(ctx, ev)
			for !fatal {
				select {
				case queued := <-a.events:
					fatal = a.apply(ctx, queued)
					continue
				default:
				}
				break
			}
			if fatal {
				return
			}
			// A fallback switch leaves fresh caches behind; stay in the
			// loading state until at least one of them has delivered.
			if a.anyReceived() {
				a.merge(ctx)
			}
		}
	}
}

// apply folds one event into the subscription caches. It returns true when
// the aggregator has entered its terminal error state.
func (a *ChatListAggregator) apply(ctx context.Context, ev streamEvent) bool {
	if !ev.sub.active {
		return false
	}

	if ev.err == nil {
		cache := make(map[string]*entity.Chat, len(ev.chats))
		for _, chat := range ev.chats {
			cache[chat.ID] = chat
		}
		ev.sub.cache = cache
		ev.sub.received = true
		return false
	}

	if errors.IsSchema(ev.err) {
		switch ev.sub.kind {
		case kindParticipant:
			if err := a.startFallback(ctx); err != nil {
				return a.fail(err)
			}
			return false
		case kindSeller, kindBuyer:
			if ev.sub.ordered {
				// Ordering needs an index this dataset does not have; retry
				// the same filter unordered and sort locally.
				if err := a.reopenUnordered(ctx, ev.sub); err != nil {
					return a.fail(err)
				}
				return false
			}
		}
	}

	return a.fail(ev.err)
}

func (a *ChatListAggregator) reopenUnordered(ctx context.Context, sub *subscription) error {
	logger.Warn("Chat list for user %s: ordered %s query rejected, retrying unordered", a.userID, subKindName(sub.kind))

	sub.active = false
	sub.stream.Close()

	var (
		stream repository.ChatStream
		err    error
	)
	if sub.kind == kindSeller {
		stream, err = a.chatRepo.WatchBySeller(ctx, a.userID, false)
	} else {
		stream, err = a.chatRepo.WatchByBuyer(ctx, a.userID, false)
	}
	if err != nil {
		return err
	}

	a.addSubscription(ctx, &subscription{kind: sub.kind, ordered: false, stream: stream})
	return nil
}

func (a *ChatListAggregator) fail(err error) bool {
	logger.Error("Chat list for user %s: subscription failed: %v", a.userID, err)
	a.setState(StateError)
	a.emit(ChatListUpdate{State: StateError, Err: err})
	for _, sub := range a.subscriptions() {
		sub.active = false
		sub.stream.Close()
	}
	// The error state is terminal; release the forwarder goroutines now
	// rather than leaving them parked until the session closes.
	a.cancel()
	return true
}

// merge recomputes the full list from the current caches: union across
// subscriptions keeping the most recently updated version of each chat id,
// drop chats the user has left, sort by activity descending. The pass runs
// to completion, enrichment included, before anything is rendered.
func (a *ChatListAggregator) merge(ctx context.Context) {
	best := make(map[string]*entity.Chat)
	for _, sub := range a.subscriptions() {
		if !sub.active {
			continue
		}
		for id, chat := range sub.cache {
			if chat.LeftByUser(a.userID) {
				continue
			}
			if existing, ok := best[id]; ok && existing.SortKey() >= chat.SortKey() {
				continue
			}
			best[id] = chat
		}
	}

	merged := make([]*entity.Chat, 0, len(best))
	for _, chat := range best {
		merged = append(merged, chat)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].SortKey() != merged[j].SortKey() {
			return merged[i].SortKey() > merged[j].SortKey()
		}
		return merged[i].ID < merged[j].ID
	})

	items := EnrichChats(ctx, a.userID, merged, a.userRepo, a.productRepo)

	// The session may have been torn down while enrichment was running;
	// there is nobody left to render for.
	if ctx.Err() != nil {
		return
	}

	a.mu.Lock()
	a.items = items
	if len(items) == 0 {
		a.state = StateEmpty
	} else {
		a.state = StatePopulated
	}
	update := ChatListUpdate{State: a.state, Items: a.filteredLocked()}
	a.mu.Unlock()

	a.emit(update)
}

// SetKeyword applies a free-text filter over the already enriched list and
// re-renders. It never touches the network.
func (a *ChatListAggregator) SetKeyword(keyword string) {
	a.mu.Lock()
	a.keyword = strings.TrimSpace(keyword)
	state := a.state
	update := ChatListUpdate{State: state, Items: a.filteredLocked()}
	a.mu.Unlock()

	if state == StatePopulated || state == StateEmpty {
		a.emit(update)
	}
}

func (a *ChatListAggregator) filteredLocked() []entity.ChatListItem {
	if a.keyword == "" {
		out := make([]entity.ChatListItem, len(a.items))
		copy(out, a.items)
		return out
	}

	needle := strings.ToLower(a.keyword)
	var out []entity.ChatListItem
	for _, item := range a.items {
		if strings.Contains(strings.ToLower(item.SearchKey()), needle) {
			out = append(out, item)
		}
	}
	return out
}

// State returns the current lifecycle state.
func (a *ChatListAggregator) State() AggregatorState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Close tears the instance down: every open subscription is closed, the run
// loop exits, and any merge pass in flight is waited out. The render
// callback is never invoked after Close returns, so callers may release the
// resources it writes to.
func (a *ChatListAggregator) Close() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	for _, sub := range a.subscriptions() {
		sub.stream.Close()
	}
	<-a.done
}

func (a *ChatListAggregator) setState(state AggregatorState) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}

func (a *ChatListAggregator) emit(update ChatListUpdate) {
	if a.render != nil {
		a.render(update)
	}
}

func (a *ChatListAggregator) anyReceived() bool {
	for _, sub := range a.subscriptions() {
		if sub.active && sub.received {
			return true
		}
	}
	return false
}

func subKindName(kind streamKind) string {
	switch kind {
	case kindParticipant:
		return "participants"
	case kindSeller:
		return "seller"
	case kindBuyer:
		return "buyer"
	}
	return "unknown"
}

// EnrichChats builds the view model for each chat concurrently. Profile and
// product lookups are independently fault tolerant: a failed lookup degrades
// that one entry to defaults and never disturbs its neighbours.
func EnrichChats(
	ctx context.Context,
	userID string,
	chats []*entity.Chat,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
) []entity.ChatListItem {
	items := make([]entity.ChatListItem, len(chats))
	now := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i, chat := range chats {
		i, chat := i, chat
		g.Go(func() error {
			items[i] = buildChatListItem(gctx, userID, chat, userRepo, productRepo, now)
			return nil
		})
	}
	g.Wait()

	return items
}

func buildChatListItem(
	ctx context.Context,
	userID string,
	chat *entity.Chat,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	now time.Time,
) entity.ChatListItem {
	otherID := chat.Counterpart(userID)

	name := "Unknown user"
	avatar := DefaultAvatar
	if otherID != "" {
		if other, err := userRepo.GetByID(ctx, otherID); err == nil {
			if n := other.BestName(); n != "" {
				name = n
			}
			if av := other.BestAvatar(); av != "" {
				avatar = av
			}
		} else {
			logger.Warn("Chat %s: profile lookup for %s failed: %v", chat.ID, otherID, err)
		}
	}

	title := chat.ProductTitle
	thumb := chat.ProductImage
	if title == "" && chat.ProductID != "" {
		if product, err := productRepo.GetByID(ctx, chat.ProductID); err == nil {
			title = product.Title
			thumb = product.Thumbnail()
		} else {
			logger.Warn("Chat %s: product lookup for %s failed: %v", chat.ID, chat.ProductID, err)
		}
	}

	return entity.ChatListItem{
		ChatID:        chat.ID,
		OtherUserID:   otherID,
		OtherName:     name,
		OtherAvatar:   avatar,
		ProductTitle:  title,
		ProductThumb:  thumb,
		LastMessage:   chat.LastMessage,
		LastActivity:  chat.SortKey(),
		LastTimeLabel: utils.HumanizeTime(lastActivityTime(chat), now),
		Unread:        chat.UnreadFor(userID),
	}
}

func lastActivityTime(chat *entity.Chat) time.Time {
	if !chat.LastMessageTime.IsZero() {
		return chat.LastMessageTime
	}
	return chat.UpdatedAt
}
