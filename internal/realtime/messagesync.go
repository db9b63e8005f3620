package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/observ"
	"go.uber.org/zap"
)

var (
	// ErrStale is returned to a caller whose request was superseded by a
	// newer activation before it completed.
	ErrStale    = errors.New("superseded by a newer activation")
	ErrInactive = errors.New("no active conversation")
	ErrBusy     = errors.New("a page load is already in progress")
	ErrClosed   = errors.New("message sync stopped")
)

const DefaultPageSize = 50

// MessageSource reads message rows with their relations.
type MessageSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MessageWithAuthor, error)
	ListBefore(ctx context.Context, conv models.Conversation, cursor *models.Cursor, limit int) ([]models.MessageWithAuthor, error)
}

// Snapshot is a copy of the synchronized state.
type Snapshot struct {
	Conversation models.Conversation        `json:"conversation"`
	Messages     []models.MessageWithAuthor `json:"messages"`
	HasMore      bool                       `json:"has_more"`
}

// MessageSync keeps the message list of one active conversation in step
// with the change feed.
//
// A single goroutine (Run) owns all state. Public methods, change events
// and the results of background fetches are all delivered to it as typed
// operations over one queue, so merges happen strictly one at a time.
// Every activation bumps a generation counter and cancels the fetch
// context of the previous one; a fetch result tagged with an older
// generation is dropped on arrival.
type MessageSync struct {
	feed     Feed
	src      MessageSource
	pageSize int
	logger   *zap.Logger

	ops     chan any
	updates chan Snapshot
	done    chan struct{}
}

func NewMessageSync(feed Feed, src MessageSource, pageSize int, logger *zap.Logger) *MessageSync {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MessageSync{
		feed:     feed,
		src:      src,
		pageSize: pageSize,
		logger:   logger,
		ops:      make(chan any),
		updates:  make(chan Snapshot, 1),
		done:     make(chan struct{}),
	}
}

// Operations consumed by Run.
type (
	activateOp struct {
		conv  models.Conversation
		reply chan error
	}
	deactivateOp struct {
		reply chan struct{}
	}
	loadMoreOp struct {
		reply chan LoadResult
	}
	snapshotOp struct {
		reply chan Snapshot
	}
	pageLoaded struct {
		gen   uint64
		older bool
		rows  []models.MessageWithAuthor
		err   error
	}
	rowLoaded struct {
		gen  uint64
		id   uuid.UUID
		kind Kind
		row  *models.MessageWithAuthor
		err  error
	}
)

// LoadResult is the outcome of a LoadMore: how many older messages were
// merged, or why none were.
type LoadResult struct {
	Added int
	Err   error
}

type syncState struct {
	gen        uint64
	active     bool
	conv       models.Conversation
	list       *MessageList
	tombstones map[uuid.UUID]struct{}
	hasMore    bool

	sub         *Subscription
	events      <-chan ChangeEvent
	fetchCtx    context.Context
	cancelFetch context.CancelFunc

	pendingActivate chan error
	pendingMore     chan LoadResult
}

// Run processes operations until ctx is done. It must be called exactly once.
func (s *MessageSync) Run(ctx context.Context) {
	defer close(s.done)

	st := &syncState{list: NewMessageList(), tombstones: make(map[uuid.UUID]struct{})}
	defer s.reset(st)

	for {
		select {
		case <-ctx.Done():
			return
		case op := <-s.ops:
			s.handle(ctx, st, op)
		case ev, ok := <-st.events:
			if !ok {
				s.logger.Warn("change feed subscription closed", zap.Stringer("conversation", st.conv))
				st.events = nil
				continue
			}
			s.handleEvent(st, ev)
		}
	}
}

// Updates delivers the latest snapshot after every change. Only the most
// recent undelivered snapshot is kept.
func (s *MessageSync) Updates() <-chan Snapshot {
	return s.updates
}

// Activate switches to conv: the previous subscription is closed, its
// in-flight fetches are cancelled, a subscription for conv is opened and
// the latest page is loaded. It returns once that page has been merged.
func (s *MessageSync) Activate(ctx context.Context, conv models.Conversation) error {
	done, err := s.BeginActivate(ctx, conv)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// BeginActivate returns as soon as Run has taken the switch to conv. The
// channel receives the outcome of the first page load exactly once; a
// later activation resolves it with ErrStale. Callers that must keep
// issuing operations while the page loads use this instead of Activate.
func (s *MessageSync) BeginActivate(ctx context.Context, conv models.Conversation) (<-chan error, error) {
	reply := make(chan error, 1)
	if err := s.send(ctx, activateOp{conv: conv, reply: reply}); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *MessageSync) Deactivate(ctx context.Context) error {
	reply := make(chan struct{}, 1)
	if err := s.send(ctx, deactivateOp{reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// LoadMore merges the next page of messages older than the oldest one held
// and returns how many were added. Zero means the history is exhausted.
func (s *MessageSync) LoadMore(ctx context.Context) (int, error) {
	done, err := s.BeginLoadMore(ctx)
	if err != nil {
		return 0, err
	}
	select {
	case res := <-done:
		return res.Added, res.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.done:
		return 0, ErrClosed
	}
}

// BeginLoadMore is the non-blocking form of LoadMore.
func (s *MessageSync) BeginLoadMore(ctx context.Context) (<-chan LoadResult, error) {
	reply := make(chan LoadResult, 1)
	if err := s.send(ctx, loadMoreOp{reply: reply}); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *MessageSync) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := s.send(ctx, snapshotOp{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		return Snapshot{}, ErrClosed
	}
}

func (s *MessageSync) send(ctx context.Context, op any) error {
	select {
	case s.ops <- op:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// deliver hands a background result back to Run.
func (s *MessageSync) deliver(op any) {
	select {
	case s.ops <- op:
	case <-s.done:
	}
}

func (s *MessageSync) handle(ctx context.Context, st *syncState, op any) {
	switch op := op.(type) {
	case activateOp:
		s.activate(ctx, st, op)
	case deactivateOp:
		s.reset(st)
		op.reply <- struct{}{}
	case loadMoreOp:
		s.loadMore(st, op)
	case snapshotOp:
		op.reply <- st.snapshot()
	case pageLoaded:
		s.mergePage(st, op)
	case rowLoaded:
		s.mergeRow(st, op)
	}
}

// reset drops the active conversation. Waiters of the previous activation
// are released with ErrStale.
func (s *MessageSync) reset(st *syncState) {
	st.gen++
	if st.cancelFetch != nil {
		st.cancelFetch()
		st.cancelFetch = nil
	}
	if st.sub != nil {
		st.sub.Close()
		st.sub = nil
	}
	st.events = nil
	st.active = false
	st.conv = models.Conversation{}
	st.list.Reset()
	st.tombstones = make(map[uuid.UUID]struct{})
	st.hasMore = false
	if st.pendingActivate != nil {
		st.pendingActivate <- ErrStale
		st.pendingActivate = nil
	}
	if st.pendingMore != nil {
		st.pendingMore <- LoadResult{Err: ErrStale}
		st.pendingMore = nil
	}
}

func (s *MessageSync) activate(ctx context.Context, st *syncState, op activateOp) {
	s.reset(st)

	// Subscribe before fetching so no change between the two is missed;
	// anything seen twice merges idempotently.
	sub, err := s.feed.Subscribe(ctx, ConversationFilters(op.conv)...)
	if err != nil {
		op.reply <- fmt.Errorf("subscribe: %w", err)
		return
	}
	fetchCtx, cancel := context.WithCancel(ctx)

	st.active = true
	st.conv = op.conv
	st.sub = sub
	st.events = sub.C()
	st.fetchCtx = fetchCtx
	st.cancelFetch = cancel
	st.pendingActivate = op.reply

	gen := st.gen
	go func() {
		rows, err := s.src.ListBefore(fetchCtx, op.conv, nil, s.pageSize)
		s.deliver(pageLoaded{gen: gen, rows: rows, err: err})
	}()
}

func (s *MessageSync) loadMore(st *syncState, op loadMoreOp) {
	switch {
	case !st.active:
		op.reply <- LoadResult{Err: ErrInactive}
		return
	case st.pendingActivate != nil || st.pendingMore != nil:
		op.reply <- LoadResult{Err: ErrBusy}
		return
	case !st.hasMore:
		op.reply <- LoadResult{}
		return
	}

	cursor := st.list.Oldest()
	st.pendingMore = op.reply
	gen, conv, fetchCtx := st.gen, st.conv, st.fetchCtx
	go func() {
		rows, err := s.src.ListBefore(fetchCtx, conv, cursor, s.pageSize)
		s.deliver(pageLoaded{gen: gen, older: true, rows: rows, err: err})
	}()
}

func (s *MessageSync) mergePage(st *syncState, res pageLoaded) {
	if res.gen != st.gen {
		observ.StaleFetchesTotal.Inc()
		return
	}

	rows := make([]models.MessageWithAuthor, 0, len(res.rows))
	for _, m := range res.rows {
		if _, dead := st.tombstones[m.ID]; !dead {
			rows = append(rows, m)
		}
	}

	if !res.older {
		reply := st.pendingActivate
		st.pendingActivate = nil
		if res.err != nil {
			s.reset(st)
			reply <- fmt.Errorf("load messages: %w", res.err)
			return
		}
		for _, m := range rows {
			st.list.Upsert(m)
		}
		st.hasMore = len(res.rows) == s.pageSize
		reply <- nil
		s.publish(st)
		return
	}

	reply := st.pendingMore
	st.pendingMore = nil
	if res.err != nil {
		reply <- LoadResult{Err: fmt.Errorf("load older messages: %w", res.err)}
		return
	}
	added := st.list.PrependOlder(rows)
	st.hasMore = len(res.rows) == s.pageSize
	reply <- LoadResult{Added: added}
	if added > 0 {
		s.publish(st)
	}
}

func (s *MessageSync) handleEvent(st *syncState, ev ChangeEvent) {
	if !st.active {
		return
	}
	switch ev.Table {
	case TableMessages:
		// A reply changes its parent's thread count; replies themselves
		// are not part of the top-level list.
		if ev.ParentID != nil {
			if st.list.Contains(*ev.ParentID) {
				s.refetch(st, *ev.ParentID, KindUpdate)
			}
			return
		}
		if ev.Kind == KindDelete {
			st.tombstones[ev.ID] = struct{}{}
			if st.list.Remove(ev.ID) {
				s.publish(st)
			}
			return
		}
		if _, dead := st.tombstones[ev.ID]; dead {
			return
		}
		s.refetch(st, ev.ID, ev.Kind)
	case TableReactions:
		if ev.MessageID != nil && st.list.Contains(*ev.MessageID) {
			s.refetch(st, *ev.MessageID, KindUpdate)
		}
	}
}

func (s *MessageSync) refetch(st *syncState, id uuid.UUID, kind Kind) {
	gen, fetchCtx := st.gen, st.fetchCtx
	go func() {
		row, err := s.src.GetByID(fetchCtx, id)
		s.deliver(rowLoaded{gen: gen, id: id, kind: kind, row: row, err: err})
	}()
}

func (s *MessageSync) mergeRow(st *syncState, res rowLoaded) {
	if res.gen != st.gen {
		observ.StaleFetchesTotal.Inc()
		return
	}
	if res.err != nil {
		s.logger.Warn("failed to refetch message",
			zap.String("message_id", res.id.String()),
			zap.Error(res.err),
		)
		return
	}
	if _, dead := st.tombstones[res.id]; dead {
		return
	}
	if res.row == nil {
		// Deleted between the event and the fetch.
		if st.list.Remove(res.id) {
			s.publish(st)
		}
		return
	}
	if res.row.ParentID != nil || res.row.Conversation() != st.conv {
		return
	}

	changed := false
	if res.kind == KindInsert {
		st.list.Upsert(*res.row)
		changed = true
	} else {
		changed = st.list.Replace(*res.row)
	}
	if changed {
		s.publish(st)
	}
}

func (s *MessageSync) publish(st *syncState) {
	snap := st.snapshot()
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}

func (st *syncState) snapshot() Snapshot {
	return Snapshot{
		Conversation: st.conv,
		Messages:     st.list.Items(),
		HasMore:      st.hasMore,
	}
}
