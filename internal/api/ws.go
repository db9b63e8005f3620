package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/observ"
	"github.com/lalith-99/huddle/internal/realtime"
	"github.com/lalith-99/huddle/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxCommandSize = 4 << 10
	sendBuffer     = 32
	commandBuffer  = 8
)

// Frame types pushed to the client.
const (
	FrameMessages      = "messages"
	FrameNotifications = "notifications"
	FramePresence      = "presence"
	FrameRevalidate    = "revalidate"
	FrameError         = "error"
)

// Command types sent by the client.
const (
	CommandActivate   = "activate"
	CommandDeactivate = "deactivate"
	CommandLoadMore   = "load_more"
	CommandStatus     = "status"
)

type WSOptions struct {
	Feed realtime.Feed

	// Revalidate, when set, relays action events as revalidate frames.
	Revalidate events.Subscriber

	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
	PageSize          int

	// AllowedOrigins limits the Origin header of upgrade requests. Empty
	// allows any origin.
	AllowedOrigins []string

	// BaseContext bounds every session; cancelling it closes them all.
	BaseContext context.Context
}

// WSHandler upgrades GET /v1/ws into a realtime session for the caller.
type WSHandler struct {
	svc      *service.Service
	opts     WSOptions
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(svc *service.Service, opts WSOptions, logger *zap.Logger) *WSHandler {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = realtime.DefaultHeartbeatInterval
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	h := &WSHandler{svc: svc, opts: opts, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, r.Header.Get("Origin"))
}

// Serve handles GET /v1/ws
func (h *WSHandler) Serve(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		fail(c, apperr.NotAuthenticated())
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered the request.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	observ.WSSessions.Inc()
	defer observ.WSSessions.Dec()

	s := newSession(h, conn, userID)
	err = s.run(h.opts.BaseContext)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Info("websocket session ended", zap.Error(err))
	}
}

type frame struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type command struct {
	Type      string        `json:"type"`
	ChannelID *uuid.UUID    `json:"channel_id,omitempty"`
	DMID      *uuid.UUID    `json:"dm_id,omitempty"`
	Status    models.Status `json:"status,omitempty"`
}

type messagesPayload struct {
	Conversation models.Conversation        `json:"conversation"`
	Messages     []models.MessageWithAuthor `json:"messages"`
	Groups       []realtime.MessageGroup    `json:"groups"`
	HasMore      bool                       `json:"has_more"`
}

type notificationsPayload struct {
	Items  []models.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

type revalidatePayload struct {
	Action events.Action `json:"action"`
	Path   string        `json:"path"`
}

// session is one connected client. Every goroutine writes through out;
// writeLoop is the only writer on conn.
type session struct {
	h      *WSHandler
	svc    *service.Service
	conn   *websocket.Conn
	userID uuid.UUID
	logger *zap.Logger

	out  chan frame
	cmds chan command
	sync *realtime.MessageSync
	hb   *realtime.Heartbeat

	// g runs the session goroutines and the waits on page loads started
	// by commands.
	g *errgroup.Group
}

func newSession(h *WSHandler, conn *websocket.Conn, userID uuid.UUID) *session {
	logger := h.logger.With(zap.String("user_id", userID.String()))
	s := &session{
		h:      h,
		svc:    h.svc,
		conn:   conn,
		userID: userID,
		logger: logger,
		out:    make(chan frame, sendBuffer),
		cmds:   make(chan command, commandBuffer),
	}
	s.sync = realtime.NewMessageSync(h.opts.Feed, sessionSource{svc: h.svc, userID: userID}, h.opts.PageSize, logger)
	s.hb = realtime.NewHeartbeat(h.svc, userID, h.opts.HeartbeatInterval, logger)
	return s
}

func (s *session) run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	s.g = g

	// ReadMessage does not observe ctx; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()
	defer s.conn.Close()

	g.Go(func() error { return s.writeLoop(ctx) })
	g.Go(func() error {
		s.sync.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.hb.Run(ctx)
		return nil
	})
	g.Go(func() error { return s.forwardMessages(ctx) })
	g.Go(func() error { return s.watchNotifications(ctx) })
	g.Go(func() error { return s.watchPresence(ctx) })
	if s.h.opts.Revalidate != nil {
		g.Go(func() error { return s.watchRevalidate(ctx) })
	}
	g.Go(func() error { return s.commandLoop(ctx) })
	g.Go(func() error {
		defer cancel()
		return s.readLoop()
	})
	return g.Wait()
}

func (s *session) send(ctx context.Context, f frame) error {
	select {
	case s.out <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) sendError(ctx context.Context, err error) error {
	return s.send(ctx, frame{Type: FrameError, Error: apperr.MessageOf(err)})
}

func (s *session) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return ctx.Err()
		case f := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(f); err != nil {
				return err
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

// readLoop decodes client commands until the connection closes. A
// malformed command is answered with an error frame.
func (s *session) readLoop() error {
	s.conn.SetReadLimit(maxCommandSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var cmd command
		if err := s.conn.ReadJSON(&cmd); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				select {
				case s.out <- frame{Type: FrameError, Error: "Malformed command"}:
				default:
				}
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return err
			}
			return nil
		}
		select {
		case s.cmds <- cmd:
		default:
			select {
			case s.out <- frame{Type: FrameError, Error: "Too many pending commands"}:
			default:
			}
		}
	}
}

func (s *session) commandLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-s.cmds:
			if err := s.handle(ctx, cmd); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if err := s.sendError(ctx, err); err != nil {
					return nil
				}
			}
		}
	}
}

// handle never waits on a page load: the command loop must stay free so a
// later activate can supersede a slow one. Load outcomes are awaited in
// the background and only failures are reported.
func (s *session) handle(ctx context.Context, cmd command) error {
	switch cmd.Type {
	case CommandActivate:
		conv, ok := models.MessageInput{ChannelID: cmd.ChannelID, DMID: cmd.DMID}.Conversation()
		if !ok {
			return apperr.Validation("Must specify either channel or DM")
		}
		done, err := s.sync.BeginActivate(ctx, conv)
		if err != nil {
			return err
		}
		s.g.Go(func() error {
			select {
			case err := <-done:
				if err != nil && !errors.Is(err, realtime.ErrStale) {
					_ = s.sendError(ctx, err)
				}
			case <-ctx.Done():
			}
			return nil
		})
		return nil
	case CommandDeactivate:
		return s.sync.Deactivate(ctx)
	case CommandLoadMore:
		done, err := s.sync.BeginLoadMore(ctx)
		if err != nil {
			return err
		}
		s.g.Go(func() error {
			select {
			case res := <-done:
				if err := loadMoreError(res.Err); err != nil {
					_ = s.sendError(ctx, err)
				}
			case <-ctx.Done():
			}
			return nil
		})
		return nil
	case CommandStatus:
		// Holds until the next heartbeat re-asserts online.
		_, err := s.svc.UpdateStatus(ctx, s.userID, cmd.Status)
		return err
	}
	return apperr.Validation("Unknown command")
}

func loadMoreError(err error) error {
	switch {
	case errors.Is(err, realtime.ErrInactive):
		return apperr.Validation("No active conversation")
	case errors.Is(err, realtime.ErrBusy), errors.Is(err, realtime.ErrStale):
		return nil
	}
	return err
}

func (s *session) forwardMessages(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-s.sync.Updates():
			payload := messagesPayload{
				Conversation: snap.Conversation,
				Messages:     snap.Messages,
				Groups:       realtime.GroupMessages(snap.Messages, realtime.GroupWindow),
				HasMore:      snap.HasMore,
			}
			if err := s.send(ctx, frame{Type: FrameMessages, Data: payload}); err != nil {
				return nil
			}
		}
	}
}

func (s *session) watchNotifications(ctx context.Context) error {
	sub, err := s.h.opts.Feed.Subscribe(ctx, realtime.Filter{Table: realtime.TableNotifications, UserID: &s.userID})
	if err != nil {
		return err
	}
	defer sub.Close()

	rows, err := s.svc.ListNotifications(ctx, s.userID, 0)
	if err != nil {
		_ = s.sendError(ctx, err)
		rows = nil
	}
	list := realtime.NewNotificationList(rows)
	push := func() error {
		return s.send(ctx, frame{Type: FrameNotifications, Data: notificationsPayload{
			Items:  list.Items(),
			Unread: list.UnreadCount(),
		}})
	}
	if err := push(); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			changed, err := list.Apply(ev)
			if err != nil {
				s.logger.Warn("dropping notification event", zap.Error(err))
				continue
			}
			if changed {
				if err := push(); err != nil {
					return nil
				}
			}
		}
	}
}

func (s *session) watchPresence(ctx context.Context) error {
	sub, err := s.h.opts.Feed.Subscribe(ctx, realtime.Filter{Table: realtime.TablePresence})
	if err != nil {
		return err
	}
	defer sub.Close()

	tracker := realtime.NewPresenceTracker(s.h.opts.StaleAfter)
	if rows, err := s.svc.ListPresence(ctx, s.userID); err == nil {
		tracker.Load(rows)
	} else {
		_ = s.sendError(ctx, err)
	}
	push := func() error {
		return s.send(ctx, frame{Type: FramePresence, Data: tracker.Snapshot(time.Now())})
	}
	if err := push(); err != nil {
		return nil
	}

	// Online users go stale without any event; re-evaluate periodically.
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := push(); err != nil {
				return nil
			}
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if tracker.Apply(ev) {
				if err := push(); err != nil {
					return nil
				}
			}
		}
	}
}

func (s *session) watchRevalidate(ctx context.Context) error {
	ch, err := s.h.opts.Revalidate.Subscribe(ctx)
	if err != nil {
		s.logger.Warn("revalidation feed unavailable", zap.Error(err))
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if !s.svc.Visible(ctx, s.userID, ev) {
				continue
			}
			if err := s.send(ctx, frame{Type: FrameRevalidate, Data: revalidatePayload{Action: ev.Action, Path: ev.Path}}); err != nil {
				return nil
			}
		}
	}
}

// sessionSource reads messages as the session's user. Rows the user can
// no longer see read as missing.
type sessionSource struct {
	svc    *service.Service
	userID uuid.UUID
}

func (s sessionSource) GetByID(ctx context.Context, id uuid.UUID) (*models.MessageWithAuthor, error) {
	m, err := s.svc.GetMessage(ctx, s.userID, id)
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrAccessDenied) {
		return nil, nil
	}
	return m, err
}

func (s sessionSource) ListBefore(ctx context.Context, conv models.Conversation, cursor *models.Cursor, limit int) ([]models.MessageWithAuthor, error) {
	return s.svc.GetMessagesBefore(ctx, s.userID, conv, cursor, limit)
}
