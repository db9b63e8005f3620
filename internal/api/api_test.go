package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/auth"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/observ"
	"github.com/lalith-99/huddle/internal/realtime"
	"github.com/lalith-99/huddle/internal/repository"
	"github.com/lalith-99/huddle/internal/repository/memory"
	"github.com/lalith-99/huddle/internal/service"
	"github.com/lalith-99/huddle/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	svc    *service.Service
	b      repository.Backend
	hub    *events.Hub
	broker *realtime.Broker
}

// newTestServer builds the router over a fresh memory backend. wrap, when
// given, may decorate repositories before the service sees them.
func newTestServer(t *testing.T, wrap ...func(*repository.Backend)) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	broker := realtime.NewBroker(logger)
	mem := memory.New(memory.WithPublisher(broker))
	hub := events.NewHub()
	b := mem.Backend()
	for _, w := range wrap {
		w(&b)
	}
	svc := service.New(service.Options{
		Backend: b,
		Storage: storage.NewMemoryStore("http://files.test"),
		Events:  hub,
		Logger:  logger,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		// Sessions log while they wind down; the test logger must outlive them.
		require.Eventually(t, func() bool {
			return testutil.ToFloat64(observ.WSSessions) == 0
		}, 5*time.Second, 10*time.Millisecond)
	})

	router := NewRouter(RouterConfig{
		Service:   svc,
		Profiles:  b.Profiles,
		JWTSecret: testSecret,
		WS: WSOptions{
			Feed:        broker,
			Revalidate:  hub,
			BaseContext: ctx,
		},
		Logger: logger,
	})
	return &testServer{router: router, svc: svc, b: b, hub: hub, broker: broker}
}

// login returns a token for a fresh user whose profile is created on the
// first request.
func (ts *testServer) login(t *testing.T, name string) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	token, err := auth.GenerateToken(id, name+"@example.com", testSecret, time.Hour)
	require.NoError(t, err)
	return id, token
}

type response struct {
	Data       json.RawMessage    `json:"data"`
	Error      string             `json:"error"`
	Message    string             `json:"message"`
	Pagination *models.Pagination `json:"pagination"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, response) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.serve(t, req)
}

func (ts *testServer) serve(t *testing.T, req *http.Request) (int, response) {
	t.Helper()
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	var resp response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestHealthAndAuth(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp := ts.do(t, http.MethodGet, "/v1/teams", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authenticated", resp.Error)

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfileIsCreatedOnFirstRequest(t *testing.T) {
	ts := newTestServer(t)
	id, token := ts.login(t, "ada")

	code, resp := ts.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	p := decode[models.Profile](t, resp.Data)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "ada@example.com", p.Email)

	code, resp = ts.do(t, http.MethodPatch, "/v1/me", token, gin.H{"display_name": "Ada"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, "Ada", *decode[models.Profile](t, resp.Data).DisplayName)

	code, resp = ts.do(t, http.MethodPut, "/v1/me/status", token, gin.H{"status": "sleeping"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid status", resp.Error)
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)
	_, alice := ts.login(t, "alice")
	_, bob := ts.login(t, "bob")

	code, resp := ts.do(t, http.MethodPost, "/v1/teams", alice, gin.H{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	team := decode[models.Team](t, resp.Data)

	tests := []struct {
		name    string
		method  string
		path    string
		token   string
		body    any
		status  int
		message string
	}{
		{"validation", http.MethodPost, "/v1/teams", alice, gin.H{"name": "Acme", "slug": "acme"}, http.StatusBadRequest, "Team slug already taken"},
		{"malformed body", http.MethodPost, "/v1/teams", alice, gin.H{"name": 7}, http.StatusBadRequest, ""},
		{"bad id", http.MethodGet, "/v1/teams/nope", alice, nil, http.StatusBadRequest, "invalid id"},
		{"not found", http.MethodGet, "/v1/teams/" + uuid.NewString(), alice, nil, http.StatusNotFound, "Team not found"},
		{"access denied", http.MethodGet, "/v1/teams/" + team.ID.String(), bob, nil, http.StatusForbidden, "Not a member of this team"},
		{"creator only", http.MethodDelete, "/v1/teams/" + team.ID.String(), bob, nil, http.StatusForbidden, "Only the team creator can delete the team"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := ts.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, code)
			assert.Empty(t, resp.Data)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Error)
			} else {
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestTeamChannelMessageFlow(t *testing.T) {
	ts := newTestServer(t)
	_, alice := ts.login(t, "alice")
	_, bob := ts.login(t, "bob")

	code, resp := ts.do(t, http.MethodPost, "/v1/teams", alice, gin.H{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	team := decode[models.Team](t, resp.Data)

	code, resp = ts.do(t, http.MethodPost, "/v1/teams/join", bob, gin.H{"invite_code": "acme"})
	require.Equal(t, http.StatusOK, code, resp.Error)

	code, resp = ts.do(t, http.MethodGet, "/v1/teams/"+team.ID.String()+"/channels", bob, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	channels := decode[[]models.Channel](t, resp.Data)
	require.Len(t, channels, 1)
	general := channels[0]

	for i := range 3 {
		code, resp = ts.do(t, http.MethodPost, "/v1/messages", alice, gin.H{
			"content":    "hello " + string(rune('a'+i)),
			"channel_id": general.ID,
		})
		require.Equal(t, http.StatusCreated, code, resp.Error)
	}
	msg := decode[models.MessageWithAuthor](t, resp.Data)

	code, resp = ts.do(t, http.MethodGet, "/v1/channels/"+general.ID.String()+"/messages?limit=2", bob, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	page := decode[[]models.MessageWithAuthor](t, resp.Data)
	require.Len(t, page, 2)
	assert.Equal(t, "hello b", page[0].Content)
	assert.Equal(t, &models.Pagination{Page: 1, Limit: 2, Total: 3, HasMore: true}, resp.Pagination)

	before := page[0].CreatedAt.Format(time.RFC3339Nano)
	code, resp = ts.do(t, http.MethodGet, "/v1/channels/"+general.ID.String()+"/messages?before="+before+"&before_id="+page[0].ID.String(), bob, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	older := decode[[]models.MessageWithAuthor](t, resp.Data)
	require.Len(t, older, 1)
	assert.Equal(t, "hello a", older[0].Content)

	code, resp = ts.do(t, http.MethodPost, "/v1/messages/"+msg.ID.String()+"/reactions", bob, gin.H{"emoji": "🎉"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.JSONEq(t, `{"added":true}`, string(resp.Data))

	code, resp = ts.do(t, http.MethodPatch, "/v1/messages/"+msg.ID.String(), bob, gin.H{"content": "mine now"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Can only edit your own messages", resp.Error)

	code, resp = ts.do(t, http.MethodGet, "/v1/messages/search?q=hello&team_id="+team.ID.String(), bob, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Len(t, decode[[]models.SearchResult](t, resp.Data), 3)

	code, _ = ts.do(t, http.MethodGet, "/v1/messages/search?q=hello&team_id=zzz", bob, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFileUpload(t *testing.T) {
	ts := newTestServer(t)
	_, alice := ts.login(t, "alice")

	code, resp := ts.do(t, http.MethodPost, "/v1/teams", alice, gin.H{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	team := decode[models.Team](t, resp.Data)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("folder", "documents"))
	fw, err := mw.CreateFormFile("file", "plan.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/teams/"+team.ID.String()+"/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	code, resp = ts.serve(t, req)
	require.Equal(t, http.StatusCreated, code, resp.Error)
	rec := decode[models.FileRecord](t, resp.Data)
	assert.Equal(t, "plan.pdf", rec.Name)
	assert.Contains(t, rec.URL, "/"+team.ID.String()+"/documents/")

	code, resp = ts.do(t, http.MethodGet, "/v1/teams/"+team.ID.String()+"/files", alice, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, 1, resp.Pagination.Total)

	req = httptest.NewRequest(http.MethodPost, "/v1/teams/"+team.ID.String()+"/files", nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	code, resp = ts.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No file provided", resp.Error)
}

func TestNotificationRoutes(t *testing.T) {
	ts := newTestServer(t)
	aliceID, alice := ts.login(t, "alice")
	bobID, bob := ts.login(t, "bob")

	// both profiles must exist before a DM can be opened
	ts.do(t, http.MethodGet, "/v1/me", alice, nil)
	ts.do(t, http.MethodGet, "/v1/me", bob, nil)

	code, resp := ts.do(t, http.MethodPost, "/v1/dms", alice, gin.H{"user_id": bobID})
	require.Equal(t, http.StatusOK, code, resp.Error)
	dm := decode[models.DirectMessage](t, resp.Data)
	assert.True(t, dm.HasParticipant(aliceID))

	code, resp = ts.do(t, http.MethodPost, "/v1/messages", alice, gin.H{"content": "hi", "dm_id": dm.ID})
	require.Equal(t, http.StatusCreated, code, resp.Error)

	code, resp = ts.do(t, http.MethodGet, "/v1/notifications", bob, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	notes := decode[[]models.Notification](t, resp.Data)
	require.Len(t, notes, 1)

	code, resp = ts.do(t, http.MethodPost, "/v1/notifications/"+notes[0].ID.String()+"/read", alice, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Notification not found", resp.Error)

	code, resp = ts.do(t, http.MethodPost, "/v1/notifications/read-all", bob, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, "All notifications marked as read", resp.Message)

	code, _ = ts.do(t, http.MethodDelete, "/v1/notifications", bob, nil)
	assert.Equal(t, http.StatusOK, code)
}
