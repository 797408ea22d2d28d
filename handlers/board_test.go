package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/kanban-board/database"
	"github.com/CrowderSoup/kanban-board/services"
)

const testUser = "owner@example.com"

type testServer struct {
	router *mux.Router
	auth   *services.AuthService
	token  string
}

func createTestServer(t *testing.T) *testServer {
	t.Helper()
	return createTestServerWithMailer(t, nil, true)
}

func createTestServerWithMailer(t *testing.T, mailer services.Mailer, devLinks bool) *testServer {
	t.Helper()
	dir := t.TempDir()

	db, err := database.InitDB(filepath.Join(dir, "kanban.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := services.NewHub()
	go hub.Run(ctx)

	files, err := services.NewDiskFileStore(filepath.Join(dir, "uploads"), "/uploads/")
	require.NoError(t, err)

	auth := services.NewAuthService("test-secret")
	sessions := services.NewSessions(database.NewGateway(db), hub, files)
	router := NewRouter(NewAuthHandler(auth, sessions, mailer, devLinks), NewBoardHandler(sessions, hub, []string{"*"}), NewAuthMiddleware(auth))

	token, err := auth.CreateJWT(testUser)
	require.NoError(t, err)
	return &testServer{router: router, auth: auth, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "success", envelope.Status)
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

type boardJSON struct {
	database.Board
	ColumnOrder []string `json:"columnOrder"`
}

func (s *testServer) board(t *testing.T) boardJSON {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/board", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var state struct {
		Board  boardJSON       `json:"board"`
		Status services.Status `json:"status"`
	}
	decodeData(t, rec, &state)
	assert.Equal(t, services.StatusReady, state.Status)
	return state.Board
}

func TestAuthRequired(t *testing.T) {
	s := createTestServer(t)

	s.token = ""
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/board", nil).Code)

	s.token = "garbage"
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/board", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/board", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQueryTokenOnlyForWebSocket(t *testing.T) {
	s := createTestServer(t)
	token := s.token
	s.token = ""

	rec := s.do(t, http.MethodGet, "/api/board?token="+url.QueryEscape(token), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type recordingMailer struct {
	to, link string
	err      error
}

func (m *recordingMailer) SendMagicLink(to, link string) error {
	m.to, m.link = to, link
	return m.err
}

func TestLoginMailsLink(t *testing.T) {
	mailer := &recordingMailer{}
	s := createTestServerWithMailer(t, mailer, false)
	s.token = ""

	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "new@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotContains(t, resp, "magicLink")
	assert.Equal(t, "new@example.com", mailer.to)

	link, err := url.Parse(mailer.link)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, s.do(t, http.MethodGet, link.RequestURI(), nil).Code)

	mailer.err = errors.New("relay down")
	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "new@example.com"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLoginWithoutDelivery(t *testing.T) {
	s := createTestServerWithMailer(t, nil, false)
	s.token = ""

	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "new@example.com"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMagicLinkLogin(t *testing.T) {
	s := createTestServer(t)
	s.token = ""

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "nope"}).Code)

	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": " New@Example.com "})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		MagicLink string `json:"magicLink"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	link, err := url.Parse(login.MagicLink)
	require.NoError(t, err)

	rec = s.do(t, http.MethodGet, link.RequestURI(), nil)
	require.Equal(t, http.StatusFound, rec.Code)
	redirect, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	s.token = redirect.Query().Get("token")
	require.NotEmpty(t, s.token)

	rec = s.do(t, http.MethodGet, "/api/auth/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var verified map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verified))
	assert.Equal(t, "new@example.com", verified["userId"])
	assert.Equal(t, "owner", verified["role"])
	assert.NotEmpty(t, verified["boardId"])

	// Links are single use.
	s.token = ""
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, link.RequestURI(), nil).Code)
}

func TestBoardLifecycle(t *testing.T) {
	s := createTestServer(t)

	b := s.board(t)
	assert.Empty(t, b.Columns)
	assert.Empty(t, b.ColumnOrder)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/columns", map[string]string{"title": "  "}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/columns", "not an object").Code)

	var todo, done database.Column
	rec := s.do(t, http.MethodPost, "/api/columns", map[string]string{"title": "To Do"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decodeData(t, rec, &todo)
	assert.Equal(t, 0, todo.Position)

	rec = s.do(t, http.MethodPost, "/api/columns", map[string]string{"title": "Done"})
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeData(t, rec, &done)
	assert.Equal(t, 1, done.Position)

	var tasks []database.Task
	for _, title := range []string{"write", "test", "ship"} {
		rec := s.do(t, http.MethodPost, "/api/columns/"+todo.ID+"/tasks", map[string]string{"title": title})
		require.Equal(t, http.StatusCreated, rec.Code)
		var task database.Task
		decodeData(t, rec, &task)
		tasks = append(tasks, task)
	}
	assert.Equal(t, 2, tasks[2].Position)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/columns/missing/tasks", map[string]string{"title": "x"}).Code)

	rec = s.do(t, http.MethodPatch, "/api/tasks/"+tasks[0].ID, map[string]any{"description": "first draft", "priority": "high"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPatch, "/api/tasks/"+tasks[0].ID, map[string]any{"priority": "urgent"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPatch, "/api/tasks/"+tasks[0].ID, map[string]any{"title": ""}).Code)

	// Drag "ship" to the top of Done.
	rec = s.do(t, http.MethodPost, "/api/moves", map[string]any{
		"itemId":      tasks[2].ID,
		"kind":        "task",
		"destination": map[string]any{"containerId": done.ID, "index": 0},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var moved struct {
		Moved bool `json:"moved"`
	}
	decodeData(t, rec, &moved)
	assert.True(t, moved.Moved)

	rec = s.do(t, http.MethodPut, "/api/columns/"+todo.ID+"/tasks/order", map[string]any{"ids": []string{tasks[1].ID, tasks[0].ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/columns/order", map[string]any{"ids": []string{todo.ID}}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/columns/order", map[string]any{"ids": []string{done.ID, todo.ID}}).Code)

	// Reload from the database and check everything persisted.
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/board/reload", nil).Code)
	b = s.board(t)
	assert.Equal(t, []string{done.ID, todo.ID}, b.ColumnOrder)
	require.Len(t, b.Columns, 2)
	assert.Equal(t, []string{tasks[2].ID}, b.Columns[0].TaskIDs())
	assert.Equal(t, []string{tasks[1].ID, tasks[0].ID}, b.Columns[1].TaskIDs())
	assert.Equal(t, "first draft", b.Columns[1].Tasks[1].Description)
	assert.Equal(t, database.PriorityHigh, b.Columns[1].Tasks[1].Priority)

	rec = s.do(t, http.MethodGet, "/api/tasks/search?q=DRAFT", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []database.Task
	decodeData(t, rec, &found)
	require.Len(t, found, 1)
	assert.Equal(t, tasks[0].ID, found[0].ID)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/columns/"+todo.ID+"/tasks/"+tasks[1].ID, nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/columns/"+todo.ID+"/tasks/"+tasks[1].ID, nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/columns/"+done.ID, nil).Code)

	b = s.board(t)
	assert.Equal(t, []string{todo.ID}, b.ColumnOrder)
	assert.Equal(t, 0, b.Columns[0].Position)
	assert.Equal(t, 0, b.Columns[0].Tasks[0].Position)
}

func TestPreviewMove(t *testing.T) {
	s := createTestServer(t)

	var a, c database.Column
	decodeData(t, s.do(t, http.MethodPost, "/api/columns", map[string]string{"title": "A"}), &a)
	decodeData(t, s.do(t, http.MethodPost, "/api/columns", map[string]string{"title": "C"}), &c)
	var task database.Task
	decodeData(t, s.do(t, http.MethodPost, "/api/columns/"+a.ID+"/tasks", map[string]string{"title": "x"}), &task)

	// Hovering over a column targets its end.
	rec := s.do(t, http.MethodPost, "/api/moves/preview", map[string]any{
		"itemId": task.ID,
		"kind":   "task",
		"overId": c.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var preview boardJSON
	decodeData(t, rec, &preview)
	assert.Empty(t, preview.Columns[0].Tasks)
	assert.Equal(t, []string{task.ID}, preview.Columns[1].TaskIDs())

	b := s.board(t)
	assert.Equal(t, []string{task.ID}, b.Columns[0].TaskIDs())
}

func TestTaskDetailsAPI(t *testing.T) {
	s := createTestServer(t)

	var col database.Column
	decodeData(t, s.do(t, http.MethodPost, "/api/columns", map[string]string{"title": "A"}), &col)
	var task database.Task
	decodeData(t, s.do(t, http.MethodPost, "/api/columns/"+col.ID+"/tasks", map[string]string{"title": "x"}), &task)

	var label database.Label
	rec := s.do(t, http.MethodPost, "/api/labels", map[string]string{"name": "bug", "color": "red"})
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeData(t, rec, &label)
	rec = s.do(t, http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"labels": []map[string]string{{"id": label.ID}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"labels": []map[string]string{{"id": "nope"}}}).Code)

	var cl database.Checklist
	rec = s.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/checklists", map[string]string{"title": "Steps"})
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeData(t, rec, &cl)
	var item database.ChecklistItem
	rec = s.do(t, http.MethodPost, "/api/checklists/"+cl.ID+"/items", map[string]string{"title": "one"})
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeData(t, rec, &item)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPatch, "/api/checklist-items/"+item.ID, map[string]bool{"checked": true}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, "/api/checklist-items/missing", map[string]bool{"checked": true}).Code)

	rec = s.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{"content": "looks good"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var comment database.Comment
	decodeData(t, rec, &comment)
	assert.Equal(t, testUser, comment.UserID)

	rec = s.do(t, http.MethodGet, "/api/tasks/"+task.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		ColumnID string        `json:"columnId"`
		Task     database.Task `json:"task"`
	}
	decodeData(t, rec, &got)
	assert.Equal(t, col.ID, got.ColumnID)
	assert.Equal(t, []database.Label{label}, got.Task.Labels)
	require.Len(t, got.Task.Checklists, 1)
	assert.True(t, got.Task.Checklists[0].Items[0].Checked)
	require.Len(t, got.Task.Comments, 1)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/tasks/missing", nil).Code)
}

func TestAttachmentUpload(t *testing.T) {
	s := createTestServer(t)

	var col database.Column
	decodeData(t, s.do(t, http.MethodPost, "/api/columns", map[string]string{"title": "A"}), &col)
	var task database.Task
	decodeData(t, s.do(t, http.MethodPost, "/api/columns/"+col.ID+"/tasks", map[string]string{"title": "x"}), &task)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+task.ID+"/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var a database.Attachment
	decodeData(t, rec, &a)
	assert.Equal(t, "notes.txt", a.Name)
	assert.True(t, strings.HasPrefix(a.URL, "/uploads/"))

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/attachments/"+a.ID, nil).Code)
}

func TestMembersAPI(t *testing.T) {
	s := createTestServer(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/members", map[string]string{"userId": "friend@example.com"}).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/members", map[string]string{"userId": "friend@example.com"}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/members/"+testUser, nil).Code)

	// The invited member sees the owner's board.
	owner := s.board(t)
	friendToken, err := s.auth.CreateJWT("friend@example.com")
	require.NoError(t, err)
	s.token = friendToken
	assert.Equal(t, owner.ID, s.board(t).ID)
}

func TestWebSocketReceivesBoard(t *testing.T) {
	s := createTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws?token=" + url.QueryEscape(s.token)
	dial := func() *websocket.Conn {
		t.Helper()
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	readFrom := func(conn *websocket.Conn) services.WebSocketMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg services.WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	conn := dial()
	read := func() services.WebSocketMessage {
		t.Helper()
		return readFrom(conn)
	}

	assert.Equal(t, "board", read().Type)

	// A second connection gets its own snapshot; the first does not.
	second := dial()
	assert.Equal(t, "board", readFrom(second).Type)

	require.NoError(t, conn.WriteJSON(services.WebSocketMessage{Type: "ping"}))
	assert.Equal(t, "pong", read().Type)

	rec := s.do(t, http.MethodPost, "/api/columns", map[string]string{"title": "Live"})
	require.Equal(t, http.StatusCreated, rec.Code)

	msg := read()
	assert.Equal(t, "board", msg.Type)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Len(t, data["columns"], 1)
}
