package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/CrowderSoup/kanban-board/database"
	"github.com/CrowderSoup/kanban-board/ordering"
	"github.com/CrowderSoup/kanban-board/services"
)

const (
	sendBuffer     = 256
	maxUploadBytes = 10 << 20
)

// BoardHandler exposes the signed-in user's board store over HTTP.
type BoardHandler struct {
	sessions *services.Sessions
	hub      *services.Hub
	upgrader websocket.Upgrader
}

func NewBoardHandler(sessions *services.Sessions, hub *services.Hub, allowedOrigins []string) *BoardHandler {
	return &BoardHandler{
		sessions: sessions,
		hub:      hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// store returns the caller's loaded store, writing the error response
// itself when there is none.
func (h *BoardHandler) store(w http.ResponseWriter, r *http.Request) (*services.BoardStore, string, bool) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return nil, "", false
	}
	store, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		log.Printf("Error loading board for %s: %v", userID, err)
		http.Error(w, "Failed to load board", http.StatusBadGateway)
		return nil, "", false
	}
	return store, userID, true
}

// GetBoard returns the store state including the board.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, store.State())
}

// ReloadBoard drops the cached board and loads it again.
func (h *BoardHandler) ReloadBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}
	h.sessions.Reset(userID)
	h.GetBoard(w, r)
}

func (h *BoardHandler) SetBackground(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req struct {
		Background string `json:"background"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := store.SetBackground(r.Context(), req.Background); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) ArchivedTasks(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, store.ArchivedTasks())
}

func (h *BoardHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, store.SearchTasks(r.URL.Query().Get("q")))
}

func (h *BoardHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	task, columnID, found := store.FindTask(mux.Vars(r)["id"])
	if !found {
		writeError(w, services.ErrTaskNotFound)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"columnId": columnID,
		"task":     task,
	})
}

type titleRequest struct {
	Title string `json:"title"`
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

func (h *BoardHandler) AddColumn(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if !decode(w, r, &req) || !requireTitle(w, &req.Title) {
		return
	}
	col, err := store.AddColumn(r.Context(), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, col)
}

func (h *BoardHandler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if !decode(w, r, &req) || !requireTitle(w, &req.Title) {
		return
	}
	if err := store.UpdateColumn(r.Context(), mux.Vars(r)["id"], req.Title); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.DeleteColumn(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) ReorderColumns(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req orderRequest
	if !decode(w, r, &req) {
		return
	}
	if err := store.ReorderColumns(r.Context(), req.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if !decode(w, r, &req) || !requireTitle(w, &req.Title) {
		return
	}
	task, err := store.AddTask(r.Context(), mux.Vars(r)["id"], req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, task)
}

func (h *BoardHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var patch database.TaskPatch
	if !decode(w, r, &patch) {
		return
	}
	if patch.Title != nil && !requireTitle(w, patch.Title) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := store.UpdateTask(r.Context(), id, patch); err != nil {
		writeError(w, err)
		return
	}
	task, _, _ := store.FindTask(id)
	writeData(w, http.StatusOK, task)
}

func (h *BoardHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := store.DeleteTask(r.Context(), vars["columnId"], vars["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req orderRequest
	if !decode(w, r, &req) {
		return
	}
	if err := store.ReorderTasks(r.Context(), mux.Vars(r)["id"], req.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

// moveRequest is a drag event. A client that only knows what the pointer is
// over sends overId instead of a destination.
type moveRequest struct {
	ordering.Move
	OverID string `json:"overId,omitempty"`
}

func (req *moveRequest) resolve(b *database.Board) ordering.Move {
	m := req.Move
	if m.Destination == nil && req.OverID != "" {
		m.Destination = ordering.ResolveOver(b, m.Kind, req.OverID)
	}
	return m
}

// PreviewMove returns the board as it would look after a drag-over event.
// Nothing is stored.
func (h *BoardHandler) PreviewMove(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	writeData(w, http.StatusOK, store.PreviewMove(req.resolve(store.Board())))
}

// CommitMove applies a drag-end event.
func (h *BoardHandler) CommitMove(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	moved, err := store.CommitMove(r.Context(), req.resolve(store.Board()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"moved": moved,
		"board": store.Board(),
	})
}

// HandleWebSocket upgrades the connection and subscribes it to the caller's
// board.
func (h *BoardHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	store, userID, ok := h.store(w, r)
	if !ok {
		return
	}
	board := store.Board()
	if board == nil {
		writeError(w, services.ErrNoBoard)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	client := &services.Client{
		Hub:     h.hub,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		UserID:  userID,
		BoardID: board.ID,
	}
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.hub.SendBoard(client, board)
}
