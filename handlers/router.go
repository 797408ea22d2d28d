package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the auth and board endpoints. Everything under /api
// except the auth entry points requires a session token.
func NewRouter(auth *AuthHandler, board *BoardHandler, middleware *AuthMiddleware) *mux.Router {
	r := mux.NewRouter()

	// Auth routes
	r.HandleFunc("/api/auth/login", auth.Login).Methods("POST")
	r.HandleFunc("/api/auth/magic-link", auth.HandleMagicLink).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth)

	api.HandleFunc("/auth/verify", auth.VerifyToken).Methods("GET")

	// Board
	api.HandleFunc("/board", board.GetBoard).Methods("GET")
	api.HandleFunc("/board/reload", board.ReloadBoard).Methods("POST")
	api.HandleFunc("/board/background", board.SetBackground).Methods("PUT")

	// Columns
	api.HandleFunc("/columns", board.AddColumn).Methods("POST")
	api.HandleFunc("/columns/order", board.ReorderColumns).Methods("PUT")
	api.HandleFunc("/columns/{id}", board.UpdateColumn).Methods("PATCH")
	api.HandleFunc("/columns/{id}", board.DeleteColumn).Methods("DELETE")
	api.HandleFunc("/columns/{id}/tasks", board.AddTask).Methods("POST")
	api.HandleFunc("/columns/{id}/tasks/order", board.ReorderTasks).Methods("PUT")
	api.HandleFunc("/columns/{columnId}/tasks/{id}", board.DeleteTask).Methods("DELETE")

	// Tasks
	api.HandleFunc("/tasks/archived", board.ArchivedTasks).Methods("GET")
	api.HandleFunc("/tasks/search", board.SearchTasks).Methods("GET")
	api.HandleFunc("/tasks/{id}", board.GetTask).Methods("GET")
	api.HandleFunc("/tasks/{id}", board.UpdateTask).Methods("PATCH")
	api.HandleFunc("/tasks/{id}/checklists", board.AddChecklist).Methods("POST")
	api.HandleFunc("/tasks/{id}/comments", board.AddComment).Methods("POST")
	api.HandleFunc("/tasks/{id}/attachments", board.AddAttachment).Methods("POST")

	// Drag and drop
	api.HandleFunc("/moves/preview", board.PreviewMove).Methods("POST")
	api.HandleFunc("/moves", board.CommitMove).Methods("POST")

	// Labels
	api.HandleFunc("/labels", board.CreateLabel).Methods("POST")
	api.HandleFunc("/labels/{id}", board.DeleteLabel).Methods("DELETE")

	// Checklists
	api.HandleFunc("/checklists/{id}/items", board.AddChecklistItem).Methods("POST")
	api.HandleFunc("/checklists/{id}/items/order", board.ReorderChecklistItems).Methods("PUT")
	api.HandleFunc("/checklist-items/{id}", board.ToggleChecklistItem).Methods("PATCH")
	api.HandleFunc("/checklist-items/{id}", board.DeleteChecklistItem).Methods("DELETE")

	// Comments and attachments
	api.HandleFunc("/comments/{id}", board.DeleteComment).Methods("DELETE")
	api.HandleFunc("/attachments/{id}", board.DeleteAttachment).Methods("DELETE")

	// Members
	api.HandleFunc("/members", board.InviteMember).Methods("POST")
	api.HandleFunc("/members/{userId}", board.RemoveMember).Methods("DELETE")

	// WebSocket route for real-time updates
	api.HandleFunc("/ws", board.HandleWebSocket)

	return r
}

// Static serves dir under prefix.
func Static(r *mux.Router, prefix, dir string) {
	r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(dir))))
}
