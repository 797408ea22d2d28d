package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

func (h *BoardHandler) CreateLabel(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if !decode(w, r, &req) || !requireTitle(w, &req.Name) {
		return
	}
	label, err := store.CreateLabel(r.Context(), req.Name, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, label)
}

func (h *BoardHandler) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.DeleteLabel(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) AddChecklist(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if !decode(w, r, &req) || !requireTitle(w, &req.Title) {
		return
	}
	cl, err := store.AddChecklist(r.Context(), mux.Vars(r)["id"], req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, cl)
}

func (h *BoardHandler) AddChecklistItem(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if !decode(w, r, &req) || !requireTitle(w, &req.Title) {
		return
	}
	item, err := store.AddChecklistItem(r.Context(), mux.Vars(r)["id"], req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (h *BoardHandler) ToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req struct {
		Checked bool `json:"checked"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := store.ToggleChecklistItem(r.Context(), mux.Vars(r)["id"], req.Checked); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) DeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.DeleteChecklistItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) ReorderChecklistItems(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req orderRequest
	if !decode(w, r, &req) {
		return
	}
	if err := store.ReorderChecklistItems(r.Context(), mux.Vars(r)["id"], req.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	store, userID, ok := h.store(w, r)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Content = strings.TrimSpace(req.Content); req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}
	cm, err := store.AddComment(r.Context(), mux.Vars(r)["id"], userID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, cm)
}

func (h *BoardHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.DeleteComment(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

// AddAttachment accepts a multipart upload in the "file" field.
func (h *BoardHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	a, err := store.AddAttachment(r.Context(), mux.Vars(r)["id"], header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, a)
}

func (h *BoardHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.DeleteAttachment(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Board())
}

func (h *BoardHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	var req struct {
		UserID string `json:"userId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.UserID = strings.TrimSpace(req.UserID); req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	if err := store.InviteMember(r.Context(), req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Members())
}

func (h *BoardHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.RemoveMember(r.Context(), mux.Vars(r)["userId"]); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, store.Members())
}
