package handlers

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/CrowderSoup/kanban-board/database"
	"github.com/CrowderSoup/kanban-board/services"
)

// AuthHandler signs users in. A user's id is their lower-cased email.
type AuthHandler struct {
	authService *services.AuthService
	sessions    *services.Sessions
	mailer      services.Mailer
	devLinks    bool
}

// NewAuthHandler builds the login endpoints. Magic links are mailed when
// mailer is set and included in the login response only when devLinks is
// true.
func NewAuthHandler(authService *services.AuthService, sessions *services.Sessions, mailer services.Mailer, devLinks bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		mailer:      mailer,
		devLinks:    devLinks,
	}
}

// Login issues a magic link and delivers it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		http.Error(w, "Invalid email address", http.StatusBadRequest)
		return
	}

	if h.mailer == nil && !h.devLinks {
		http.Error(w, "Login links cannot be delivered", http.StatusServiceUnavailable)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	magicLink, err := h.authService.GenerateMagicLink(email, fmt.Sprintf("%s://%s", scheme, r.Host))
	if err != nil {
		log.Printf("Error generating magic link: %v", err)
		http.Error(w, "Failed to generate login link", http.StatusInternalServerError)
		return
	}

	resp := map[string]string{"status": "success"}
	if h.mailer != nil {
		if err := h.mailer.SendMagicLink(email, magicLink); err != nil {
			log.Printf("Error sending magic link to %s: %v", email, err)
			http.Error(w, "Failed to send login link", http.StatusBadGateway)
			return
		}
		resp["message"] = "Login link sent"
	}
	if h.devLinks {
		resp["magicLink"] = magicLink
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMagicLink redeems a link, loads (or provisions) the user's board
// and redirects to the frontend with a session token.
func (h *AuthHandler) HandleMagicLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusBadRequest)
		return
	}

	email, err := h.authService.VerifyMagicLinkToken(token)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusBadRequest)
		return
	}

	jwtToken, err := h.authService.CreateJWT(email)
	if err != nil {
		log.Printf("Error creating JWT: %v", err)
		http.Error(w, "Authentication error", http.StatusInternalServerError)
		return
	}

	// The board loads again on first use if this fails.
	if _, err := h.sessions.Get(r.Context(), email); err != nil {
		log.Printf("Error preparing board for %s: %v", email, err)
	}

	q := url.Values{"token": {jwtToken}, "email": {email}}
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusFound)
}

// VerifyToken reports the signed-in user and their role on the board they
// see.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	resp := map[string]string{
		"userId": userID,
		"status": "valid",
	}
	store, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		log.Printf("Error loading board for %s: %v", userID, err)
	} else if board := store.Board(); board != nil {
		resp["boardId"] = board.ID
		resp["role"] = string(memberRole(board, userID))
	}
	writeJSON(w, http.StatusOK, resp)
}

func memberRole(b *database.Board, userID string) database.Role {
	for _, m := range b.Members {
		if m.UserID == userID {
			return m.Role
		}
	}
	return ""
}
