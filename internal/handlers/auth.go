package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/sessions"

	"cpl-edge-go/internal/models"
)

const sessionName = "cpl-edge-session"

var (
	sessionOnce sync.Once
	cookieStore *sessions.CookieStore
)

// sessionStore builds the cookie store on first use rather than at package
// init, so a SESSION_SECRET loaded from .env by main is honored.
func sessionStore() *sessions.CookieStore {
	sessionOnce.Do(func() {
		cookieStore = sessions.NewCookieStore([]byte(sessionSecret()))
	})
	return cookieStore
}

func sessionSecret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "secret-key-change-in-production"
}

// LoginHandler authenticates an editor. Accounts with TOTP enabled must also
// send a valid code in the same request.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Code     string `json:"code,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.CheckPassword(req.Password) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if user.TOTPEnabled {
		if req.Code == "" {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "totp_required": true})
			return
		}
		if !models.VerifyTOTPCode(user.TOTPSecret, req.Code) {
			http.Error(w, "Invalid verification code", http.StatusUnauthorized)
			return
		}
	}

	session, _ := sessionStore().Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Values["role"] = user.Role
	session.Save(r, w)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// LogoutHandler clears the session.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionStore().Get(r, sessionName)
	session.Values["user_id"] = nil
	session.Options.MaxAge = -1
	session.Save(r, w)

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware checks if user is authenticated
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessionStore().Get(r, sessionName)
		userID, ok := session.Values["user_id"].(int)
		if !ok || userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// AdminMiddleware checks if user is admin
func AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessionStore().Get(r, sessionName)
		role, ok := session.Values["role"].(string)
		if !ok || role != "admin" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// GetCurrentUser returns the current user from session
func GetCurrentUser(r *http.Request) (int, string, string) {
	session, _ := sessionStore().Get(r, sessionName)
	userID, _ := session.Values["user_id"].(int)
	username, _ := session.Values["username"].(string)
	role, _ := session.Values["role"].(string)
	return userID, username, role
}

// EnsureDefaultAdmin creates a default admin account on first start.
func (h *Handler) EnsureDefaultAdmin(ctx context.Context) {
	users, err := h.Store.GetUsers(ctx)
	if err != nil || len(users) == 0 {
		user, err := h.Store.CreateUser(ctx, "admin", "admin123", "admin")
		if err != nil {
			log.Println("Failed to create default admin:", err)
		} else {
			log.Printf("Created default admin user: %s / admin123", user.Username)
		}
	}
}
