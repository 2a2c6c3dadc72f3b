package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/whisperwall/whisperwall-backend/internal/models"
)

// storeTimeout bounds every database call made from a handler.
const storeTimeout = 5 * time.Second

// SessionCookieName carries the opaque session token.
const SessionCookieName = "whisperwall_session"

// UserStore is everything the handlers need from persistence.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash, verifyCode string, codeExpiresAt time.Time) (*models.User, error)
	VerifyUser(ctx context.Context, username, code string) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	SetAcceptingMessages(ctx context.Context, userID primitive.ObjectID, accepting bool) error
	AppendMessage(ctx context.Context, username, content string) (models.Message, error)
	ListMessages(ctx context.Context, userID primitive.ObjectID) ([]models.Message, error)
	DeleteMessage(ctx context.Context, userID, messageID primitive.ObjectID) error
}

// SessionProvider resolves and manages session tokens. Injected rather than
// global so tests can authenticate with a double.
type SessionProvider interface {
	Create(ctx context.Context, userID string) (string, error)
	Validate(ctx context.Context, token string) (string, bool, error)
	Invalidate(ctx context.Context, token string) error
}

// SuggestionGenerator produces candidate messages as one '||'-separated string.
type SuggestionGenerator interface {
	Suggest(ctx context.Context) (string, error)
}

// Handler owns the HTTP surface. It keeps no per-request state.
type Handler struct {
	Users         UserStore
	Sessions      SessionProvider
	Suggestions   SuggestionGenerator
	SecureCookies bool // Secure flag on the session cookie (production)
}

func New(users UserStore, sessions SessionProvider, suggestions SuggestionGenerator, secureCookies bool) *Handler {
	return &Handler{
		Users:         users,
		Sessions:      sessions,
		Suggestions:   suggestions,
		SecureCookies: secureCookies,
	}
}

// Response is the common JSON envelope.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, Response{Success: success, Message: message})
}

// sessionToken pulls the token from the session cookie, or from an
// Authorization: Bearer header as a fallback for non-browser clients.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// currentUser resolves the authenticated caller. The ok result is false for
// any missing or invalid session state; handlers must respond 401 and touch
// nothing else.
func (h *Handler) currentUser(r *http.Request) (primitive.ObjectID, bool) {
	token := sessionToken(r)
	if token == "" {
		return primitive.NilObjectID, false
	}

	userIDHex, ok, err := h.Sessions.Validate(r.Context(), token)
	if err != nil || !ok {
		return primitive.NilObjectID, false
	}

	userID, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return userID, true
}

// storeContext returns the context used for store calls. Derived from
// Background, not the request, so an abandoned HTTP request never leaves a
// mutation half-applied.
func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}
