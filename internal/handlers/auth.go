package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/whisperwall/whisperwall-backend/internal/middleware"
	"github.com/whisperwall/whisperwall-backend/internal/services"
	"github.com/whisperwall/whisperwall-backend/pkg/utils"
)

// VerifyCodeTTL is how long a signup verification code stays valid.
const VerifyCodeTTL = time.Hour

// SignupRequest registers a new account.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest confirms a signup code.
type VerifyRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// SigninRequest accepts username or email as the identifier.
type SigninRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// AuthResponse returns account data without credentials.
type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	User    map[string]interface{} `json:"user,omitempty"`
}

func userPayload(id, username, email string, accepting, verified bool) map[string]interface{} {
	return map[string]interface{}{
		"id":                    id,
		"username":              username,
		"email":                 email,
		"is_accepting_messages": accepting,
		"is_verified":           verified,
	}
}

// Signup registers a user and issues a verification code. Code delivery
// (email) is handled outside this service; the code is logged so operators
// can assist during development.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	if err := utils.ValidateUsername(req.Username); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !utils.ValidEmail(email) {
		writeMessage(w, http.StatusBadRequest, false, "Invalid email address")
		return
	}
	if len(req.Password) < 8 {
		writeMessage(w, http.StatusBadRequest, false, "Password must be at least 8 characters")
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		log.Printf("password hash failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to register user")
		return
	}

	code, err := utils.GenerateVerifyCode()
	if err != nil {
		log.Printf("verify code generation failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to register user")
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	username := utils.NormalizeUsername(req.Username)
	user, err := h.Users.CreateUser(ctx, username, email, passwordHash, code, time.Now().Add(VerifyCodeTTL))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			writeMessage(w, http.StatusConflict, false, "Username is already taken")
		case errors.Is(err, services.ErrEmailTaken):
			writeMessage(w, http.StatusConflict, false, "Email is already registered")
		default:
			log.Printf("signup failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
			writeMessage(w, http.StatusInternalServerError, false, "Failed to register user")
		}
		return
	}

	log.Printf("verification code for %s issued (delivery handled by mail service)", username)

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "User registered successfully. Please verify your account.",
		User:    userPayload(user.ID.Hex(), user.Username, user.Email, user.IsAcceptingMessages, user.IsVerified),
	})
}

// Verify confirms the 6-digit signup code.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if req.Username == "" || req.Code == "" {
		writeMessage(w, http.StatusBadRequest, false, "Username and code are required")
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	err := h.Users.VerifyUser(ctx, utils.NormalizeUsername(req.Username), strings.TrimSpace(req.Code))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, false, "User not found")
		case errors.Is(err, services.ErrCodeInvalid):
			writeMessage(w, http.StatusBadRequest, false, "Incorrect verification code")
		case errors.Is(err, services.ErrCodeExpired):
			writeMessage(w, http.StatusBadRequest, false, "Verification code has expired. Please sign up again.")
		default:
			log.Printf("verify failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
			writeMessage(w, http.StatusInternalServerError, false, "Failed to verify account")
		}
		return
	}

	writeMessage(w, http.StatusOK, true, "Account verified successfully")
}

// Signin checks credentials and starts a session. The session token rides in
// an HttpOnly cookie; API clients may instead send it as a Bearer token.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, false, "Identifier and password are required")
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	user, err := h.Users.FindByIdentifier(ctx, utils.NormalizeUsername(req.Identifier))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeMessage(w, http.StatusUnauthorized, false, "Incorrect username or password")
			return
		}
		log.Printf("signin lookup failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to sign in")
		return
	}

	match, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !match {
		writeMessage(w, http.StatusUnauthorized, false, "Incorrect username or password")
		return
	}

	if !user.IsVerified {
		writeMessage(w, http.StatusForbidden, false, "Please verify your account before signing in")
		return
	}

	token, err := h.Sessions.Create(r.Context(), user.ID.Hex())
	if err != nil {
		log.Printf("session create failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to sign in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(services.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in successfully",
		User:    userPayload(user.ID.Hex(), user.Username, user.Email, user.IsAcceptingMessages, user.IsVerified),
	})
}

// Signout invalidates the current session and clears the cookie.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.Sessions.Invalidate(r.Context(), token); err != nil {
			log.Printf("session invalidate failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeMessage(w, http.StatusOK, true, "Signed out successfully")
}

// Me returns the authenticated caller's account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, false, "Not Authenticated")
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, false, "User not found")
			return
		}
		log.Printf("me lookup failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to load account")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		User:    userPayload(user.ID.Hex(), user.Username, user.Email, user.IsAcceptingMessages, user.IsVerified),
	})
}

// CheckUsername reports whether a username is free to register. A name held
// only by an unverified signup counts as available.
func (h *Handler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if err := utils.ValidateUsername(username); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success":   false,
			"available": false,
			"message":   err.Error(),
		})
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	available := false
	user, err := h.Users.FindByUsername(ctx, utils.NormalizeUsername(username))
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		available = true
	case err != nil:
		log.Printf("username check failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to check username")
		return
	default:
		available = !user.IsVerified
	}

	message := "Username is already taken"
	if available {
		message = "Username is available"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"available": available,
		"username":  username,
		"message":   message,
	})
}
