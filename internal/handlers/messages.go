package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/whisperwall/whisperwall-backend/internal/middleware"
	"github.com/whisperwall/whisperwall-backend/internal/models"
	"github.com/whisperwall/whisperwall-backend/internal/services"
	"github.com/whisperwall/whisperwall-backend/pkg/utils"
)

// MaxMessageLength caps anonymous message content.
const MaxMessageLength = 1000

// SendMessageRequest is the anonymous send payload.
type SendMessageRequest struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// GetMessagesResponse lists the caller's inbox newest-first.
type GetMessagesResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
}

// AcceptingResponse reports the accept flag.
type AcceptingResponse struct {
	Success             bool `json:"success"`
	IsAcceptingMessages bool `json:"isAcceptingMessages"`
}

// SetAcceptingRequest toggles the accept flag.
type SetAcceptingRequest struct {
	AcceptMessages bool `json:"acceptMessages"`
}

// SendMessage appends an anonymous message to a recipient's inbox.
// Deliberately unauthenticated: the only gate is the recipient's accept flag.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	if req.Username == "" {
		writeMessage(w, http.StatusBadRequest, false, "Username is required")
		return
	}
	if req.Content == "" {
		writeMessage(w, http.StatusBadRequest, false, "Message content is required")
		return
	}
	if len(req.Content) > MaxMessageLength {
		writeMessage(w, http.StatusBadRequest, false, "Message content is too long")
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	_, err := h.Users.AppendMessage(ctx, utils.NormalizeUsername(req.Username), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, false, "User not found")
		case errors.Is(err, services.ErrNotAccepting):
			writeMessage(w, http.StatusForbidden, false, "User is not accepting messages")
		default:
			log.Printf("send message failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
			writeMessage(w, http.StatusInternalServerError, false, "Failed to send message")
		}
		return
	}

	writeMessage(w, http.StatusOK, true, "Message sent successfully")
}

// GetMessages returns the authenticated caller's inbox, newest first. An
// empty inbox is success with an empty list, not a 404.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, false, "Not Authenticated")
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	messages, err := h.Users.ListMessages(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, false, "User not found")
			return
		}
		log.Printf("list messages failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to get messages")
		return
	}

	writeJSON(w, http.StatusOK, GetMessagesResponse{Success: true, Messages: messages})
}

// DeleteMessage removes one message from the caller's own inbox. Safe to
// retry: a second delete of the same id answers 404, nothing else changes.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, false, "Not Authenticated")
		return
	}

	messageID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "messageID"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid message id")
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	if err := h.Users.DeleteMessage(ctx, userID, messageID); err != nil {
		switch {
		case errors.Is(err, services.ErrMessageNotFound):
			writeMessage(w, http.StatusNotFound, false, "Message not found or already deleted")
		case errors.Is(err, services.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, false, "User not found")
		default:
			log.Printf("delete message failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
			writeMessage(w, http.StatusInternalServerError, false, "Failed to delete message")
		}
		return
	}

	writeMessage(w, http.StatusOK, true, "Message deleted successfully")
}

// GetAccepting reports whether the caller currently accepts new messages.
func (h *Handler) GetAccepting(w http.ResponseWriter, r *http.Request) {
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
		log.Printf("get accept flag failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to get message settings")
		return
	}

	writeJSON(w, http.StatusOK, AcceptingResponse{Success: true, IsAcceptingMessages: user.IsAcceptingMessages})
}

// SetAccepting toggles the caller's accept flag.
func (h *Handler) SetAccepting(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, false, "Not Authenticated")
		return
	}

	var req SetAcceptingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	ctx, cancel := storeContext()
	defer cancel()

	if err := h.Users.SetAcceptingMessages(ctx, userID, req.AcceptMessages); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, false, "User not found")
			return
		}
		log.Printf("set accept flag failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to update message settings")
		return
	}

	writeJSON(w, http.StatusOK, AcceptingResponse{Success: true, IsAcceptingMessages: req.AcceptMessages})
}
