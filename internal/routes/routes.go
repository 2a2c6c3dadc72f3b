package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/whisperwall/whisperwall-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux, h *handlers.Handler) {
	// Auth
	r.Post("/api/auth/signup", h.Signup)
	r.Post("/api/auth/verify", h.Verify)
	r.Post("/api/auth/signin", h.Signin)
	r.Post("/api/auth/signout", h.Signout)
	r.Get("/api/auth/me", h.Me)
	r.Get("/api/auth/check-username", h.CheckUsername)

	// Messages: send is anonymous, list/delete/settings require a session
	r.Post("/api/messages", h.SendMessage)
	r.Get("/api/messages", h.GetMessages)
	r.Delete("/api/messages/{messageID}", h.DeleteMessage)
	r.Get("/api/messages/accepting", h.GetAccepting)
	r.Post("/api/messages/accepting", h.SetAccepting)

	// Suggestions (public helper for composing messages)
	r.Get("/api/suggestions", h.SuggestMessages)
}
