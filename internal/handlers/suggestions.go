package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/whisperwall/whisperwall-backend/internal/middleware"
	"github.com/whisperwall/whisperwall-backend/internal/services"
)

// SuggestMessages returns AI-generated candidate messages as plain text,
// candidates separated by '||'. Public: anyone composing an anonymous message
// can ask for ideas. Generator failures collapse to a single 500; there is no
// retry at this layer.
func (h *Handler) SuggestMessages(w http.ResponseWriter, r *http.Request) {
	text, err := h.Suggestions.Suggest(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrGeneratorTimeout) {
			log.Printf("suggestion generator timed out (request %s)", middleware.GetRequestID(r.Context()))
		} else {
			log.Printf("suggestion generation failed (request %s): %v", middleware.GetRequestID(r.Context()), err)
		}
		writeMessage(w, http.StatusInternalServerError, false, "Failed to generate suggestions")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}
