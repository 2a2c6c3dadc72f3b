package handlers_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperwall/whisperwall-backend/internal/handlers"
	"github.com/whisperwall/whisperwall-backend/internal/routes"
	"github.com/whisperwall/whisperwall-backend/internal/services"
)

func suggestionEnv(t *testing.T, suggester *fakeSuggester) *testEnv {
	t.Helper()
	store := newFakeUserStore()
	sessions := newFakeSessions()
	h := handlers.New(store, sessions, suggester, false)
	router := chi.NewRouter()
	routes.SetupRoutes(router, h)
	return &testEnv{store: store, sessions: sessions, router: router}
}

func TestSuggestMessages(t *testing.T) {
	env := suggestionEnv(t, &fakeSuggester{
		text: "What's a small thing that made you smile today?||If you could master any skill overnight, what would it be?||What's the best advice you've ever ignored?",
	})

	// No auth required: anyone composing a message can ask for ideas.
	rec := env.do(http.MethodGet, "/api/suggestions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	candidates := strings.Split(rec.Body.String(), "||")
	assert.Len(t, candidates, 3)
}

func TestSuggestMessagesGeneratorFailure(t *testing.T) {
	env := suggestionEnv(t, &fakeSuggester{err: errors.New("upstream exploded")})

	rec := env.do(http.MethodGet, "/api/suggestions", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded", "internal detail must not leak to the client")
}

func TestSuggestMessagesGeneratorTimeout(t *testing.T) {
	env := suggestionEnv(t, &fakeSuggester{err: services.ErrGeneratorTimeout})

	rec := env.do(http.MethodGet, "/api/suggestions", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
