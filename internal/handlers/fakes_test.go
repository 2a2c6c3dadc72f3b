package handlers_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/whisperwall/whisperwall-backend/internal/models"
	"github.com/whisperwall/whisperwall-backend/internal/services"
)

// fakeUserStore is an in-memory stand-in for the Mongo-backed store. It keeps
// the same contract: per-user embedded inboxes, atomic accept-flag gating,
// idempotent delete, and the found-but-empty vs. not-found distinction.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
	clock time.Time
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: make(map[primitive.ObjectID]*models.User),
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// addUser seeds an account directly, bypassing the signup flow.
func (f *fakeUserStore) addUser(username string, accepting, verified bool) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{
		ID:                  primitive.NewObjectID(),
		Username:            username,
		Email:               username + "@example.com",
		IsVerified:          verified,
		IsAcceptingMessages: accepting,
		Messages:            []models.Message{},
	}
	f.users[u.ID] = u
	return u
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (f *fakeUserStore) tick() time.Time {
	f.clock = f.clock.Add(time.Millisecond)
	return f.clock
}

func (f *fakeUserStore) byUsername(username string) *models.User {
	for _, u := range f.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (f *fakeUserStore) CreateUser(ctx context.Context, username, email, passwordHash, verifyCode string, codeExpiresAt time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing := f.byUsername(username); existing != nil && existing.IsVerified {
		return nil, services.ErrUsernameTaken
	}
	for _, u := range f.users {
		if u.Email == email && u.IsVerified {
			return nil, services.ErrEmailTaken
		}
	}
	u := &models.User{
		ID:                  primitive.NewObjectID(),
		Username:            username,
		Email:               email,
		Password:            passwordHash,
		VerifyCode:          verifyCode,
		VerifyCodeExpiresAt: codeExpiresAt,
		IsAcceptingMessages: true,
		Messages:            []models.Message{},
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) VerifyUser(ctx context.Context, username, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byUsername(username)
	if u == nil {
		return services.ErrUserNotFound
	}
	if u.VerifyCode != code {
		return services.ErrCodeInvalid
	}
	if time.Now().After(u.VerifyCodeExpiresAt) {
		return services.ErrCodeExpired
	}
	u.IsVerified = true
	return nil
}

func (f *fakeUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byUsername(username)
	if u == nil {
		return nil, services.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == identifier || u.Email == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func (f *fakeUserStore) SetAcceptingMessages(ctx context.Context, userID primitive.ObjectID, accepting bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return services.ErrUserNotFound
	}
	u.IsAcceptingMessages = accepting
	return nil
}

func (f *fakeUserStore) AppendMessage(ctx context.Context, username, content string) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byUsername(username)
	if u == nil {
		return models.Message{}, services.ErrUserNotFound
	}
	if !u.IsAcceptingMessages {
		return models.Message{}, services.ErrNotAccepting
	}
	msg := models.Message{
		ID:        primitive.NewObjectID(),
		Content:   content,
		CreatedAt: f.tick(),
	}
	u.Messages = append(u.Messages, msg)
	return msg, nil
}

func (f *fakeUserStore) ListMessages(ctx context.Context, userID primitive.ObjectID) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	out := make([]models.Message, len(u.Messages))
	copy(out, u.Messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeUserStore) DeleteMessage(ctx context.Context, userID, messageID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return services.ErrUserNotFound
	}
	for i, m := range u.Messages {
		if m.ID == messageID {
			u.Messages = append(u.Messages[:i], u.Messages[i+1:]...)
			return nil
		}
	}
	return services.ErrMessageNotFound
}

// fakeSessions maps tokens to user ids in memory.
type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]string
	next   int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]string)}
}

// login mints a token for a user without going through the signin handler.
func (f *fakeSessions) login(userID primitive.ObjectID) string {
	token, _ := f.Create(context.Background(), userID.Hex())
	return token
}

func (f *fakeSessions) Create(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	token := "token-" + userID + "-" + string(rune('a'+f.next%26))
	f.tokens[token] = userID
	return token, nil
}

func (f *fakeSessions) Validate(ctx context.Context, token string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.tokens[token]
	return userID, ok, nil
}

func (f *fakeSessions) Invalidate(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

// fakeSuggester returns canned text or a canned error.
type fakeSuggester struct {
	text string
	err  error
}

func (f *fakeSuggester) Suggest(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}
