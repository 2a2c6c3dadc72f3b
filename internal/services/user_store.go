package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/whisperwall/whisperwall-backend/internal/models"
)

// UserStore holds all persistence for users and their embedded inboxes.
// Every mutation is a single-document atomic update so concurrent sends and
// deletes on the same user can never interleave into a corrupted array.
type UserStore struct {
	users *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{users: db.Collection("users")}
}

// EnsureIndexes configures unique indexes on username and email.
// Called on startup from main after Mongo has connected.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_username_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_email_unique"),
		},
	}

	for _, m := range indexes {
		if _, err := s.users.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// CreateUser registers a new account. An unverified account holding the same
// email may be re-registered (its password and verify code are replaced); a
// verified username or email is taken for good.
func (s *UserStore) CreateUser(ctx context.Context, username, email, passwordHash, verifyCode string, codeExpiresAt time.Time) (*models.User, error) {
	var existing models.User
	err := s.users.FindOne(ctx, bson.M{"username": username, "is_verified": true}).Decode(&existing)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("checking username: %w", err)
	}

	err = s.users.FindOne(ctx, bson.M{"email": email}).Decode(&existing)
	if err == nil {
		if existing.IsVerified {
			return nil, ErrEmailTaken
		}
		// Unverified leftover from an abandoned signup: take it over.
		now := time.Now().UTC()
		_, err = s.users.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{
			"$set": bson.M{
				"username":               username,
				"password":               passwordHash,
				"verify_code":            verifyCode,
				"verify_code_expires_at": codeExpiresAt,
				"updated_at":             now,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("refreshing unverified user: %w", err)
		}
		existing.Username = username
		existing.Password = passwordHash
		existing.UpdatedAt = now
		return &existing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:                  primitive.NewObjectID(),
		CreatedAt:           now,
		UpdatedAt:           now,
		Username:            username,
		Email:               email,
		Password:            passwordHash,
		VerifyCode:          verifyCode,
		VerifyCodeExpiresAt: codeExpiresAt,
		IsVerified:          false,
		IsAcceptingMessages: true,
		Messages:            []models.Message{},
	}

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return &user, nil
}

// VerifyUser checks the 6-digit code for a username and marks the account verified.
func (s *UserStore) VerifyUser(ctx context.Context, username, code string) error {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user.VerifyCode != code {
		return ErrCodeInvalid
	}
	if time.Now().After(user.VerifyCodeExpiresAt) {
		return ErrCodeExpired
	}

	_, err = s.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set":   bson.M{"is_verified": true, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"verify_code": "", "verify_code_expires_at": ""},
	})
	if err != nil {
		return fmt.Errorf("marking user verified: %w", err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by id: %w", err)
	}
	return &user, nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by username: %w", err)
	}
	return &user, nil
}

// FindByIdentifier looks a user up by username or email (sign-in accepts either).
func (s *UserStore) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	filter := bson.M{"$or": bson.A{
		bson.M{"username": identifier},
		bson.M{"email": identifier},
	}}
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by identifier: %w", err)
	}
	return &user, nil
}

// SetAcceptingMessages flips the accept flag that gates new message ingestion.
func (s *UserStore) SetAcceptingMessages(ctx context.Context, userID primitive.ObjectID, accepting bool) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"is_accepting_messages": accepting, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("updating accept flag: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AppendMessage adds an anonymous message to a user's inbox. The accept flag
// is part of the update filter so the gate and the push are one atomic step.
func (s *UserStore) AppendMessage(ctx context.Context, username, content string) (models.Message, error) {
	msg := models.Message{
		ID:        primitive.NewObjectID(),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"username": username, "is_accepting_messages": true},
		bson.M{"$push": bson.M{"messages": msg}},
	)
	if err != nil {
		return models.Message{}, fmt.Errorf("appending message: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either no such user or the flag is off; the sender gets a distinct
		// reason for each.
		if _, err := s.FindByUsername(ctx, username); err != nil {
			return models.Message{}, err
		}
		return models.Message{}, ErrNotAccepting
	}
	return msg, nil
}

// listedInbox is the aggregation output shape for ListMessages.
type listedInbox struct {
	ID       primitive.ObjectID `bson:"_id"`
	Messages []models.Message   `bson:"messages"`
}

// ListMessages returns a user's inbox sorted newest-first. An empty inbox is a
// found-but-empty result, never ErrUserNotFound: the unwind stage preserves
// empty arrays so the user still produces a row.
func (s *UserStore) ListMessages(ctx context.Context, userID primitive.ObjectID) ([]models.Message, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$unwind", Value: bson.M{"path": "$messages", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$sort", Value: bson.M{"messages.created_at": -1}}},
		{{Key: "$group", Value: bson.M{"_id": "$_id", "messages": bson.M{"$push": "$messages"}}}},
	}

	cur, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer cur.Close(ctx)

	var rows []listedInbox
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrUserNotFound
	}

	msgs := rows[0].Messages
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// DeleteMessage removes one message from the caller's inbox. Deleting an id
// that was never there, or was already deleted, reports ErrMessageNotFound
// rather than failing, so retries are safe.
func (s *UserStore) DeleteMessage(ctx context.Context, userID, messageID primitive.ObjectID) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"messages": bson.M{"_id": messageID}}},
	)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	if res.ModifiedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}
