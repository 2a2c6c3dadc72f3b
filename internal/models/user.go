package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a whisperwall account. Messages are embedded so a user exclusively
// owns its inbox; nothing else in the database references a message.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Username string `bson:"username" json:"username"`
	Email    string `bson:"email" json:"email"`
	Password string `bson:"password" json:"-"` // Argon2id encoded, never returned in JSON

	VerifyCode          string    `bson:"verify_code,omitempty" json:"-"`
	VerifyCodeExpiresAt time.Time `bson:"verify_code_expires_at,omitempty" json:"-"`
	IsVerified          bool      `bson:"is_verified" json:"is_verified"`

	IsAcceptingMessages bool      `bson:"is_accepting_messages" json:"is_accepting_messages"`
	Messages            []Message `bson:"messages" json:"messages"`
}

// Message is one anonymous note in a user's inbox. Immutable once stored;
// its id is unique within the owning user's messages array, not globally.
type Message struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
