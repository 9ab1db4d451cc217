package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessToken is a signed, file-scoped download credential embedded in the
// owning user document. Records are append-only: revocation removes them,
// nothing ever mutates one in place.
type AccessToken struct {
	Token     string    `bson:"token" json:"token"`
	FileID    string    `bson:"file_id" json:"fileId"`
	FileName  string    `bson:"file_name" json:"fileName"`
	FileType  FileKind  `bson:"file_type" json:"fileType"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Live reports whether the token has not yet expired.
func (t AccessToken) Live(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email" validate:"required,email"`
	Message   string             `bson:"message,omitempty" json:"message,omitempty"`
	Tokens    []AccessToken      `bson:"tokens" json:"tokens"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// TokenFor returns the user's token scoped to fileID, or nil.
func (u *User) TokenFor(fileID string) *AccessToken {
	for i := range u.Tokens {
		if u.Tokens[i].FileID == fileID {
			return &u.Tokens[i]
		}
	}
	return nil
}
