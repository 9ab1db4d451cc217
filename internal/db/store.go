package db

import (
	"context"
	"errors"
	"time"

	"github.com/arzan03/mediavault/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
	// ErrTokenExists is returned by AppendToken when the user already holds
	// a token for the same file. The append is guarded at the storage layer
	// so that two concurrent issuances cannot both succeed.
	ErrTokenExists = errors.New("token already exists for this file")
)

// UserStore persists users and their embedded access tokens.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error

	// PruneExpiredTokens drops the user's expired tokens for fileID so an
	// expired credential does not block reissuance.
	PruneExpiredTokens(ctx context.Context, email, fileID string, now time.Time) error

	// AppendToken atomically appends tok to the user's token list, failing
	// with ErrTokenExists if any token for tok.FileID is still present.
	AppendToken(ctx context.Context, email string, tok models.AccessToken) error

	// FindByToken resolves the owner of a (token, fileID) pair; a miss means
	// the token was revoked or never issued.
	FindByToken(ctx context.Context, token, fileID string) (*models.User, error)

	// FindByTokenAny resolves the owner of a token regardless of file scope.
	FindByTokenAny(ctx context.Context, token string) (*models.User, error)

	// UsersWithTokenFor returns every user holding a token for fileID.
	UsersWithTokenFor(ctx context.Context, fileID string) ([]models.User, error)

	// RemoveTokensForFile deletes all tokens scoped to fileID across every
	// user and reports how many user documents were touched.
	RemoveTokensForFile(ctx context.Context, fileID string) (int64, error)

	ListUsers(ctx context.Context) ([]models.User, error)
}
