package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/mediavault/internal/db"
	"github.com/arzan03/mediavault/internal/models"
	"github.com/arzan03/mediavault/internal/storage"
)

// Claims is the signed payload of an access token. The file binding travels
// inside the token so verification can reject cross-file replay before any
// database lookup.
type Claims struct {
	Email    string          `json:"email"`
	FileID   string          `json:"file_id"`
	FileType models.FileKind `json:"file_type"`
	jwt.RegisteredClaims
}

// TokenInfo joins decoded claims with the persisted owner for display.
type TokenInfo struct {
	OwnerName  string          `json:"ownerName"`
	OwnerEmail string          `json:"ownerEmail"`
	FileID     string          `json:"fileId"`
	FileName   string          `json:"fileName"`
	FileType   models.FileKind `json:"fileType"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

// TokenRecord is one row of the per-file token listing.
type TokenRecord struct {
	Token      string          `json:"token"`
	OwnerName  string          `json:"ownerName"`
	OwnerEmail string          `json:"ownerEmail"`
	FileName   string          `json:"fileName"`
	FileType   models.FileKind `json:"fileType"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

// TokenService issues, verifies and revokes file-scoped access tokens. A
// token is honored only while its signature, expiry, scope and persisted
// record all check out; deleting the record revokes it.
type TokenService struct {
	store   db.UserStore
	gateway storage.Gateway
	secret  []byte
	ttl     time.Duration
}

func NewTokenService(store db.UserStore, gateway storage.Gateway, secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenService{
		store:   store,
		gateway: gateway,
		secret:  []byte(secret),
		ttl:     ttl,
	}
}

// Issue creates a token for (email, fileID), creating the user lazily on
// first request. At most one live token may exist per (email, fileID) pair;
// a duplicate request fails with a DuplicateTokenError carrying the existing
// credential. Expired tokens for the pair are pruned first so expiry frees
// the slot.
func (s *TokenService) Issue(ctx context.Context, name, email, message, fileID string) (*models.AccessToken, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || fileID == "" {
		return nil, fmt.Errorf("%w: name, email and fileId are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	// Snapshot file metadata at issuance; the fileType claim never changes
	// afterwards even if the provider reclassifies the object.
	info, err := s.gateway.Stat(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrUpstream, fileID, err)
	}

	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, db.ErrUserNotFound) {
		user = &models.User{
			ID:        primitive.NewObjectID(),
			Name:      name,
			Email:     email,
			Message:   strings.TrimSpace(message),
			Tokens:    []models.AccessToken{},
			CreatedAt: time.Now(),
		}
		if err := s.store.Insert(ctx, user); errors.Is(err, db.ErrEmailTaken) {
			// Lost a creation race; use the document that won.
			if user, err = s.store.FindByEmail(ctx, email); err != nil {
				return nil, fmt.Errorf("failed to look up user: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	now := time.Now()
	if err := s.store.PruneExpiredTokens(ctx, email, fileID, now); err != nil {
		return nil, fmt.Errorf("failed to prune expired tokens: %w", err)
	}

	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Email:    email,
		FileID:   fileID,
		FileType: info.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	tok := models.AccessToken{
		Token:     signed,
		FileID:    fileID,
		FileName:  info.Name,
		FileType:  info.Kind,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.store.AppendToken(ctx, email, tok); err != nil {
		if errors.Is(err, db.ErrTokenExists) {
			return nil, s.duplicateError(ctx, email, fileID)
		}
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	return &tok, nil
}

func (s *TokenService) duplicateError(ctx context.Context, email, fileID string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return ErrConflict
	}
	existing := user.TokenFor(fileID)
	if existing == nil {
		return ErrConflict
	}
	return &DuplicateTokenError{Existing: *existing}
}

// Verify checks signature, expiry, file scope and the persisted record, in
// that order, and fails closed on any doubt.
func (s *TokenService) Verify(ctx context.Context, tokenString, fileID string) (*TokenInfo, error) {
	if tokenString == "" {
		return nil, ErrAuthRequired
	}
	if fileID == "" {
		return nil, fmt.Errorf("%w: fileId is required", ErrValidation)
	}

	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.FileID != fileID {
		return nil, ErrScopeMismatch
	}

	// Revocation = record deletion, so a structurally valid token without a
	// matching record is rejected.
	user, err := s.store.FindByToken(ctx, tokenString, fileID)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, ErrRevokedToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	record := user.TokenFor(fileID)
	if record == nil || !record.Live(time.Now()) {
		return nil, ErrExpiredToken
	}
	return &TokenInfo{
		OwnerName:  user.Name,
		OwnerEmail: user.Email,
		FileID:     fileID,
		FileName:   record.FileName,
		FileType:   record.FileType,
		ExpiresAt:  record.ExpiresAt,
	}, nil
}

// VerifyFolder is Verify plus a check that the token was issued for a folder.
func (s *TokenService) VerifyFolder(ctx context.Context, tokenString, folderID string) (*TokenInfo, error) {
	info, err := s.Verify(ctx, tokenString, folderID)
	if err != nil {
		return nil, err
	}
	if info.FileType != models.KindFolder {
		return nil, ErrScopeMismatch
	}
	return info, nil
}

// Info resolves a token to its owner and file snapshot for display, without
// requiring the caller to know the file it was issued for.
func (s *TokenService) Info(ctx context.Context, tokenString string) (*TokenInfo, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindByTokenAny(ctx, tokenString)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, ErrRevokedToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	record := user.TokenFor(claims.FileID)
	if record == nil {
		return nil, ErrRevokedToken
	}
	return &TokenInfo{
		OwnerName:  user.Name,
		OwnerEmail: user.Email,
		FileID:     record.FileID,
		FileName:   record.FileName,
		FileType:   record.FileType,
		ExpiresAt:  record.ExpiresAt,
	}, nil
}

// RevokeForFile deletes every token scoped to fileID across all users.
// Idempotent: revoking a file nobody holds a token for succeeds with zero.
func (s *TokenService) RevokeForFile(ctx context.Context, fileID string) (int64, error) {
	if fileID == "" {
		return 0, fmt.Errorf("%w: fileId is required", ErrValidation)
	}
	count, err := s.store.RemoveTokensForFile(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return count, nil
}

// FirstForFile returns one existing token record for fileID.
func (s *TokenService) FirstForFile(ctx context.Context, fileID string) (*models.AccessToken, error) {
	users, err := s.store.UsersWithTokenFor(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tokens: %w", err)
	}
	for i := range users {
		if tok := users[i].TokenFor(fileID); tok != nil {
			return tok, nil
		}
	}
	return nil, fmt.Errorf("%w: no token for file %s", ErrNotFound, fileID)
}

// ListForFile fans out across all users holding a token for fileID.
func (s *TokenService) ListForFile(ctx context.Context, fileID string) ([]TokenRecord, error) {
	users, err := s.store.UsersWithTokenFor(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tokens: %w", err)
	}

	var records []TokenRecord
	for i := range users {
		tok := users[i].TokenFor(fileID)
		if tok == nil {
			continue
		}
		records = append(records, TokenRecord{
			Token:      tok.Token,
			OwnerName:  users[i].Name,
			OwnerEmail: users[i].Email,
			FileName:   tok.FileName,
			FileType:   tok.FileType,
			ExpiresAt:  tok.ExpiresAt,
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no tokens for file %s", ErrNotFound, fileID)
	}
	return records, nil
}

func (s *TokenService) parse(tokenString string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
