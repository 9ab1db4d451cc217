package db

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/mediavault/internal/models"
)

// MemoryUserStore is an in-process UserStore with the same append/prune
// semantics as the Mongo implementation. Used by tests and local development.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User // keyed by email
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User)}
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	cp.Tokens = append([]models.AccessToken(nil), u.Tokens...)
	return &cp, nil
}

func (s *MemoryUserStore) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return ErrEmailTaken
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	cp := *user
	cp.Tokens = append([]models.AccessToken(nil), user.Tokens...)
	s.users[user.Email] = &cp
	return nil
}

func (s *MemoryUserStore) PruneExpiredTokens(_ context.Context, email, fileID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil
	}
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t.FileID == fileID && !t.Live(now) {
			continue
		}
		kept = append(kept, t)
	}
	u.Tokens = kept
	return nil
}

func (s *MemoryUserStore) AppendToken(_ context.Context, email string, tok models.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return ErrUserNotFound
	}
	for _, t := range u.Tokens {
		if t.FileID == tok.FileID {
			return ErrTokenExists
		}
	}
	u.Tokens = append(u.Tokens, tok)
	return nil
}

func (s *MemoryUserStore) FindByToken(_ context.Context, token, fileID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		for _, t := range u.Tokens {
			if t.Token == token && t.FileID == fileID {
				cp := *u
				cp.Tokens = append([]models.AccessToken(nil), u.Tokens...)
				return &cp, nil
			}
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) FindByTokenAny(_ context.Context, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		for _, t := range u.Tokens {
			if t.Token == token {
				cp := *u
				cp.Tokens = append([]models.AccessToken(nil), u.Tokens...)
				return &cp, nil
			}
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) UsersWithTokenFor(_ context.Context, fileID string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if u.TokenFor(fileID) != nil {
			cp := *u
			cp.Tokens = append([]models.AccessToken(nil), u.Tokens...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *MemoryUserStore) RemoveTokensForFile(_ context.Context, fileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var touched int64
	for _, u := range s.users {
		kept := u.Tokens[:0]
		removed := false
		for _, t := range u.Tokens {
			if t.FileID == fileID {
				removed = true
				continue
			}
			kept = append(kept, t)
		}
		u.Tokens = kept
		if removed {
			touched++
		}
	}
	return touched, nil
}

func (s *MemoryUserStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		cp.Tokens = append([]models.AccessToken(nil), u.Tokens...)
		out = append(out, cp)
	}
	return out, nil
}
