package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/arzan03/mediavault/internal/config"
	"github.com/arzan03/mediavault/internal/db"
	"github.com/arzan03/mediavault/internal/models"
)

const adminTokenTTL = 4 * time.Hour

// AdminService authenticates the configured admin credential and exposes the
// user listing for the admin UI.
type AdminService struct {
	store        db.UserStore
	secret       []byte
	email        string
	passwordHash string
}

func NewAdminService(store db.UserStore, secret string, cfg config.AdminConfig) *AdminService {
	return &AdminService{
		store:        store,
		secret:       []byte(secret),
		email:        cfg.Email,
		passwordHash: cfg.PasswordHash,
	}
}

// Login verifies the credential pair against the stored bcrypt hash and
// returns a role-scoped JWT.
func (s *AdminService) Login(email, password string) (string, error) {
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	if s.passwordHash == "" {
		return "", fmt.Errorf("admin login is not configured")
	}
	if email != s.email {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"email": email,
		"role":  "admin",
		"exp":   time.Now().Add(adminTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ListUsers returns every user with their token history.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, nil
}
