package services

import (
	"errors"
	"fmt"

	"github.com/arzan03/mediavault/internal/models"
)

// Sentinel errors the HTTP layer maps to response statuses. Upstream and
// processing failures are logged with context and surfaced to clients as
// generic failures.
var (
	ErrValidation         = errors.New("invalid request")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthRequired       = errors.New("token required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrScopeMismatch      = errors.New("token is not valid for the requested file")
	ErrRevokedToken       = errors.New("token not found or revoked")
	ErrConflict           = errors.New("token already exists for this file")
	ErrNotFound           = errors.New("not found")
	ErrUnsupportedType    = errors.New("watermarking is only supported for images and videos")
	ErrProcessing         = errors.New("media processing failed")
	ErrUpstream           = errors.New("storage request failed")
)

// DuplicateTokenError carries the existing live token so the conflict
// response can echo it, matching the issuance policy of rejecting duplicates
// while pointing the caller at the credential that already exists.
type DuplicateTokenError struct {
	Existing models.AccessToken
}

func (e *DuplicateTokenError) Error() string {
	return fmt.Sprintf("token already exists for file %s", e.Existing.FileID)
}

func (e *DuplicateTokenError) Is(target error) bool {
	return target == ErrConflict
}
