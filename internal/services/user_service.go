// File: internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/iyunix/go-gemchat/internal/domain"
	"github.com/iyunix/go-gemchat/internal/repository/user"
	chatservice "github.com/iyunix/go-gemchat/internal/services/chat"
)

const maxNameLength = 255

// UserService mirrors identity-provider accounts into local user rows.
type UserService struct {
	userRepo user.UserRepository
	logger   Logger
}

func NewUserService(repo user.UserRepository, logger Logger) *UserService {
	return &UserService{userRepo: repo, logger: logger}
}

// Me returns the caller's row, or NotFound if it was never synced.
func (s *UserService) Me(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	if principal.Subject == "" {
		return nil, chatservice.NewUnauthorizedError("me")
	}
	u, err := s.userRepo.FindByExternalID(ctx, principal.Subject)
	if err != nil {
		return nil, chatservice.FromStoreError("me", err)
	}
	return u, nil
}

// Sync upserts the caller's row from the session claims. Repeating it with
// the same claims leaves a single row.
func (s *UserService) Sync(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	if principal.Subject == "" {
		return nil, chatservice.NewUnauthorizedError("sync_user")
	}
	u, err := s.userRepo.Upsert(ctx, principal.ToUser())
	if err != nil {
		return nil, chatservice.FromStoreError("sync_user", err)
	}
	s.logger.Debug("user synced from identity provider", "user_id", u.ID)
	return u, nil
}

// UpdateProfile changes the display name and/or picture. Nil fields are left
// as they are.
func (s *UserService) UpdateProfile(ctx context.Context, principal domain.Principal, name, pictureURL *string) (*domain.User, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, chatservice.NewValidationError("update_profile", "name cannot be empty")
		}
		if utf8.RuneCountInString(trimmed) > maxNameLength {
			return nil, chatservice.NewValidationError("update_profile", "name is too long")
		}
		name = &trimmed
	}
	if pictureURL != nil {
		if err := validatePictureURL(*pictureURL); err != nil {
			return nil, chatservice.NewValidationError("update_profile", err.Error())
		}
	}

	me, err := s.Me(ctx, principal)
	if err != nil {
		return nil, err
	}
	updated, err := s.userRepo.UpdateProfile(ctx, me.ID, name, pictureURL)
	if err != nil {
		return nil, chatservice.FromStoreError("update_profile", err)
	}
	s.logger.Info("profile updated", "user_id", me.ID)
	return updated, nil
}

func validatePictureURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("picture must be an http(s) URL")
	}
	return nil
}
