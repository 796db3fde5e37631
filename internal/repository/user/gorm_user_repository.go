// File: internal/repository/user/gorm_user_repository.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iyunix/go-gemchat/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserNotFound = errors.New("user not found")

type gormUserRepository struct {
	db     *gorm.DB
	logger Logger
}

func NewGormUserRepository(db *gorm.DB, logger Logger) UserRepository {
	return &gormUserRepository{db: db, logger: logger}
}

func (r *gormUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := r.validateUserInput(user); err != nil {
		r.logger.Warn("[UserRepository] validation failed", "error", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.logger.Error("[UserRepository] database error creating user", "error", err)
		return nil, errors.New("database error creating user")
	}

	r.logger.Info("[UserRepository] user created", "user_id", user.ID)
	return user, nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, errors.New("invalid user ID")
	}

	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	return r.handleFindError(err, &user)
}

func (r *gormUserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("invalid external ID")
	}

	var user domain.User
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	return r.handleFindError(err, &user)
}

// Upsert inserts the user or refreshes the profile columns of the existing
// row with the same ExternalID. Calling it repeatedly with the same claims is
// a no-op apart from UpdatedAt.
func (r *gormUserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := r.validateUserInput(user); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "picture_url", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		r.logger.Error("[UserRepository] database error upserting user", "error", err)
		return nil, errors.New("database error upserting user")
	}

	// On conflict the generated ID in user is not the stored one.
	return r.FindByExternalID(ctx, user.ExternalID)
}

func (r *gormUserRepository) UpdateProfile(ctx context.Context, id string, name, pictureURL *string) (*domain.User, error) {
	if id == "" {
		return nil, errors.New("invalid user ID")
	}

	fields := map[string]interface{}{}
	if name != nil {
		fields["name"] = strings.TrimSpace(*name)
	}
	if pictureURL != nil {
		fields["picture_url"] = *pictureURL
	}
	if len(fields) > 0 {
		result := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			r.logger.Error("[UserRepository] database error updating profile", "user_id", id, "error", result.Error)
			return nil, errors.New("database error updating user")
		}
		if result.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return r.FindByID(ctx, id)
}

func (r *gormUserRepository) validateUserInput(user *domain.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return user.IsValid()
}

func (r *gormUserRepository) handleFindError(err error, user *domain.User) (*domain.User, error) {
	if err == nil {
		return user, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	r.logger.Error("[UserRepository] database query error", "error", err)
	return nil, errors.New("database query failed")
}
