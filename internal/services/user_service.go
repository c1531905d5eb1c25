package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kwekker/kwekker-be/internal/auth0"
	"github.com/kwekker/kwekker-be/internal/models"
)

// IdentityProvider is the upstream profile source for reconciliation.
// Satisfied by *auth0.ManagementClient.
type IdentityProvider interface {
	GetUser(ctx context.Context, id string) (auth0.Profile, error)
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByUsername(username string) (models.User, error)
	GetUserByProviderID(providerID string) (models.User, error)
	ProvisionFromProvider(ctx context.Context, subjectID string) (models.User, error)
}

// UserService provides business logic for user lookup and provisioning.
type UserService struct {
	db       *sql.DB
	provider IdentityProvider
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, provider IdentityProvider) *UserService {
	return &UserService{db: db, provider: provider}
}

// GetUserByUsername retrieves a single user by their username.
func (s *UserService) GetUserByUsername(username string) (models.User, error) {
	return s.getUserBy("username", username)
}

// GetUserByProviderID retrieves a single user by their provider subject id.
func (s *UserService) GetUserByProviderID(providerID string) (models.User, error) {
	return s.getUserBy("provider_id", providerID)
}

func (s *UserService) getUserBy(column, value string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow(
		"SELECT id, provider_id, username, email, display_name, avatar_url FROM users WHERE "+column+" = ?",
		value)
	err := row.Scan(&user.ID, &user.ProviderID, &user.Username, &user.Email,
		&user.DisplayName, &user.AvatarURL)
	if err == sql.ErrNoRows {
		return models.User{}, fmt.Errorf("%w: %s %q", ErrUserNotFound, column, value)
	}
	return user, err
}

// ProvisionFromProvider reconciles an external subject id with the local user
// table. It fetches the upstream profile, verifies no local user is linked to
// the subject yet, and inserts the new record. The two failure exits are
// ErrUpstreamUserNotFound and ErrUserAlreadyExists; nothing is written before
// the final insert, so no rollback is needed.
func (s *UserService) ProvisionFromProvider(ctx context.Context, subjectID string) (models.User, error) {
	profile, err := s.provider.GetUser(ctx, subjectID)
	if err != nil {
		if errors.Is(err, auth0.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: %s", ErrUpstreamUserNotFound, subjectID)
		}
		return models.User{}, err
	}

	if existing, err := s.GetUserByProviderID(profile.UserID); err == nil {
		return models.User{}, fmt.Errorf("%w: subject %s is already linked to local user %d",
			ErrUserAlreadyExists, profile.UserID, existing.ID)
	} else if !errors.Is(err, ErrUserNotFound) {
		return models.User{}, err
	}

	user := models.User{
		ProviderID:  profile.UserID,
		Username:    profile.Username,
		Email:       profile.Email,
		DisplayName: profile.Name,
		AvatarURL:   profile.Picture,
	}

	res, err := s.db.Exec(
		"INSERT INTO users(provider_id, username, email, display_name, avatar_url) VALUES(?, ?, ?, ?, ?)",
		user.ProviderID, user.Username, user.Email, user.DisplayName, user.AvatarURL)
	if err != nil {
		return models.User{}, err
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}

	log.Info().Str("provider_id", user.ProviderID).Str("username", user.Username).
		Int64("user_id", user.ID).Msg("Provisioned new user from identity provider")
	return user, nil
}
