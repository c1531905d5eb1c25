package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kwekker/kwekker-be/internal/models"
)

// postedAtLayout is RFC3339 with a fixed nine-digit fraction so that the
// stored text orders lexically the same way it orders chronologically.
const postedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// KwekServiceProvider defines the interface for kwek services.
type KwekServiceProvider interface {
	GetAllKweks(username string) ([]models.Kwek, error)
	GetKwekByID(id int64) (models.Kwek, error)
	CreateKwek(providerID, text string) (models.Kwek, error)
	UpdateKwek(id int64, providerID, text string) error
	DeleteKwek(id int64, providerID string) error
}

// KwekService provides business logic for kwek management.
type KwekService struct {
	db *sql.DB
}

// NewKwekService creates a new KwekService.
func NewKwekService(db *sql.DB) *KwekService {
	return &KwekService{db: db}
}

const kwekSelect = `
	SELECT k.id, k.text, k.posted_at, k.user_id, u.username, u.display_name, u.avatar_url
	FROM kweks k
	JOIN users u ON u.id = k.user_id`

func scanKwek(row interface{ Scan(...any) error }) (models.Kwek, error) {
	var kwek models.Kwek
	var postedAt string
	err := row.Scan(&kwek.ID, &kwek.Text, &postedAt, &kwek.UserID,
		&kwek.User.Username, &kwek.User.DisplayName, &kwek.User.AvatarURL)
	if err != nil {
		return models.Kwek{}, err
	}
	kwek.PostedAt, err = time.Parse(time.RFC3339Nano, postedAt)
	if err != nil {
		return models.Kwek{}, fmt.Errorf("malformed posted_at for kwek %d: %w", kwek.ID, err)
	}
	return kwek, nil
}

// GetAllKweks retrieves all kweks with their owners, most recent first.
// A non-empty username restricts the result to that owner's kweks.
func (s *KwekService) GetAllKweks(username string) ([]models.Kwek, error) {
	query := kwekSelect
	args := []any{}
	if username != "" {
		query += " WHERE u.username = ?"
		args = append(args, username)
	}
	query += " ORDER BY k.posted_at DESC, k.id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kweks := []models.Kwek{}
	for rows.Next() {
		kwek, err := scanKwek(rows)
		if err != nil {
			return nil, err
		}
		kweks = append(kweks, kwek)
	}
	return kweks, rows.Err()
}

// GetKwekByID retrieves a single kwek with its owner.
func (s *KwekService) GetKwekByID(id int64) (models.Kwek, error) {
	kwek, err := scanKwek(s.db.QueryRow(kwekSelect+" WHERE k.id = ?", id))
	if err == sql.ErrNoRows {
		return models.Kwek{}, ErrKwekNotFound
	}
	return kwek, err
}

// CreateKwek inserts a new kwek for the caller identified by providerID,
// with a server-assigned UTC timestamp.
func (s *KwekService) CreateKwek(providerID, text string) (models.Kwek, error) {
	user, err := s.resolveCaller(providerID)
	if err != nil {
		return models.Kwek{}, err
	}

	postedAt := time.Now().UTC()
	res, err := s.db.Exec("INSERT INTO kweks(text, posted_at, user_id) VALUES(?, ?, ?)",
		text, postedAt.Format(postedAtLayout), user.ID)
	if err != nil {
		return models.Kwek{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Kwek{}, err
	}

	return models.Kwek{
		ID:       id,
		Text:     text,
		PostedAt: postedAt,
		UserID:   user.ID,
		User:     user.Profile(),
	}, nil
}

// UpdateKwek replaces the text of a kwek owned by the caller.
func (s *KwekService) UpdateKwek(id int64, providerID, text string) error {
	kwek, err := s.GetKwekByID(id)
	if err != nil {
		return err
	}

	user, err := s.resolveCaller(providerID)
	if err != nil {
		return err
	}
	if kwek.UserID != user.ID {
		return ErrNotKwekOwner
	}

	_, err = s.db.Exec("UPDATE kweks SET text = ? WHERE id = ?", text, id)
	return err
}

// DeleteKwek removes a kwek owned by the caller.
func (s *KwekService) DeleteKwek(id int64, providerID string) error {
	kwek, err := s.GetKwekByID(id)
	if err != nil {
		return err
	}

	user, err := s.resolveCaller(providerID)
	if err != nil {
		return err
	}
	if kwek.UserID != user.ID {
		return ErrNotKwekOwner
	}

	_, err = s.db.Exec("DELETE FROM kweks WHERE id = ?", id)
	return err
}

// resolveCaller maps an authenticated subject id to the local user record.
func (s *KwekService) resolveCaller(providerID string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow(
		"SELECT id, provider_id, username, email, display_name, avatar_url FROM users WHERE provider_id = ?",
		providerID)
	err := row.Scan(&user.ID, &user.ProviderID, &user.Username, &user.Email,
		&user.DisplayName, &user.AvatarURL)
	if err == sql.ErrNoRows {
		return models.User{}, fmt.Errorf("%w: %s", ErrCallerNotProvisioned, providerID)
	}
	return user, err
}
