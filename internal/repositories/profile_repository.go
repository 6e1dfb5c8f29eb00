package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository reads and updates guardian and professional profiles.
type ProfileRepository interface {
	HasGuardian(ctx context.Context, userID int64) (bool, error)
	HasProfessional(ctx context.Context, userID int64) (bool, error)
	GetGuardian(ctx context.Context, userID int64) (models.GuardianProfile, error)
	GetProfessional(ctx context.Context, userID int64) (models.ProfessionalProfile, error)
	GetDog(ctx context.Context, dogID int64) (models.Dog, error)
	UpsertGuardian(ctx context.Context, profile models.GuardianProfile) (models.GuardianProfile, error)
	UpsertProfessional(ctx context.Context, profile models.ProfessionalProfile) (models.ProfessionalProfile, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// HasGuardian reports membership in the guardian profile set.
func (r *ProfileRepo) HasGuardian(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM guardian_profiles WHERE user_id=$1)`, userID)
	return exists, err
}

// HasProfessional reports membership in the professional profile set.
func (r *ProfileRepo) HasProfessional(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM professional_profiles WHERE user_id=$1)`, userID)
	return exists, err
}

// GetGuardian fetches a guardian profile.
func (r *ProfileRepo) GetGuardian(ctx context.Context, userID int64) (models.GuardianProfile, error) {
	var profile models.GuardianProfile
	err := r.db.GetContext(ctx, &profile, `SELECT user_id, display_name, avatar_url, created_at
        FROM guardian_profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GuardianProfile{}, ErrProfileNotFound
	}
	return profile, err
}

// GetProfessional fetches a professional profile.
func (r *ProfileRepo) GetProfessional(ctx context.Context, userID int64) (models.ProfessionalProfile, error) {
	var profile models.ProfessionalProfile
	err := r.db.GetContext(ctx, &profile, `SELECT user_id, display_name, avatar_url, specialty, created_at
        FROM professional_profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProfessionalProfile{}, ErrProfileNotFound
	}
	return profile, err
}

// GetDog fetches a dog by id.
func (r *ProfileRepo) GetDog(ctx context.Context, dogID int64) (models.Dog, error) {
	var dog models.Dog
	err := r.db.GetContext(ctx, &dog, `SELECT id, guardian_id, name, breed, created_at FROM dogs WHERE id=$1`, dogID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Dog{}, ErrProfileNotFound
	}
	return dog, err
}

// UpsertGuardian creates or updates the guardian profile.
func (r *ProfileRepo) UpsertGuardian(ctx context.Context, profile models.GuardianProfile) (models.GuardianProfile, error) {
	var saved models.GuardianProfile
	err := r.db.QueryRowxContext(ctx, `INSERT INTO guardian_profiles (user_id, display_name, avatar_url)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name, avatar_url = EXCLUDED.avatar_url
        RETURNING user_id, display_name, avatar_url, created_at`,
		profile.UserID, profile.DisplayName, profile.AvatarURL).
		StructScan(&saved)
	return saved, err
}

// UpsertProfessional creates or updates the professional profile.
func (r *ProfileRepo) UpsertProfessional(ctx context.Context, profile models.ProfessionalProfile) (models.ProfessionalProfile, error) {
	var saved models.ProfessionalProfile
	err := r.db.QueryRowxContext(ctx, `INSERT INTO professional_profiles (user_id, display_name, avatar_url, specialty)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name,
            avatar_url = EXCLUDED.avatar_url, specialty = EXCLUDED.specialty
        RETURNING user_id, display_name, avatar_url, specialty, created_at`,
		profile.UserID, profile.DisplayName, profile.AvatarURL, profile.Specialty).
		StructScan(&saved)
	return saved, err
}
