package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/hasface/internal/logging"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Check outcomes stored in FaceCheck.Outcome.
const (
	OutcomeFace   = "face"
	OutcomeNoFace = "no_face"
	OutcomeError  = "error"
)

// FaceCheck is a persisted face validation of an uploaded image.
type FaceCheck struct {
	ID        uint      `gorm:"primaryKey"`
	RequestID string    `gorm:"column:request_id;uniqueIndex;size:64"`
	Subject   string    `gorm:"column:subject;index;size:64"`
	ImagePath string    `gorm:"column:image_path;size:512"`
	Outcome   string    `gorm:"column:outcome;index;size:16"`
	Details   string    `gorm:"column:details;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (FaceCheck) TableName() string {
	return "face_checks"
}

// Profile holds the accepted avatar of a subject.
type Profile struct {
	ID         uint      `gorm:"primaryKey"`
	Subject    string    `gorm:"column:subject;uniqueIndex;size:64"`
	AvatarPath string    `gorm:"column:avatar_path;size:512"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// TableName overrides the default table name.
func (Profile) TableName() string {
	return "profiles"
}

// OutcomeCounts is the number of checks per outcome.
type OutcomeCounts map[string]int64

// Total returns the sum over all outcomes.
func (c OutcomeCounts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// FaceCheckRepository persists face checks and profiles with gorm.
type FaceCheckRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewFaceCheckRepository creates a new repository instance.
func NewFaceCheckRepository(db *gorm.DB, logger *zap.Logger) *FaceCheckRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FaceCheckRepository{db: db, logger: logger.Named("face_check_repository")}
}

// AutoMigrate ensures the schema is available.
func (r *FaceCheckRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&FaceCheck{}, &Profile{})
}

// SaveCheck persists a face check.
func (r *FaceCheckRepository) SaveCheck(ctx context.Context, check *FaceCheck) error {
	if err := r.db.WithContext(ctx).Create(check).Error; err != nil {
		return r.fail("repository.save_check", check.RequestID, err)
	}
	return nil
}

// FindCheck retrieves the check with requestID owned by subject.
func (r *FaceCheckRepository) FindCheck(ctx context.Context, requestID, subject string) (*FaceCheck, error) {
	var check FaceCheck
	err := r.db.WithContext(ctx).First(&check, "request_id = ? AND subject = ?", requestID, subject).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, r.fail("repository.find_check", requestID, err)
	}
	return &check, nil
}

// SaveAvatar creates or updates the avatar path of subject's profile.
func (r *FaceCheckRepository) SaveAvatar(ctx context.Context, subject, avatarPath string) (*Profile, error) {
	profile := &Profile{Subject: subject, AvatarPath: avatarPath}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject"}},
		DoUpdates: clause.AssignmentColumns([]string{"avatar_path", "updated_at"}),
	}).Create(profile).Error
	if err != nil {
		return nil, r.fail("repository.save_avatar", "", err)
	}
	return r.FindProfile(ctx, subject)
}

// FindProfile retrieves the profile of subject.
func (r *FaceCheckRepository) FindProfile(ctx context.Context, subject string) (*Profile, error) {
	var profile Profile
	err := r.db.WithContext(ctx).First(&profile, "subject = ?", subject).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, r.fail("repository.find_profile", "", err)
	}
	return &profile, nil
}

// CountOutcomes aggregates the number of checks per outcome.
func (r *FaceCheckRepository) CountOutcomes(ctx context.Context) (OutcomeCounts, error) {
	var rows []struct {
		Outcome string
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&FaceCheck{}).
		Select("outcome, COUNT(*) AS total").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, r.fail("repository.count_outcomes", "", err)
	}

	counts := make(OutcomeCounts, len(rows))
	for _, row := range rows {
		counts[row.Outcome] = row.Total
	}
	return counts, nil
}

func (r *FaceCheckRepository) fail(op, requestID string, err error) error {
	wrapped := logging.NewOperationError(op, requestID, err)
	logging.WithOperation(r.logger, op, requestID).Error("database operation failed", zap.Error(err))
	return wrapped
}
