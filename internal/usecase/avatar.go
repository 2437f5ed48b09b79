package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/hasface/hasface"
	"github.com/example/hasface/internal/logging"
	"github.com/example/hasface/internal/repository"
)

// AvatarAttribute is the attribute name validation errors are reported under.
const AvatarAttribute = "avatar"

// ErrDetectionUnavailable marks failures to reach or understand the detection API.
var ErrDetectionUnavailable = errors.New("face detection unavailable")

// FaceCheckRepository defines the persistence operations needed by the use case.
type FaceCheckRepository interface {
	SaveCheck(ctx context.Context, check *repository.FaceCheck) error
	FindCheck(ctx context.Context, requestID, subject string) (*repository.FaceCheck, error)
	SaveAvatar(ctx context.Context, subject, avatarPath string) (*repository.Profile, error)
	FindProfile(ctx context.Context, subject string) (*repository.Profile, error)
	CountOutcomes(ctx context.Context) (repository.OutcomeCounts, error)
}

// ImageStore keeps uploaded files on disk so they can be validated by path.
type ImageStore interface {
	Save(ctx context.Context, owner, ext string, data []byte) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(path string) error
}

// FaceValidator is satisfied by *hasface.Validator.
type FaceValidator interface {
	Validate(ctx context.Context, target hasface.ErrorAdder, attribute string, value any) error
}

// NewAvatarValidator builds a face validator for uploads kept in store. Stored
// paths are local, so they are read through store regardless of cfg.Hostname.
func NewAvatarValidator(cfg *hasface.Config, store ImageStore, opts ...hasface.Option) *hasface.Validator {
	opts = append(opts[:len(opts):len(opts)], hasface.WithOpener(store.Open))
	return hasface.New(cfg, opts...)
}

// Avatar is an uploaded image stored on disk.
type Avatar struct {
	File string
}

// Path implements hasface.ImageRef.
func (a *Avatar) Path() string {
	if a == nil {
		return ""
	}
	return a.File
}

// ProfileForm is the record validated on avatar upload.
type ProfileForm struct {
	Subject string
	Avatar  *Avatar
	Errors  hasface.Errors
}

// AddError implements hasface.ErrorAdder.
func (p *ProfileForm) AddError(attribute string, kind hasface.ErrorKind) {
	p.Errors.AddError(attribute, kind)
}

// AvatarResult is the outcome of an avatar upload.
type AvatarResult struct {
	RequestID string
	Valid     bool
	Errors    map[string][]string
	Profile   *repository.Profile
}

// AvatarUseCase validates uploaded avatars and stores the accepted ones.
type AvatarUseCase struct {
	repo      FaceCheckRepository
	store     ImageStore
	validator FaceValidator
	limiter   UploadLimiter
	logger    *zap.Logger
	now       func() time.Time
}

// AvatarOption configures an AvatarUseCase.
type AvatarOption func(*AvatarUseCase)

// WithUploadLimiter limits how often a subject may upload.
func WithUploadLimiter(l UploadLimiter) AvatarOption {
	return func(uc *AvatarUseCase) { uc.limiter = l }
}

// NewAvatarUseCase constructs a new use case instance.
func NewAvatarUseCase(repo FaceCheckRepository, store ImageStore, validator FaceValidator, logger *zap.Logger, opts ...AvatarOption) *AvatarUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &AvatarUseCase{
		repo:      repo,
		store:     store,
		validator: validator,
		logger:    logger.Named("avatar_usecase"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// UploadAvatar stores image, checks it for a face and, when one is found,
// makes it the subject's avatar. Every attempt is recorded as a face check.
func (uc *AvatarUseCase) UploadAvatar(ctx context.Context, subject, ext string, image []byte) (*AvatarResult, error) {
	requestID := uuid.NewString()
	ctx = logging.ContextWithRequestID(ctx, requestID)
	opLogger := logging.WithOperation(uc.logger, "usecase.upload_avatar", requestID)

	if uc.limiter != nil {
		allowed, err := uc.limiter.Allow(ctx, subject)
		switch {
		case err != nil:
			// limiter outages do not block uploads
			opLogger.Warn("upload limiter unavailable", zap.Error(err))
		case !allowed:
			opLogger.Info("upload rate limited", zap.String("subject", subject))
			return nil, logging.NewOperationError("usecase.rate_limit", requestID, ErrRateLimited)
		}
	}

	imagePath, err := uc.store.Save(ctx, subject, ext, image)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.store_avatar", requestID, err)
		opLogger.Error("failed to store upload", zap.Error(wrapped))
		return nil, wrapped
	}

	form := &ProfileForm{Subject: subject, Avatar: &Avatar{File: imagePath}}
	check := &repository.FaceCheck{
		RequestID: requestID,
		Subject:   subject,
		ImagePath: imagePath,
		CreatedAt: uc.now(),
	}

	if err := uc.validator.Validate(ctx, form, AvatarAttribute, form.Avatar); err != nil {
		check.Outcome = repository.OutcomeError
		check.Details = err.Error()
		uc.discard(opLogger, imagePath)
		if saveErr := uc.repo.SaveCheck(ctx, check); saveErr != nil {
			opLogger.Warn("failed to record failed check", zap.Error(saveErr))
		}
		wrapped := logging.NewOperationError("usecase.validate_avatar", requestID, fmt.Errorf("%w: %w", ErrDetectionUnavailable, err))
		opLogger.Error("face validation failed", zap.Error(wrapped))
		return nil, wrapped
	}

	result := &AvatarResult{
		RequestID: requestID,
		Valid:     form.Errors.Empty(),
		Errors:    form.Errors.Map(),
	}

	if result.Valid {
		check.Outcome = repository.OutcomeFace
	} else {
		check.Outcome = repository.OutcomeNoFace
		check.Details = strings.Join(form.Errors.FullMessages(), "; ")
		uc.discard(opLogger, imagePath)
	}

	if err := uc.repo.SaveCheck(ctx, check); err != nil {
		wrapped := logging.NewOperationError("usecase.save_check", requestID, err)
		opLogger.Error("failed to persist face check", zap.Error(wrapped))
		return nil, wrapped
	}

	if result.Valid {
		profile, err := uc.repo.SaveAvatar(ctx, subject, imagePath)
		if err != nil {
			wrapped := logging.NewOperationError("usecase.save_avatar", requestID, err)
			opLogger.Error("failed to update profile", zap.Error(wrapped))
			return nil, wrapped
		}
		result.Profile = profile
	}

	opLogger.Info("avatar checked", zap.String("outcome", check.Outcome))
	return result, nil
}

// GetCheck returns a face check recorded for subject.
func (uc *AvatarUseCase) GetCheck(ctx context.Context, subject, requestID string) (*repository.FaceCheck, error) {
	return uc.repo.FindCheck(ctx, requestID, subject)
}

// GetProfile returns the profile of subject.
func (uc *AvatarUseCase) GetProfile(ctx context.Context, subject string) (*repository.Profile, error) {
	return uc.repo.FindProfile(ctx, subject)
}

func (uc *AvatarUseCase) discard(logger *zap.Logger, imagePath string) {
	if err := uc.store.Remove(imagePath); err != nil {
		logger.Warn("failed to remove rejected upload", zap.String("path", imagePath), zap.Error(err))
	}
}
