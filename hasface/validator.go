// Package hasface validates that an image attribute shows a face, using a
// remote face detection API.
package hasface

import (
	"context"
	"net/http"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/hasface/internal/logging"
)

// Validator checks image attributes against the detection API.
type Validator struct {
	cfg        *Config
	detector   Detector
	opener     Opener
	httpClient *http.Client
	logger     *zap.Logger
	allowNil   bool
	allowBlank bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithAllowNil skips validation when the value is nil.
func WithAllowNil(allow bool) Option {
	return func(v *Validator) { v.allowNil = allow }
}

// WithAllowBlank skips validation when the value is blank.
func WithAllowBlank(allow bool) Option {
	return func(v *Validator) { v.allowBlank = allow }
}

// WithDetector replaces the HTTP detection client.
func WithDetector(d Detector) Option {
	return func(v *Validator) { v.detector = d }
}

// WithOpener replaces how image paths are opened.
func WithOpener(o Opener) Option {
	return func(v *Validator) { v.opener = o }
}

// WithHTTPClient sets the client used for detection calls and remote images.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Validator) { v.httpClient = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New builds a Validator reading cfg on every call.
func New(cfg *Config, opts ...Option) *Validator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	v := &Validator{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.detector == nil {
		v.detector = NewClient(cfg, v.httpClient)
	}
	if v.opener == nil {
		v.opener = v.openImage
	}
	v.logger = v.logger.Named("hasface")
	return v
}

// Config returns the config the validator reads.
func (v *Validator) Config() *Config {
	return v.cfg
}

// Validate adds NoFace to target under attribute when value has no detectable
// face. At most one error is added per call. Failures to read the image or to
// talk to the detection API are returned and leave target untouched.
func (v *Validator) Validate(ctx context.Context, target ErrorAdder, attribute string, value any) error {
	if !v.cfg.EnableValidation {
		return nil
	}

	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	opLogger := logging.WithOperation(v.logger, "hasface.validate", requestID).With(zap.String("attribute", attribute))

	imagePath := resolvePath(value)

	if (v.allowNil && isNil(value)) || (v.allowBlank && isBlank(value)) {
		opLogger.Debug("skipping blank image")
		return nil
	}

	if imagePath == "" {
		opLogger.Info("no image path", zap.String("error_kind", string(NoFace)))
		target.AddError(attribute, NoFace)
		return nil
	}

	image, err := v.opener(ctx, imagePath)
	if err != nil {
		wrapped := logging.NewOperationError("hasface.open_image", requestID, err)
		opLogger.Error("failed to open image", zap.Error(wrapped), zap.String("path", imagePath))
		return wrapped
	}
	defer image.Close()

	resp, err := v.detector.Detect(ctx, image, path.Base(imagePath))
	if err != nil {
		wrapped := logging.NewOperationError("hasface.detect", requestID, err)
		opLogger.Error("face detection call failed", zap.Error(wrapped))
		return wrapped
	}

	tags := resp.Tags()
	if len(tags) == 0 {
		opLogger.Info("no face detected", zap.String("error_kind", string(NoFace)))
		target.AddError(attribute, NoFace)
		return nil
	}

	opLogger.Debug("face detected", zap.Int("tags", len(tags)))
	return nil
}

// Check validates value on its own and reports whether it passed.
func (v *Validator) Check(ctx context.Context, value any) (bool, *Errors, error) {
	errs := &Errors{}
	if err := v.Validate(ctx, errs, "image", value); err != nil {
		return false, errs, err
	}
	return errs.Empty(), errs, nil
}
