package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	_ "golang.org/x/image/webp"

	"github.com/example/hasface/internal/auth"
	"github.com/example/hasface/internal/repository"
	"github.com/example/hasface/internal/usecase"
)

// MaxUploadSize is the largest accepted avatar in bytes.
const MaxUploadSize = 5 << 20

// multipart boundaries and headers on top of the file itself
const formOverhead = 1 << 20

var allowedImageTypes = []struct {
	mime string
	ext  string
}{
	{"image/jpeg", ".jpeg"},
	{"image/png", ".png"},
	{"image/gif", ".gif"},
	{"image/webp", ".webp"},
}

// AvatarService is the use case behind the routes.
type AvatarService interface {
	UploadAvatar(ctx context.Context, subject, ext string, image []byte) (*usecase.AvatarResult, error)
	GetCheck(ctx context.Context, subject, requestID string) (*repository.FaceCheck, error)
	GetProfile(ctx context.Context, subject string) (*repository.Profile, error)
	GetMetricsSummary(ctx context.Context) (*usecase.MetricsSummary, error)
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, svc AvatarService, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.GET("/metrics", func(c *gin.Context) {
		summary, err := svc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metrics"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	secured := api.Group("", authMiddleware)
	secured.POST("/avatar", uploadAvatar(svc))

	secured.GET("/checks/:id", func(c *gin.Context) {
		subject, _ := auth.Subject(c.Request.Context())
		check, err := svc.GetCheck(c.Request.Context(), subject, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "check not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load check"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": check.RequestID,
			"subject":    check.Subject,
			"outcome":    check.Outcome,
			"details":    check.Details,
			"created_at": check.CreatedAt,
		})
	})

	secured.GET("/profile", func(c *gin.Context) {
		subject, _ := auth.Subject(c.Request.Context())
		profile, err := svc.GetProfile(c.Request.Context(), subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"subject":    profile.Subject,
			"avatar":     profile.AvatarPath,
			"updated_at": profile.UpdatedAt,
		})
	})
}

func uploadAvatar(svc AvatarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := auth.Subject(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing subject"})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+formOverhead)
		file, err := c.FormFile("image")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}
		if len(data) > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return
		}

		ext, ok := imageExtension(data)
		if !ok {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "image must be jpeg, png, gif or webp"})
			return
		}
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image cannot be decoded"})
			return
		}

		result, err := svc.UploadAvatar(c.Request.Context(), subject, ext, data)
		if err != nil {
			if errors.Is(err, usecase.ErrRateLimited) {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many uploads, try again later"})
				return
			}
			if errors.Is(err, usecase.ErrDetectionUnavailable) {
				c.JSON(http.StatusBadGateway, gin.H{"error": "face detection unavailable"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process image"})
			return
		}

		body := gin.H{
			"request_id": result.RequestID,
			"valid":      result.Valid,
			"errors":     result.Errors,
		}
		if !result.Valid {
			c.JSON(http.StatusUnprocessableEntity, body)
			return
		}
		if result.Profile != nil {
			body["avatar"] = result.Profile.AvatarPath
		}
		c.JSON(http.StatusOK, body)
	}
}

// imageExtension sniffs data and returns the stored file extension.
func imageExtension(data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed.mime) {
			return allowed.ext, true
		}
	}
	return "", false
}
