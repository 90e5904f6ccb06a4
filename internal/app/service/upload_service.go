package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const MaxUploadSize = 5 << 20 // 5MB

var (
	ErrInvalidUploadFolder = errors.New("folder must be one of: products, avatars")
	ErrInvalidContentType  = errors.New("content type must be one of: image/jpeg, image/png, image/webp, image/gif")
	ErrFileTooLarge        = errors.New("file size exceeds the 5MB limit")
	ErrFilenameRequired    = errors.New("filename is required")
	ErrUploadUnavailable   = errors.New("file upload is not configured")
)

var (
	uploadFolders      = map[string]bool{"products": true, "avatars": true}
	uploadContentTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
		"image/gif":  true,
	}
)

// Presigner issues direct upload URLs; *storage.S3Storage implements it.
type Presigner interface {
	PresignUpload(ctx context.Context, folder, filename, contentType string) (*storage.PresignedUpload, error)
}

type UploadRequest struct {
	Filename    string
	ContentType string
	FileSize    int64
	Folder      string
}

type UploadService struct {
	presigner Presigner
}

func NewUploadService(presigner Presigner) *UploadService {
	return &UploadService{presigner: presigner}
}

func (s *UploadService) PresignedURL(ctx context.Context, userID uint, req UploadRequest) (*storage.PresignedUpload, error) {
	if s.presigner == nil {
		return nil, ErrUploadUnavailable
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, ErrFilenameRequired
	}
	if !uploadFolders[req.Folder] {
		return nil, ErrInvalidUploadFolder
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if !uploadContentTypes[contentType] {
		return nil, ErrInvalidContentType
	}
	if req.FileSize <= 0 || req.FileSize > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	upload, err := s.presigner.PresignUpload(ctx, req.Folder, req.Filename, contentType)
	if err != nil {
		logger.Error("Failed to presign upload", err, map[string]interface{}{
			"user_id": userID,
			"folder":  req.Folder,
		})
		return nil, err
	}

	logger.Info("Upload URL issued", map[string]interface{}{
		"user_id": userID,
		"key":     upload.Key,
	})
	return upload, nil
}
