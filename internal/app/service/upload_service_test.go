package service

import (
	"context"
	"testing"

	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPresigner struct {
	calls int
}

func (p *stubPresigner) PresignUpload(_ context.Context, folder, filename, contentType string) (*storage.PresignedUpload, error) {
	p.calls++
	key := folder + "/fixed.png"
	return &storage.PresignedUpload{UploadURL: "https://upload/" + key, FileURL: "https://cdn/" + key, Key: key}, nil
}

func TestUploadService_PresignedURL(t *testing.T) {
	presigner := &stubPresigner{}
	svc := NewUploadService(presigner)
	ctx := context.Background()

	upload, err := svc.PresignedURL(ctx, 1, UploadRequest{Filename: "a.png", ContentType: "IMAGE/PNG", FileSize: 1024, Folder: "products"})
	require.NoError(t, err)
	assert.Equal(t, "products/fixed.png", upload.Key)

	tests := []struct {
		name string
		req  UploadRequest
		want error
	}{
		{"bad folder", UploadRequest{Filename: "a.png", ContentType: "image/png", FileSize: 1, Folder: "docs"}, ErrInvalidUploadFolder},
		{"bad type", UploadRequest{Filename: "a.pdf", ContentType: "application/pdf", FileSize: 1, Folder: "avatars"}, ErrInvalidContentType},
		{"too large", UploadRequest{Filename: "a.png", ContentType: "image/png", FileSize: MaxUploadSize + 1, Folder: "avatars"}, ErrFileTooLarge},
		{"empty size", UploadRequest{Filename: "a.png", ContentType: "image/png", Folder: "avatars"}, ErrFileTooLarge},
		{"no filename", UploadRequest{ContentType: "image/png", FileSize: 1, Folder: "avatars"}, ErrFilenameRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PresignedURL(ctx, 1, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 1, presigner.calls)

	_, err = NewUploadService(nil).PresignedURL(ctx, 1, UploadRequest{Filename: "a.png"})
	assert.ErrorIs(t, err, ErrUploadUnavailable)
}
