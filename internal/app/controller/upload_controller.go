package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
)

type UploadController struct {
	uploadService *service.UploadService
}

func NewUploadController(uploadService *service.UploadService) *UploadController {
	return &UploadController{uploadService: uploadService}
}

type PresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required,gt=0"`
	Folder      string `json:"folder" binding:"required"`
}

// GeneratePresignedURL issues a direct-to-S3 upload URL.
// POST /api/v1/upload/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req PresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	upload, err := ctrl.uploadService.PresignedURL(c.Request.Context(), userID, service.UploadRequest{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
		Folder:      req.Folder,
	})
	if err != nil {
		respondError(c, err, "upload")
		return
	}
	c.JSON(http.StatusOK, upload)
}
