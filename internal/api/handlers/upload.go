package handlers

import (
	"errors"

	"elevator-memo/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UploadHandler struct {
	store  *storage.Store
	logger *zap.Logger
}

func NewUploadHandler(store *storage.Store, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// UploadTesterSignature stores a tester-signature image and returns its path
// for the client to attach to a memo.
func (h *UploadHandler) UploadTesterSignature(c *gin.Context) {
	header, err := c.FormFile("signature")
	if err != nil {
		c.JSON(400, gin.H{"error": "No file was uploaded"})
		return
	}

	saved, err := h.store.SaveUpload(header)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
			c.JSON(400, gin.H{"error": "File upload failed", "message": err.Error()})
		} else {
			h.logger.Error("failed to store upload", zap.Error(err))
			c.JSON(500, gin.H{"error": "File upload failed"})
		}
		return
	}

	c.JSON(200, gin.H{
		"message":      "File uploaded",
		"filePath":     saved.WebPath,
		"originalName": header.Filename,
		"size":         saved.Size,
	})
}
