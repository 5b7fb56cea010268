package handlers

import (
	"errors"
	"strconv"

	"elevator-memo/internal/api/middleware"
	"elevator-memo/internal/config"
	"elevator-memo/internal/services"
	"elevator-memo/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService      *services.UserService
	signatureService *services.SignatureService
	store            *storage.Store
	logger           *zap.Logger
}

func NewUserHandler(cfg *config.Config, store *storage.Store, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:      services.NewUserService(cfg),
		signatureService: services.NewSignatureService(cfg),
		store:            store,
		logger:           logger,
	}
}

type UpdateUserRequest struct {
	Phone    string `json:"phone"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// GetUsers returns active users, paginated and searchable.
func (h *UserHandler) GetUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	search := c.Query("search")
	fullName := c.Query("full_name")

	users, pagination, err := h.userService.ListUsers(page, limit, search, fullName)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get users"})
		return
	}

	c.JSON(200, gin.H{"users": users, "pagination": pagination})
}

// UpdateUser is the admin path for editing another account. Editing your own
// account goes through the profile endpoint instead.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	if id == middleware.CurrentUser(c).ID {
		c.JSON(400, gin.H{"error": "Use the profile endpoint to edit your own account"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := h.userService.UpdateUser(id, req.Phone, req.FullName, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(404, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidRole):
			c.JSON(400, gin.H{"error": err.Error()})
		default:
			c.JSON(500, gin.H{"error": "Failed to update user"})
		}
		return
	}

	c.JSON(200, gin.H{"message": "User updated", "user": user})
}

// UpdateRole changes another user's role.
func (h *UserHandler) UpdateRole(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := h.userService.UpdateRole(id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(404, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidRole):
			c.JSON(400, gin.H{"error": err.Error()})
		default:
			c.JSON(500, gin.H{"error": "Failed to update role"})
		}
		return
	}

	c.JSON(200, gin.H{"message": "Role updated", "user": user})
}

// DeactivateUser soft-deletes an account. Self-deactivation is rejected.
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	if id == middleware.CurrentUser(c).ID {
		c.JSON(400, gin.H{"error": "Cannot deactivate your own account"})
		return
	}

	user, err := h.userService.Deactivate(id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(404, gin.H{"error": err.Error()})
		} else {
			c.JSON(500, gin.H{"error": "Failed to deactivate user"})
		}
		return
	}

	c.JSON(200, gin.H{"message": "User deactivated", "user": user})
}

// UploadSignature stores a signature image for the caller.
func (h *UserHandler) UploadSignature(c *gin.Context) {
	h.uploadSignatureFor(c, middleware.CurrentUser(c).ID)
}

// UploadUserSignature is the admin path for storing a signature on behalf of
// another user.
func (h *UserHandler) UploadUserSignature(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	if _, err := h.userService.GetUser(id); err != nil {
		c.JSON(404, gin.H{"error": "Target user not found"})
		return
	}

	h.uploadSignatureFor(c, id)
}

// uploadSignatureFor runs the two upload phases: store the file, then persist
// the row. A failed second phase unlinks the stored file.
func (h *UserHandler) uploadSignatureFor(c *gin.Context, userID uint) {
	header, err := c.FormFile("signature")
	if err != nil {
		c.JSON(400, gin.H{"error": "Signature file required"})
		return
	}

	saved, err := h.store.SaveUpload(header)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
			c.JSON(400, gin.H{"error": err.Error()})
		} else {
			h.logger.Error("failed to store signature upload", zap.Error(err))
			c.JSON(500, gin.H{"error": "Failed to store upload"})
		}
		return
	}

	isDefault := c.PostForm("is_default") == "true"
	signature, err := h.signatureService.Add(userID, saved.Filename, saved.WebPath, isDefault)
	if err != nil {
		if removeErr := h.store.Remove(saved.WebPath); removeErr != nil {
			h.logger.Warn("failed to remove unpersisted upload", zap.Error(removeErr))
		}
		h.logger.Error("failed to persist signature", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to save signature"})
		return
	}

	c.JSON(201, gin.H{"message": "Signature uploaded", "signature": signature})
}

// GetSignatures lists the caller's signatures, default first.
func (h *UserHandler) GetSignatures(c *gin.Context) {
	signatures, err := h.signatureService.List(middleware.CurrentUser(c).ID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get signatures"})
		return
	}

	c.JSON(200, gin.H{"signatures": signatures})
}

// GetUserSignatures is the admin path for listing another user's signatures.
func (h *UserHandler) GetUserSignatures(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	if _, err := h.userService.GetUser(id); err != nil {
		c.JSON(404, gin.H{"error": "Target user not found"})
		return
	}

	signatures, err := h.signatureService.List(id)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get signatures"})
		return
	}

	c.JSON(200, gin.H{"signatures": signatures})
}

// DeleteSignature removes one of the caller's signatures, then its file.
func (h *UserHandler) DeleteSignature(c *gin.Context) {
	id, err := parseID(c.Param("signatureId"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid signature ID"})
		return
	}

	signature, err := h.signatureService.Delete(id, middleware.CurrentUser(c).ID)
	if err != nil {
		if errors.Is(err, services.ErrSignatureNotFound) {
			c.JSON(404, gin.H{"error": "Signature not found"})
		} else {
			c.JSON(500, gin.H{"error": "Failed to delete signature"})
		}
		return
	}

	if err := h.store.Remove(signature.FilePath); err != nil {
		h.logger.Warn("failed to remove signature file",
			zap.String("path", signature.FilePath), zap.Error(err))
	}

	c.JSON(200, gin.H{"message": "Signature deleted", "signature": signature})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	return uint(id), err
}
