package services

import (
	"errors"

	"elevator-memo/internal/config"
	"elevator-memo/internal/models"

	"gorm.io/gorm"
)

var ErrSignatureNotFound = errors.New("signature not found")

type SignatureService struct {
	cfg *config.Config
}

func NewSignatureService(cfg *config.Config) *SignatureService {
	return &SignatureService{cfg: cfg}
}

// Add stores a new signature asset for a user. When the new asset is the
// default, the previous default is cleared in the same transaction so two
// defaults are never observable.
func (s *SignatureService) Add(userID uint, filename, filePath string, isDefault bool) (*models.Signature, error) {
	signature := &models.Signature{
		UserID:    userID,
		Filename:  filename,
		FilePath:  filePath,
		IsDefault: isDefault,
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		if isDefault {
			if err := tx.Model(&models.Signature{}).
				Where("user_id = ? AND is_default = ?", userID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(signature).Error
	})
	if err != nil {
		return nil, err
	}

	return signature, nil
}

// List returns a user's signatures, default first, then newest first.
func (s *SignatureService) List(userID uint) ([]models.Signature, error) {
	var signatures []models.Signature
	if err := models.DB.
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&signatures).Error; err != nil {
		return nil, err
	}
	return signatures, nil
}

// GetDefault returns the user's default signature, or ErrSignatureNotFound
// when none is set.
func (s *SignatureService) GetDefault(userID uint) (*models.Signature, error) {
	var signature models.Signature
	err := models.DB.
		Where("user_id = ? AND is_default = ?", userID, true).
		First(&signature).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSignatureNotFound
		}
		return nil, err
	}
	return &signature, nil
}

// Delete removes a signature owned by the given user and returns the deleted
// row so the caller can unlink the backing file afterwards.
func (s *SignatureService) Delete(signatureID, userID uint) (*models.Signature, error) {
	var signature models.Signature
	err := models.DB.
		Where("id = ? AND user_id = ?", signatureID, userID).
		First(&signature).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSignatureNotFound
		}
		return nil, err
	}

	if err := models.DB.Delete(&signature).Error; err != nil {
		return nil, err
	}
	return &signature, nil
}
