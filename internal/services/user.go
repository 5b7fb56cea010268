package services

import (
	"errors"

	"elevator-memo/internal/config"
	"elevator-memo/internal/models"

	"gorm.io/gorm"
)

type UserService struct {
	authService *AuthService
}

func NewUserService(cfg *config.Config) *UserService {
	return &UserService{
		authService: NewAuthService(cfg),
	}
}

// ListUsers returns active users, paginated, optionally narrowed by a
// free-text search over username/full name/phone or a full-name filter.
func (s *UserService) ListUsers(page, limit int, search, fullName string) ([]models.User, Pagination, error) {
	page, limit = normalizePage(page, limit)

	query := models.DB.Model(&models.User{}).Where("is_active = ?", true)
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("username LIKE ? OR full_name LIKE ? OR phone LIKE ?", pattern, pattern, pattern)
	}
	if fullName != "" {
		query = query.Where("full_name LIKE ?", "%"+fullName+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var users []models.User
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&users).Error; err != nil {
		return nil, Pagination{}, err
	}

	return users, newPagination(page, limit, total), nil
}

// GetUser returns a specific user by ID
func (s *UserService) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := models.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile lets a user change their own full name and phone. A phone
// already held by another active user is a conflict.
func (s *UserService) UpdateProfile(id uint, fullName, phone string) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if phone != "" {
		var existing models.User
		if err := models.DB.Where("phone = ? AND is_active = ? AND id != ?", phone, true, id).
			First(&existing).Error; err == nil {
			return nil, ErrPhoneTaken
		}
	}

	user.FullName = fullName
	user.Phone = phone
	if err := models.DB.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser is the admin path for editing another user's phone, full name
// and role.
func (s *UserService) UpdateUser(id uint, phone, fullName, role string) (*models.User, error) {
	if role != "" && !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	user.Phone = phone
	user.FullName = fullName
	if role != "" {
		user.Role = role
	}

	if err := models.DB.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateRole changes a user's role
func (s *UserService) UpdateRole(id uint, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := models.DB.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate soft-deletes a user account. The row is kept so memo ownership
// references stay intact.
func (s *UserService) Deactivate(id uint) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	user.IsActive = false
	if err := models.DB.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
