package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"elevator-memo/internal/authz"
	"elevator-memo/internal/config"
	"elevator-memo/internal/models"

	"gorm.io/gorm"
)

var (
	ErrMemoNotFound  = errors.New("memo not found")
	ErrInvalidStatus = errors.New("non-conformance status must be 0, 1 or 2")
)

// Listings never return more rows than this, whatever the caller asked for.
const maxPageSize = 100

const memoNumberPrefix = "03TCC"

// Fields a caller may change through Update. Anything else in the request
// body is ignored.
var memoUpdateAllowList = map[string]bool{
	"user_unit_name":         true,
	"installation_location":  true,
	"equipment_type":         true,
	"product_number":         true,
	"registration_cert_no":   true,
	"inspection_date":        true,
	"non_conformance_status": true,
	"recommendations":        true,
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func newPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

type MemoService struct {
	cfg *config.Config
}

func NewMemoService(cfg *config.Config) *MemoService {
	return &MemoService{cfg: cfg}
}

// CreateMemoData carries the writable fields of a new memo.
type CreateMemoData struct {
	MemoNumber              string
	UserUnitName            string
	InstallationLocation    string
	EquipmentType           string
	ProductNumber           string
	RegistrationCertNo      string
	NonConformanceStatus    int
	Recommendations         string
	TesterSignaturePath     string
	RepresentativeSignature string
	InspectionDate          string
	SigningDate             string
}

// scoped builds the memo query with the caller's predicates applied in order.
// The owner join is added only when a predicate references the users table.
func (s *MemoService) scoped(caller authz.Caller, filters authz.MemoFilters) *gorm.DB {
	query := models.DB.Model(&models.Memo{})
	if filters.NeedsOwnerJoin() {
		query = query.Joins("LEFT JOIN users ON users.id = memos.created_by")
	}
	for _, p := range authz.MemoPredicates(caller, filters) {
		query = query.Where(p.Query, p.Args...)
	}
	return query
}

// List returns the caller-visible memos for one page, newest first, with an
// exact total for the active predicate set.
func (s *MemoService) List(page, limit int, filters authz.MemoFilters, caller authz.Caller) ([]models.Memo, Pagination, error) {
	page, limit = normalizePage(page, limit)

	var total int64
	if err := s.scoped(caller, filters).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var memos []models.Memo
	if err := s.scoped(caller, filters).
		Select("memos.*").
		Order("memos.created_at DESC, memos.id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Preload("Creator").
		Find(&memos).Error; err != nil {
		return nil, Pagination{}, err
	}

	return memos, newPagination(page, limit, total), nil
}

// ListAll returns every caller-visible memo for the active filters, newest
// first. Used by the spreadsheet export, which is not paginated.
func (s *MemoService) ListAll(filters authz.MemoFilters, caller authz.Caller) ([]models.Memo, error) {
	var memos []models.Memo
	if err := s.scoped(caller, filters).
		Select("memos.*").
		Order("memos.created_at DESC, memos.id DESC").
		Preload("Creator").
		Find(&memos).Error; err != nil {
		return nil, err
	}
	return memos, nil
}

// Get returns one memo if it exists and is visible to the caller. Records
// owned by other users look identical to missing ones.
func (s *MemoService) Get(id uint, caller authz.Caller) (*models.Memo, error) {
	var memo models.Memo
	err := s.scoped(caller, authz.MemoFilters{}).
		Where("memos.id = ?", id).
		Preload("Creator").
		First(&memo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemoNotFound
		}
		return nil, err
	}
	return &memo, nil
}

// Create inserts a new memo owned by the caller. A missing memo number is
// generated; a missing inspection date defaults to today.
func (s *MemoService) Create(data CreateMemoData, caller authz.Caller) (*models.Memo, error) {
	if !models.ValidNonConformanceStatus(data.NonConformanceStatus) {
		return nil, ErrInvalidStatus
	}
	if data.MemoNumber == "" {
		data.MemoNumber = GenerateMemoNumber()
	}
	if data.InspectionDate == "" {
		data.InspectionDate = today()
	}

	memo := &models.Memo{
		MemoNumber:              data.MemoNumber,
		UserUnitName:            data.UserUnitName,
		InstallationLocation:    data.InstallationLocation,
		EquipmentType:           data.EquipmentType,
		ProductNumber:           data.ProductNumber,
		RegistrationCertNo:      data.RegistrationCertNo,
		NonConformanceStatus:    data.NonConformanceStatus,
		Recommendations:         data.Recommendations,
		TesterSignaturePath:     data.TesterSignaturePath,
		RepresentativeSignature: data.RepresentativeSignature,
		InspectionDate:          data.InspectionDate,
		SigningDate:             data.SigningDate,
		CreatedBy:               caller.ID,
	}

	if err := models.DB.Create(memo).Error; err != nil {
		return nil, err
	}
	return memo, nil
}

// Update applies the allow-listed subset of updates to a caller-visible memo.
// Unknown fields are dropped silently; an update that reduces to nothing
// returns the record unchanged.
func (s *MemoService) Update(id uint, updates map[string]any, caller authz.Caller) (*models.Memo, error) {
	memo, err := s.Get(id, caller)
	if err != nil {
		return nil, err
	}

	filtered := make(map[string]any, len(updates))
	for key, value := range updates {
		if !memoUpdateAllowList[key] {
			continue
		}
		if key == "non_conformance_status" {
			status, ok := toStatus(value)
			if !ok {
				return nil, ErrInvalidStatus
			}
			value = status
		}
		filtered[key] = value
	}

	if len(filtered) == 0 {
		return memo, nil
	}

	if err := models.DB.Model(&models.Memo{}).Where("id = ?", memo.ID).Updates(filtered).Error; err != nil {
		return nil, err
	}

	return s.Get(id, caller)
}

// toStatus coerces a JSON-decoded status value into the enum.
func toStatus(value any) (int, bool) {
	var status int
	switch v := value.(type) {
	case float64:
		status = int(v)
	case int:
		status = v
	default:
		return 0, false
	}
	if !models.ValidNonConformanceStatus(status) {
		return 0, false
	}
	return status, true
}

// Copy clones a caller-visible memo into a new unsigned record: derived memo
// number, inspection date reset to today, signature fields cleared.
func (s *MemoService) Copy(id uint, caller authz.Caller) (*models.Memo, error) {
	source, err := s.Get(id, caller)
	if err != nil {
		return nil, err
	}

	copied := &models.Memo{
		MemoNumber:           fmt.Sprintf("%s_COPY_%d", source.MemoNumber, time.Now().UnixMilli()),
		UserUnitName:         source.UserUnitName,
		InstallationLocation: source.InstallationLocation,
		EquipmentType:        source.EquipmentType,
		ProductNumber:        source.ProductNumber,
		RegistrationCertNo:   source.RegistrationCertNo,
		NonConformanceStatus: source.NonConformanceStatus,
		Recommendations:      source.Recommendations,
		TesterSignaturePath:  source.TesterSignaturePath,
		InspectionDate:       today(),
		CreatedBy:            source.CreatedBy,
	}

	if err := models.DB.Create(copied).Error; err != nil {
		return nil, err
	}
	return copied, nil
}

// Delete removes a caller-visible memo and returns the deleted record so the
// handler can unlink any referenced signature file. The store itself never
// touches the filesystem.
func (s *MemoService) Delete(id uint, caller authz.Caller) (*models.Memo, error) {
	memo, err := s.Get(id, caller)
	if err != nil {
		return nil, err
	}

	if err := models.DB.Delete(&models.Memo{}, memo.ID).Error; err != nil {
		return nil, err
	}
	return memo, nil
}

// UpdateSignature attaches a representative signature and signing date to a
// caller-visible memo. A memo owned by someone else counts as missing, like
// every other mutation.
func (s *MemoService) UpdateSignature(id uint, signature, signingDate string, caller authz.Caller) (*models.Memo, error) {
	if signingDate == "" {
		signingDate = today()
	}

	query := models.DB.Model(&models.Memo{}).Where("memos.id = ?", id)
	for _, p := range authz.MemoPredicates(caller, authz.MemoFilters{}) {
		query = query.Where(p.Query, p.Args...)
	}

	result := query.Updates(map[string]any{
		"representative_signature": signature,
		"signing_date":             signingDate,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrMemoNotFound
	}

	return s.Get(id, caller)
}

// BatchSign applies one signature and signing date to many memos, best-effort
// per id. Missing and foreign ids are skipped, not fatal.
func (s *MemoService) BatchSign(ids []uint, signature, signingDate string, caller authz.Caller) ([]models.Memo, error) {
	signed := make([]models.Memo, 0, len(ids))
	for _, id := range ids {
		memo, err := s.UpdateSignature(id, signature, signingDate, caller)
		if err != nil {
			if errors.Is(err, ErrMemoNotFound) {
				continue
			}
			return signed, err
		}
		signed = append(signed, *memo)
	}
	return signed, nil
}

// GenerateMemoNumber builds a memo number: prefix + month + year + a random
// four-digit suffix, e.g. 03TCC0920264217.
func GenerateMemoNumber() string {
	now := time.Now()
	suffix := rand.Intn(9000) + 1000
	return fmt.Sprintf("%s%02d%d%d", memoNumberPrefix, int(now.Month()), now.Year(), suffix)
}

func today() string {
	return time.Now().Format("2006-01-02")
}
