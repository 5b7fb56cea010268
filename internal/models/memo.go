package models

import (
	"time"
)

// Non-conformance status values stored on a memo.
const (
	NonConformanceNone   = 0
	NonConformanceMinor  = 1
	NonConformanceSevere = 2
)

// Memo is one elevator self-inspection record. A memo counts as signed once
// RepresentativeSignature is non-empty; SigningDate stays empty until then.
type Memo struct {
	ID                      uint      `json:"id" gorm:"primaryKey"`
	MemoNumber              string    `json:"memo_number" gorm:"type:varchar(100);uniqueIndex;not null"`
	UserUnitName            string    `json:"user_unit_name" gorm:"type:varchar(255);index"`
	InstallationLocation    string    `json:"installation_location" gorm:"type:varchar(255)"`
	EquipmentType           string    `json:"equipment_type" gorm:"type:varchar(100)"`
	ProductNumber           string    `json:"product_number" gorm:"type:varchar(100)"`
	RegistrationCertNo      string    `json:"registration_cert_no" gorm:"type:varchar(100);index"`
	NonConformanceStatus    int       `json:"non_conformance_status" gorm:"default:0"`
	Recommendations         string    `json:"recommendations" gorm:"type:text"`
	TesterSignaturePath     string    `json:"tester_signature_path" gorm:"type:varchar(500)"`
	RepresentativeSignature string    `json:"representative_signature" gorm:"type:text"`
	InspectionDate          string    `json:"inspection_date" gorm:"type:varchar(10);index"`
	SigningDate             string    `json:"signing_date" gorm:"type:varchar(10)"`
	CreatedBy               uint      `json:"created_by" gorm:"index"`
	Creator                 User      `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	CreatedAt               time.Time `json:"created_at" gorm:"index"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// Signed reports whether a representative signature is attached.
func (m *Memo) Signed() bool {
	return m.RepresentativeSignature != ""
}

// ValidNonConformanceStatus reports whether status is a known enum value.
func ValidNonConformanceStatus(status int) bool {
	return status == NonConformanceNone || status == NonConformanceMinor || status == NonConformanceSevere
}
