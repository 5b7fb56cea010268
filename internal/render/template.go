package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// ErrMemoNotSigned rejects a render before the engine is touched: only memos
// carrying a representative signature may be exported.
var ErrMemoNotSigned = errors.New("memo has not been signed")

// Font tiers for the recommendations cell, keyed by content length.
const (
	fontTierSmallLen   = 450
	fontTierSmallerLen = 700
	fontTierTinyLen    = 1000
)

// MemoView is the data a memo render needs, decoupled from the storage model
// so the template substitution stays typed and exhaustive.
type MemoView struct {
	MemoNumber              string
	UserUnitName            string
	InstallationLocation    string
	EquipmentType           string
	ProductNumber           string
	RegistrationCertNo      string
	NonConformanceStatus    int
	Recommendations         string
	InspectionDate          string
	SigningDate             string
	RepresentativeSignature string
}

// Signed reports whether a representative signature is present.
func (v MemoView) Signed() bool {
	return v.RepresentativeSignature != ""
}

// viewModel is what the template actually renders: every placeholder is a
// field here, so a template typo fails at parse time instead of producing a
// half-substituted document.
type viewModel struct {
	MemoNumber                  string
	UserUnitName                string
	InstallationLocation        string
	EquipmentType               string
	ProductNumber               string
	RegistrationCertNo          string
	InspectionDate              string
	InspectionDateFormatted     string
	SigningDate                 string
	SigningDateFormatted        string
	Recommendations             string
	RecommendationsClass        string
	NonConformanceCellClass     string
	NonConformanceStatus        int
	TesterSignatureHTML         template.HTML
	RepresentativeSignatureHTML template.HTML
}

// buildViewModel maps a memo and its resolved tester-signature image into the
// template view. Display policy:
//   - status NONE: recommendations text suppressed, cell expanded
//   - MINOR/SEVERE: text shown, font tier by length; empty text still expands
func buildViewModel(view MemoView, testerImage []byte) viewModel {
	vm := viewModel{
		MemoNumber:              view.MemoNumber,
		UserUnitName:            view.UserUnitName,
		InstallationLocation:    view.InstallationLocation,
		EquipmentType:           view.EquipmentType,
		ProductNumber:           view.ProductNumber,
		RegistrationCertNo:      view.RegistrationCertNo,
		InspectionDate:          view.InspectionDate,
		InspectionDateFormatted: formatLongDate(view.InspectionDate),
		SigningDate:             view.SigningDate,
		SigningDateFormatted:    formatLongDate(view.SigningDate),
		NonConformanceStatus:    view.NonConformanceStatus,
		RecommendationsClass:    "auto-size",
	}

	if view.NonConformanceStatus == 0 {
		vm.Recommendations = ""
		vm.NonConformanceCellClass = "expanded"
	} else {
		vm.Recommendations = view.Recommendations
		switch length := len([]rune(view.Recommendations)); {
		case length > fontTierTinyLen:
			vm.RecommendationsClass = "size-tiny"
		case length > fontTierSmallerLen:
			vm.RecommendationsClass = "size-smaller"
		case length > fontTierSmallLen:
			vm.RecommendationsClass = "size-small"
		}
		if strings.TrimSpace(view.Recommendations) == "" {
			vm.NonConformanceCellClass = "expanded"
		}
	}

	if len(testerImage) > 0 {
		encoded := base64.StdEncoding.EncodeToString(testerImage)
		vm.TesterSignatureHTML = template.HTML(fmt.Sprintf(
			`<img src="data:image/png;base64,%s" alt="检测人员签名" class="signature-image">`, encoded))
	}

	if view.RepresentativeSignature != "" {
		vm.RepresentativeSignatureHTML = template.HTML(fmt.Sprintf(
			`<img src="%s" alt="使用单位代表签名" class="signature-image">`,
			template.HTMLEscapeString(view.RepresentativeSignature)))
	}

	return vm
}

// formatLongDate renders an ISO date in the localized long form, e.g.
// 2026-09-01 -> 2026年9月1日. Unparseable input comes back empty.
func formatLongDate(isoDate string) string {
	if isoDate == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
}

// buildHTML executes the document template against the view model.
func buildHTML(tmpl *template.Template, view MemoView, testerImage []byte) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, buildViewModel(view, testerImage)); err != nil {
		return "", fmt.Errorf("failed to execute memo template: %w", err)
	}
	return buf.String(), nil
}
