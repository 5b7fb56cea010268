package render

import (
	"strings"
	"testing"

	"elevator-memo/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildViewModelSuppressesRecommendationsWhenConforming(t *testing.T) {
	vm := buildViewModel(MemoView{
		NonConformanceStatus: models.NonConformanceNone,
		Recommendations:      "should never appear in the document",
	}, nil)

	assert.Empty(t, vm.Recommendations)
	assert.Equal(t, "expanded", vm.NonConformanceCellClass)
	assert.Equal(t, "auto-size", vm.RecommendationsClass)
}

func TestBuildViewModelFontTiers(t *testing.T) {
	cases := []struct {
		name   string
		length int
		class  string
	}{
		{"short", 100, "auto-size"},
		{"at small boundary", 450, "auto-size"},
		{"small", 451, "size-small"},
		{"smaller", 701, "size-smaller"},
		{"tiny", 1001, "size-tiny"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Multibyte runes: tiers count characters, not bytes.
			text := strings.Repeat("修", tc.length)
			vm := buildViewModel(MemoView{
				NonConformanceStatus: models.NonConformanceMinor,
				Recommendations:      text,
			}, nil)

			assert.Equal(t, tc.class, vm.RecommendationsClass)
			assert.Equal(t, text, vm.Recommendations)
			assert.Empty(t, vm.NonConformanceCellClass)
		})
	}
}

func TestBuildViewModelEmptyRecommendationsExpand(t *testing.T) {
	vm := buildViewModel(MemoView{NonConformanceStatus: models.NonConformanceSevere}, nil)
	assert.Equal(t, "expanded", vm.NonConformanceCellClass)
	assert.Empty(t, vm.Recommendations)

	// Whitespace-only text counts as empty for the layout.
	vm = buildViewModel(MemoView{
		NonConformanceStatus: models.NonConformanceMinor,
		Recommendations:      "  \n\t ",
	}, nil)
	assert.Equal(t, "expanded", vm.NonConformanceCellClass)
}

func TestBuildViewModelSignatures(t *testing.T) {
	vm := buildViewModel(MemoView{
		NonConformanceStatus:    models.NonConformanceMinor,
		RepresentativeSignature: `data:image/png;base64,abc"><script>`,
	}, []byte("png-bytes"))

	assert.Contains(t, string(vm.TesterSignatureHTML), "data:image/png;base64,")
	assert.Contains(t, string(vm.TesterSignatureHTML), "signature-image")

	rep := string(vm.RepresentativeSignatureHTML)
	assert.NotContains(t, rep, "<script>")
	assert.Contains(t, rep, "&#34;")

	blank := buildViewModel(MemoView{NonConformanceStatus: models.NonConformanceMinor}, nil)
	assert.Empty(t, blank.TesterSignatureHTML)
	assert.Empty(t, blank.RepresentativeSignatureHTML)
}

func TestFormatLongDate(t *testing.T) {
	assert.Equal(t, "2026年9月1日", formatLongDate("2026-09-01"))
	assert.Equal(t, "2025年12月31日", formatLongDate("2025-12-31"))
	assert.Empty(t, formatLongDate(""))
	assert.Empty(t, formatLongDate("not-a-date"))
}
