package render

import (
	"context"
	"testing"

	"elevator-memo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine records the HTML handed to it and returns canned bytes.
type fakeEngine struct {
	calls int
	html  string
	pdf   []byte
	err   error
}

func (e *fakeEngine) Render(ctx context.Context, html string) ([]byte, error) {
	e.calls++
	e.html = html
	return e.pdf, e.err
}

func newTestRenderer(t *testing.T, engine Engine) *Renderer {
	renderer, err := NewRenderer("../../templates/memo.html", engine)
	require.NoError(t, err)
	return renderer
}

func TestRenderRejectsUnsignedMemo(t *testing.T) {
	engine := &fakeEngine{pdf: []byte("%PDF-fake")}
	renderer := newTestRenderer(t, engine)

	_, err := renderer.Render(context.Background(), MemoView{
		MemoNumber:           "03TCC0920261234",
		NonConformanceStatus: models.NonConformanceNone,
	}, nil)

	assert.ErrorIs(t, err, ErrMemoNotSigned)
	assert.Zero(t, engine.calls)
}

func TestRenderSignedMemo(t *testing.T) {
	engine := &fakeEngine{pdf: []byte("%PDF-fake")}
	renderer := newTestRenderer(t, engine)

	pdf, err := renderer.Render(context.Background(), MemoView{
		MemoNumber:              "03TCC0920261234",
		UserUnitName:            "Acme Towers",
		NonConformanceStatus:    models.NonConformanceMinor,
		Recommendations:         "Adjust the door operator.",
		InspectionDate:          "2026-09-01",
		SigningDate:             "2026-09-02",
		RepresentativeSignature: "data:image/png;base64,abc",
	}, []byte("tester-signature-bytes"))

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-fake"), pdf)
	assert.Equal(t, 1, engine.calls)
	assert.Contains(t, engine.html, "03TCC0920261234")
	assert.Contains(t, engine.html, "Acme Towers")
	assert.Contains(t, engine.html, "Adjust the door operator.")
	assert.Contains(t, engine.html, "2026年9月1日")
	assert.Contains(t, engine.html, "data:image/png;base64,")
}
