package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"elevator-memo/internal/api/middleware"
	"elevator-memo/internal/authz"
	"elevator-memo/internal/config"
	"elevator-memo/internal/models"
	"elevator-memo/internal/obs"
	"elevator-memo/internal/render"
	"elevator-memo/internal/services"
	"elevator-memo/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MemoHandler struct {
	memoService      *services.MemoService
	signatureService *services.SignatureService
	renderer         *render.Renderer
	queue            *render.Queue
	store            *storage.Store
	logger           *zap.Logger
}

func NewMemoHandler(cfg *config.Config, renderer *render.Renderer, queue *render.Queue, store *storage.Store, logger *zap.Logger) *MemoHandler {
	return &MemoHandler{
		memoService:      services.NewMemoService(cfg),
		signatureService: services.NewSignatureService(cfg),
		renderer:         renderer,
		queue:            queue,
		store:            store,
		logger:           logger,
	}
}

type CreateMemoRequest struct {
	MemoNumber              string `json:"memo_number"`
	UserUnitName            string `json:"user_unit_name" binding:"required"`
	InstallationLocation    string `json:"installation_location"`
	EquipmentType           string `json:"equipment_type"`
	ProductNumber           string `json:"product_number"`
	RegistrationCertNo      string `json:"registration_cert_no"`
	NonConformanceStatus    int    `json:"non_conformance_status"`
	Recommendations         string `json:"recommendations"`
	TesterSignaturePath     string `json:"tester_signature_path"`
	RepresentativeSignature string `json:"representative_signature"`
	InspectionDate          string `json:"inspection_date"`
	SigningDate             string `json:"signing_date"`
}

type BatchSignRequest struct {
	MemoIDs                 []uint `json:"memo_ids" binding:"required"`
	RepresentativeSignature string `json:"representative_signature" binding:"required"`
	SigningDate             string `json:"signing_date"`
}

func memoFilters(c *gin.Context) authz.MemoFilters {
	return authz.MemoFilters{
		Search:         c.Query("search"),
		MemoNumber:     c.Query("memo_number"),
		UnitName:       c.Query("user_unit_name"),
		CertNo:         c.Query("registration_cert_no"),
		InspectionDate: c.Query("date"),
		OwnerFullName:  c.Query("user_full_name"),
	}
}

// GetMemos lists the caller-visible memos for one page.
func (h *MemoHandler) GetMemos(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	memos, pagination, err := h.memoService.List(page, limit, memoFilters(c), middleware.Caller(c))
	if err != nil {
		h.logger.Error("failed to list memos", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to get memos"})
		return
	}

	c.JSON(200, gin.H{"memos": memos, "pagination": pagination})
}

// GetMemo returns one memo by id.
func (h *MemoHandler) GetMemo(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid memo ID"})
		return
	}

	memo, err := h.memoService.Get(id, middleware.Caller(c))
	if err != nil {
		if errors.Is(err, services.ErrMemoNotFound) {
			c.JSON(404, gin.H{"error": "Memo not found"})
		} else {
			c.JSON(500, gin.H{"error": "Failed to get memo"})
		}
		return
	}

	c.JSON(200, memo)
}

// CreateMemo inserts a new memo owned by the caller.
func (h *MemoHandler) CreateMemo(c *gin.Context) {
	var req CreateMemoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	memo, err := h.memoService.Create(services.CreateMemoData{
		MemoNumber:              req.MemoNumber,
		UserUnitName:            req.UserUnitName,
		InstallationLocation:    req.InstallationLocation,
		EquipmentType:           req.EquipmentType,
		ProductNumber:           req.ProductNumber,
		RegistrationCertNo:      req.RegistrationCertNo,
		NonConformanceStatus:    req.NonConformanceStatus,
		Recommendations:         req.Recommendations,
		TesterSignaturePath:     req.TesterSignaturePath,
		RepresentativeSignature: req.RepresentativeSignature,
		InspectionDate:          req.InspectionDate,
		SigningDate:             req.SigningDate,
	}, middleware.Caller(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			c.JSON(400, gin.H{"error": err.Error()})
		} else {
			h.logger.Error("failed to create memo", zap.Error(err))
			c.JSON(500, gin.H{"error": "Failed to create memo"})
		}
		return
	}

	c.JSON(201, memo)
}

// UpdateMemo applies the allow-listed fields from the request body.
func (h *MemoHandler) UpdateMemo(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid memo ID"})
		return
	}

	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	memo, err := h.memoService.Update(id, updates, middleware.Caller(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMemoNotFound):
			c.JSON(404, gin.H{"error": "Memo not found"})
		case errors.Is(err, services.ErrInvalidStatus):
			c.JSON(400, gin.H{"error": err.Error()})
		default:
			h.logger.Error("failed to update memo", zap.Uint("id", id), zap.Error(err))
			c.JSON(500, gin.H{"error": "Failed to update memo"})
		}
		return
	}

	c.JSON(200, gin.H{"message": "Memo updated", "memo": memo})
}

// CopyMemo clones a memo into a new unsigned record.
func (h *MemoHandler) CopyMemo(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid memo ID"})
		return
	}

	memo, err := h.memoService.Copy(id, middleware.Caller(c))
	if err != nil {
		if errors.Is(err, services.ErrMemoNotFound) {
			c.JSON(404, gin.H{"error": "Memo not found"})
		} else {
			h.logger.Error("failed to copy memo", zap.Uint("id", id), zap.Error(err))
			c.JSON(500, gin.H{"error": "Failed to copy memo"})
		}
		return
	}

	c.JSON(201, memo)
}

// DeleteMemo removes a memo and any signature file it referenced.
func (h *MemoHandler) DeleteMemo(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid memo ID"})
		return
	}

	memo, err := h.memoService.Delete(id, middleware.Caller(c))
	if err != nil {
		if errors.Is(err, services.ErrMemoNotFound) {
			c.JSON(404, gin.H{"error": "Memo not found"})
		} else {
			h.logger.Error("failed to delete memo", zap.Uint("id", id), zap.Error(err))
			c.JSON(500, gin.H{"error": "Failed to delete memo"})
		}
		return
	}

	if memo.TesterSignaturePath != "" {
		if err := h.store.Remove(memo.TesterSignaturePath); err != nil {
			h.logger.Warn("failed to remove signature file",
				zap.String("path", memo.TesterSignaturePath), zap.Error(err))
		}
	}

	c.Status(204)
}

// BatchSign applies one representative signature to many memos, best-effort
// per id.
func (h *MemoHandler) BatchSign(c *gin.Context) {
	var req BatchSignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if len(req.MemoIDs) == 0 {
		c.JSON(400, gin.H{"error": "No memos selected"})
		return
	}

	signed, err := h.memoService.BatchSign(req.MemoIDs, req.RepresentativeSignature, req.SigningDate, middleware.Caller(c))
	if err != nil {
		h.logger.Error("batch sign failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to sign memos"})
		return
	}

	c.JSON(200, gin.H{
		"message":       fmt.Sprintf("Signed %d memos", len(signed)),
		"updated_memos": signed,
	})
}

// GeneratePDF renders a signed memo as a PDF through the serialized render
// queue. The precondition is checked up front so unsigned memos never occupy
// a queue slot.
func (h *MemoHandler) GeneratePDF(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid memo ID"})
		return
	}

	caller := middleware.Caller(c)
	memo, err := h.memoService.Get(id, caller)
	if err != nil {
		if errors.Is(err, services.ErrMemoNotFound) {
			c.JSON(404, gin.H{"error": "Memo not found"})
		} else {
			c.JSON(500, gin.H{"error": "Failed to get memo"})
		}
		return
	}

	if !memo.Signed() {
		c.JSON(400, gin.H{
			"error":   "Memo has not been signed",
			"message": "Only signed memos can be exported; attach the representative signature first.",
		})
		return
	}

	start := time.Now()
	obs.SetRenderQueueDepth(h.queue.Len())
	pdf, err := h.queue.Submit(c.Request.Context(), func(ctx context.Context) ([]byte, error) {
		// Re-fetch inside the job: the record may have changed while queued.
		current, err := h.memoService.Get(id, caller)
		if err != nil {
			return nil, err
		}
		return h.renderer.Render(ctx, memoView(current), h.resolveTesterImage(current))
	})
	obs.ObserveRender(time.Since(start), err)
	obs.SetRenderQueueDepth(h.queue.Len())

	if err != nil {
		switch {
		case errors.Is(err, services.ErrMemoNotFound):
			c.JSON(404, gin.H{"error": "Memo not found"})
		case errors.Is(err, render.ErrMemoNotSigned):
			c.JSON(400, gin.H{
				"error":   "Memo has not been signed",
				"message": "Only signed memos can be exported; attach the representative signature first.",
			})
		default:
			h.logger.Error("pdf render failed", zap.Uint("id", id), zap.Error(err))
			c.JSON(500, gin.H{"error": "Failed to generate PDF"})
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "memo-"+memo.MemoNumber+".pdf"))
	c.Data(200, "application/pdf", pdf)
}

// resolveTesterImage loads the tester-signature bytes for a memo, falling
// back to the owner's default signature when the memo carries no path.
// Any failure degrades to a blank signature region.
func (h *MemoHandler) resolveTesterImage(memo *models.Memo) []byte {
	path := memo.TesterSignaturePath
	if path == "" {
		signature, err := h.signatureService.GetDefault(memo.CreatedBy)
		if err != nil {
			return nil
		}
		path = signature.FilePath
	}

	if !h.store.Exists(path) {
		h.logger.Warn("tester signature file missing",
			zap.String("memo_number", memo.MemoNumber), zap.String("path", path))
		return nil
	}

	data, err := h.store.ReadFile(path)
	if err != nil {
		h.logger.Warn("failed to read tester signature",
			zap.String("memo_number", memo.MemoNumber), zap.Error(err))
		return nil
	}
	return data
}

func memoView(memo *models.Memo) render.MemoView {
	return render.MemoView{
		MemoNumber:              memo.MemoNumber,
		UserUnitName:            memo.UserUnitName,
		InstallationLocation:    memo.InstallationLocation,
		EquipmentType:           memo.EquipmentType,
		ProductNumber:           memo.ProductNumber,
		RegistrationCertNo:      memo.RegistrationCertNo,
		NonConformanceStatus:    memo.NonConformanceStatus,
		Recommendations:         memo.Recommendations,
		InspectionDate:          memo.InspectionDate,
		SigningDate:             memo.SigningDate,
		RepresentativeSignature: memo.RepresentativeSignature,
	}
}
