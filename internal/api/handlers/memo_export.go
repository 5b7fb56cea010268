package handlers

import (
	"bytes"
	"fmt"
	"time"

	"elevator-memo/internal/api/middleware"
	"elevator-memo/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var memoExportHeader = []string{
	"Memo Number",
	"Unit Name",
	"Installation Location",
	"Equipment Type",
	"Product Number",
	"Registration Cert No",
	"Non-Conformance",
	"Inspection Date",
	"Signing Date",
	"Created By",
}

var nonConformanceLabels = map[int]string{
	models.NonConformanceNone:   "none",
	models.NonConformanceMinor:  "minor",
	models.NonConformanceSevere: "severe",
}

// ExportMemos returns the caller-visible, filtered memo list as a spreadsheet.
func (h *MemoHandler) ExportMemos(c *gin.Context) {
	memos, err := h.memoService.ListAll(memoFilters(c), middleware.Caller(c))
	if err != nil {
		h.logger.Error("failed to export memos", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to export memos"})
		return
	}

	data, err := buildMemoExport(memos)
	if err != nil {
		h.logger.Error("failed to build spreadsheet", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to export memos"})
		return
	}

	filename := fmt.Sprintf("memos-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func buildMemoExport(memos []models.Memo) ([]byte, error) {
	f := excelize.NewFile()

	sheetName := "Memos"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range memoExportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, memo := range memos {
		values := []any{
			memo.MemoNumber,
			memo.UserUnitName,
			memo.InstallationLocation,
			memo.EquipmentType,
			memo.ProductNumber,
			memo.RegistrationCertNo,
			nonConformanceLabels[memo.NonConformanceStatus],
			memo.InspectionDate,
			memo.SigningDate,
			memo.Creator.FullName,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
