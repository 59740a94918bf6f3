package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
)

const exportBatchSize = 500

type exportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
	gate   *roleGate
}

func NewExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		db:     db,
		logger: logger,
		gate:   newRoleGate(repo, db, logger),
	}
}

var exportHeaders = []string{"Record ID", "Student ID", "Student Name", "Date", "Status", "Check In", "Check Out", "Marked By", "Origin"}

// ExportAttendance renders the filtered ledger as an xlsx workbook.
func (s *exportService) ExportAttendance(ctx context.Context, filters repositories.AttendanceFilters, actorID string) ([]byte, error) {
	if _, err := s.gate.Require(ctx, actorID, OpExportReports); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Attendance"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 30)
	f.SetColWidth(sheet, "B", "C", 22)
	f.SetColWidth(sheet, "D", "I", 16)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, header := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", col)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	// Page through the ledger so a large export does not load everything
	// in one query.
	filters.Limit = exportBatchSize
	filters.Offset = 0
	if filters.SortBy == "" {
		filters.SortBy = "date"
		filters.SortOrder = "asc"
	}

	row := 2
	for {
		records, _, err := s.repo.Attendance().List(ctx, s.db, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list attendance for export: %w", err)
		}
		if len(records) == 0 {
			break
		}

		for _, record := range records {
			s.writeRow(f, sheet, row, record)
			row++
		}

		if len(records) < exportBatchSize {
			break
		}
		filters.Offset += exportBatchSize
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Attendance export generated",
		"rows", row-2,
		"actor_id", actorID)
	return buf.Bytes(), nil
}

func (s *exportService) writeRow(f *excelize.File, sheet string, row int, record *models.AttendanceRecord) {
	checkIn := ""
	if !record.CheckInAt.IsZero() {
		checkIn = record.CheckInAt.Format("15:04:05")
	}
	checkOut := ""
	if record.CheckOutAt != nil {
		checkOut = record.CheckOutAt.Format("15:04:05")
	}

	values := []interface{}{
		record.ID,
		record.StudentID,
		record.StudentName,
		record.Date,
		string(record.Status),
		checkIn,
		checkOut,
		record.MarkedBy,
		string(record.Origin),
	}
	for i, v := range values {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
	}
}
