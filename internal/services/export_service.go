package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

const exportSheet = "Requests"

var exportHeaders = []string{"ID", "Username", "Provider", "Status", "Verification Code", "Message", "Created At", "Processed At"}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *exportService) ExportRequests(ctx context.Context, filters repositories.LoginRequestFilters) ([]byte, error) {
	requests, total, err := s.repo.LoginRequest().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list login requests: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, header := range exportHeaders {
		if err := setCell(f, col+1, 1, header); err != nil {
			return nil, err
		}
	}

	for i, req := range requests {
		row := i + 2
		values := []interface{}{
			req.ID,
			req.Username,
			string(req.AuthProvider),
			string(req.Status),
			derefString(req.VerificationCode),
			derefString(req.Message),
			req.CreatedAt.Format(time.RFC3339),
			formatTime(req.ProcessedAt),
		}
		for col, value := range values {
			if err := setCell(f, col+1, row, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Login requests exported", "rows", len(requests), "total", total)
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("invalid cell %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(exportSheet, cell, value); err != nil {
		return fmt.Errorf("failed to write cell %s: %w", cell, err)
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
