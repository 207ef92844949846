package services

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

func TestExportRequests(t *testing.T) {
	f := newFixture(t)
	id := f.login(t, "alice", models.ProviderApple)
	f.approve(t, id, "alice")
	f.login(t, "bob", models.ProviderGoogle)

	approved := models.RequestApproved
	data, err := f.sm.Export().ExportRequests(f.ctx, repositories.LoginRequestFilters{Status: &approved})
	if err != nil {
		t.Fatal(err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(exportSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[0][1] != "Username" || rows[1][1] != "alice" || rows[1][3] != "approved" {
		t.Errorf("unexpected rows %v", rows)
	}
}
