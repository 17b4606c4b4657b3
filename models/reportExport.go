package models

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"github.com/xuri/excelize/v2"
)

// ExportExpenseReportsExcel builds an .xlsx workbook of expense reports
// filed between fromDate and toDate (inclusive), optionally filtered by
// status, and returns the encoded bytes.
func ExportExpenseReportsExcel(ctx context.Context, fromDate, toDate time.Time, status ExpenseReportStatus) ([]byte, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&ExpenseReport{}).
		Preload("Member").Preload("ReportType").
		Where("report_date BETWEEN ? AND ?", fromDate, toDate).
		Order("report_date, id")
	if status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}

	var reports []*ExpenseReport
	if err := dbCtx.Find(&reports).Error; err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, err
	}

	// Add headers
	headers := []string{"ReportId", "Member", "Chapter", "ReportType", "ReportDate",
		"Status", "TotalAmount", "Reviewer", "Approver", "PaidDate", "CheckNumber"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheetName, cell, h)
	}

	// Add data
	for i, r := range reports {
		memberName := ""
		if r.Member != nil {
			memberName = r.Member.FirstName + " " + r.Member.LastName
		}
		typeName := ""
		if r.ReportType != nil {
			typeName = r.ReportType.Name
		}
		paidDate := ""
		if r.PaidDate != nil {
			paidDate = r.PaidDate.Format("2006-01-02")
		}
		row := i + 2
		f.SetCellValue(sheetName, "A"+fmt.Sprint(row), r.ID)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(row), memberName)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(row), r.Chapter)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(row), typeName)
		f.SetCellValue(sheetName, "E"+fmt.Sprint(row), r.ReportDate.Format("2006-01-02"))
		f.SetCellValue(sheetName, "F"+fmt.Sprint(row), string(r.Status))
		f.SetCellValue(sheetName, "G"+fmt.Sprint(row), r.TotalAmount.InexactFloat64())
		f.SetCellValue(sheetName, "H"+fmt.Sprint(row), r.ReviewerName)
		f.SetCellValue(sheetName, "I"+fmt.Sprint(row), r.ApproverName)
		f.SetCellValue(sheetName, "J"+fmt.Sprint(row), paidDate)
		f.SetCellValue(sheetName, "K"+fmt.Sprint(row), r.CheckNumber)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
