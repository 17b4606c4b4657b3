package workflow

import (
	"strings"
	"testing"
	"time"

	"bitbucket.org/tbphq/members_backend/models"
	"github.com/shopspring/decimal"
)

func TestRenderStatusEmailRejected(t *testing.T) {
	subject, body, err := renderStatusEmail(models.StatusNotification{
		ReportId:        12,
		MemberName:      "Alex Rivera",
		Status:          models.ExpenseReportStatusRejected,
		TotalAmount:     decimal.RequireFromString("161.00"),
		RejectionReason: "missing receipt",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Expense report #12 rejected" {
		t.Fatalf("subject: %q", subject)
	}
	for _, want := range []string{"Alex Rivera", "missing receipt", "#12"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderStatusEmailRejectedWithoutReason(t *testing.T) {
	_, body, err := renderStatusEmail(models.StatusNotification{
		ReportId: 12,
		Status:   models.ExpenseReportStatusRejected,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "not provided") {
		t.Fatalf("empty reason must render placeholder:\n%s", body)
	}
	if !strings.Contains(body, "Dear Member,") {
		t.Fatalf("empty name must fall back to Member:\n%s", body)
	}
}

func TestRenderStatusEmailApproved(t *testing.T) {
	approvalDate := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	subject, body, err := renderStatusEmail(models.StatusNotification{
		ReportId:     12,
		MemberName:   "Alex Rivera",
		Status:       models.ExpenseReportStatusApproved,
		TotalAmount:  decimal.RequireFromString("161.00"),
		ApprovalDate: &approvalDate,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Expense report #12 approved" {
		t.Fatalf("subject: %q", subject)
	}
	for _, want := range []string{"$161.00", "March 20, 2026"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderStatusEmailPaidCheckNumberOptional(t *testing.T) {
	paidDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	_, body, err := renderStatusEmail(models.StatusNotification{
		ReportId:    12,
		Status:      models.ExpenseReportStatusPaid,
		TotalAmount: decimal.RequireFromString("161.00"),
		PaidDate:    &paidDate,
		CheckNumber: "1042",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "check #1042") {
		t.Fatalf("body missing check number:\n%s", body)
	}

	_, body, err = renderStatusEmail(models.StatusNotification{
		ReportId:    12,
		Status:      models.ExpenseReportStatusPaid,
		TotalAmount: decimal.RequireFromString("161.00"),
		PaidDate:    &paidDate,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "check") {
		t.Fatalf("check clause must be omitted without a number:\n%s", body)
	}
}

func TestRenderStatusEmailOtherStatusesProduceNothing(t *testing.T) {
	for _, status := range []models.ExpenseReportStatus{
		models.ExpenseReportStatusDraft,
		models.ExpenseReportStatusSubmitted,
		models.ExpenseReportStatusReviewed,
		models.ExpenseReportStatusCancelled,
	} {
		subject, body, err := renderStatusEmail(models.StatusNotification{ReportId: 12, Status: status})
		if err != nil {
			t.Fatalf("%s: %v", status, err)
		}
		if subject != "" || body != "" {
			t.Fatalf("%s: expected no email, got subject %q", status, subject)
		}
	}
}
