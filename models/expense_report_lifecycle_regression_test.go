package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/models"
	"bitbucket.org/tbphq/members_backend/utils"
	"github.com/shopspring/decimal"
)

func TestExpenseReportLifecycleStampsAndNotifications(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "members_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 7)
	ctx = utils.SetUserNameInContext(ctx, "Pat Official")

	member, err := models.CreateMember(ctx, &models.NewMember{
		FirstName: "Alex",
		LastName:  "Rivera",
		Chapter:   "Gamma",
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	reportType, err := models.CreateExpenseReportType(ctx, &models.NewExpenseReportType{
		ReportCode:         "TR",
		Name:               "Travel",
		MileageRate:        decimal.RequireFromString("0.35"),
		MaxLodgingPerNight: decimal.RequireFromString("42.00"),
		MaxBreakfastDaily:  decimal.RequireFromString("6.00"),
		MaxLunchDaily:      decimal.RequireFromString("8.00"),
		MaxDinnerDaily:     decimal.RequireFromString("15.00"),
	})
	if err != nil {
		t.Fatalf("CreateExpenseReportType: %v", err)
	}

	report, err := models.CreateExpenseReport(ctx, &models.NewExpenseReport{
		MemberId:     member.ID,
		ReportTypeId: reportType.ID,
		Chapter:      "Gamma",
		ReportDate:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Detail: &models.NewExpenseReportDetail{
			AutomobileMiles: decimal.NewFromInt(100),
			LodgingNights:   3,
			LodgingPerNight: decimal.RequireFromString("55.00"),
		},
	})
	if err != nil {
		t.Fatalf("CreateExpenseReport: %v", err)
	}
	if report.Status != models.ExpenseReportStatusDraft {
		t.Fatalf("new report: expected draft, got %s", report.Status)
	}
	// 100*0.35 + 3*42 (lodging capped)
	if want := decimal.RequireFromString("161.00"); !report.TotalAmount.Equal(want) {
		t.Fatalf("stored total: expected %s, got %s", want, report.TotalAmount)
	}

	// draft cannot be paid directly
	if _, err := models.UpdateExpenseReportStatus(ctx, report.ID, &models.NewExpenseReportStatus{
		Status: models.ExpenseReportStatusPaid,
	}); err == nil {
		t.Fatal("draft -> paid: expected error")
	}

	if _, err := models.UpdateExpenseReportStatus(ctx, report.ID, &models.NewExpenseReportStatus{
		Status: models.ExpenseReportStatusSubmitted,
	}); err != nil {
		t.Fatalf("draft -> submitted: %v", err)
	}

	reviewed, err := models.UpdateExpenseReportStatus(ctx, report.ID, &models.NewExpenseReportStatus{
		Status: models.ExpenseReportStatusReviewed,
	})
	if err != nil {
		t.Fatalf("submitted -> reviewed: %v", err)
	}
	if reviewed.ReviewDate == nil || reviewed.ReviewerId != 7 || reviewed.ReviewerName != "Pat Official" {
		t.Fatalf("review stamp missing: %+v", reviewed)
	}

	// submitted reports may not be edited through the normal write path
	if _, err := models.UpdateExpenseReport(ctx, report.ID, &models.NewExpenseReport{
		MemberId:     member.ID,
		ReportTypeId: reportType.ID,
		ReportDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}); err == nil {
		t.Fatal("editing a reviewed report: expected permission error")
	}

	approved, err := models.UpdateExpenseReportStatus(ctx, report.ID, &models.NewExpenseReportStatus{
		Status: models.ExpenseReportStatusApproved,
	})
	if err != nil {
		t.Fatalf("reviewed -> approved: %v", err)
	}
	if approved.ApprovalDate == nil || approved.ApproverId != 7 {
		t.Fatalf("approval stamp missing: %+v", approved)
	}

	method := models.PaymentMethodCheck
	paidDate := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	paid, err := models.UpdateExpenseReportStatus(ctx, report.ID, &models.NewExpenseReportStatus{
		Status:        models.ExpenseReportStatusPaid,
		PaymentMethod: &method,
		CheckNumber:   "1042",
		Payer:         "HQ",
		PaidDate:      &paidDate,
	})
	if err != nil {
		t.Fatalf("approved -> paid: %v", err)
	}
	if paid.PaidDate == nil || !paid.PaidDate.Equal(paidDate) || paid.CheckNumber != "1042" {
		t.Fatalf("payment fields not stamped: %+v", paid)
	}

	// paid is terminal
	if _, err := models.UpdateExpenseReportStatus(ctx, report.ID, &models.NewExpenseReportStatus{
		Status: models.ExpenseReportStatusRejected,
	}); err == nil {
		t.Fatal("paid -> rejected: expected error")
	}

	// approved and paid both queued a notification in the outbox
	db := config.GetDB()
	var notifications int64
	if err := db.WithContext(ctx).Model(&models.OutboxMessageRecord{}).
		Where("topic = ? AND reference_id = ?", models.OutboxTopicNotification, report.ID).
		Count(&notifications).Error; err != nil {
		t.Fatalf("count notification outbox rows: %v", err)
	}
	if notifications != 2 {
		t.Fatalf("expected 2 notification outbox rows (approved, paid), got %d", notifications)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("members-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=members_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
