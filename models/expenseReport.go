package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseReport struct {
	ID           int                `gorm:"primary_key" json:"id"`
	MemberId     int                `gorm:"index;not null" json:"member_id" binding:"required"`
	Member       *Member            `json:"member"`
	ReportTypeId int                `gorm:"index;not null" json:"report_type_id" binding:"required"`
	ReportType   *ExpenseReportType `json:"report_type"`
	Chapter      string             `gorm:"size:100" json:"chapter"`
	ReportDate   time.Time          `gorm:"not null;index" json:"report_date" binding:"required"`

	Status ExpenseReportStatus `gorm:"type:enum('draft','submitted','reviewed','approved','paid','rejected','cancelled');not null;default:'draft';index" json:"status"`

	ReviewerId   int        `json:"reviewer_id"`
	ReviewerName string     `gorm:"size:100" json:"reviewer_name"`
	ReviewDate   *time.Time `json:"review_date"`

	ApproverId   int        `json:"approver_id"`
	ApproverName string     `gorm:"size:100" json:"approver_name"`
	ApprovalDate *time.Time `json:"approval_date"`

	PaymentMethod *PaymentMethod `gorm:"type:enum('check','direct_deposit','credit','other');default:null" json:"payment_method"`
	CheckNumber   string         `gorm:"size:50" json:"check_number"`
	Payer         string         `gorm:"size:100" json:"payer"`
	PaidDate      *time.Time     `json:"paid_date"`

	Verified *bool `gorm:"not null;default:false" json:"verified"`

	// TotalAmount is derived from the detail and policy; it is rewritten
	// on every save that touches either and never accepted from input.
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"total_amount"`

	ReceiptObjectKey string `gorm:"size:512" json:"receipt_object_key"`
	Notes            string `gorm:"type:text" json:"notes"`
	RejectionReason  string `gorm:"type:text" json:"rejection_reason"`

	Detail *ExpenseReportDetail `gorm:"foreignKey:ExpenseReportId" json:"detail"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpenseReport struct {
	MemberId     int                     `json:"member_id" binding:"required"`
	ReportTypeId int                     `json:"report_type_id" binding:"required"`
	Chapter      string                  `json:"chapter"`
	ReportDate   time.Time               `json:"report_date" binding:"required"`
	Notes        string                  `json:"notes"`
	Detail       *NewExpenseReportDetail `json:"detail"`
}

// NewExpenseReportStatus is the input of a workflow transition. Payment
// fields are consumed only when moving to paid, the reason only when
// rejecting.
type NewExpenseReportStatus struct {
	Status          ExpenseReportStatus `json:"status" binding:"required"`
	RejectionReason string              `json:"rejection_reason"`
	PaymentMethod   *PaymentMethod      `json:"payment_method"`
	CheckNumber     string              `json:"check_number"`
	Payer           string              `json:"payer"`
	PaidDate        *time.Time          `json:"paid_date"`
}

// StatusNotification is the outbox payload of a member-facing status
// email. Everything the worker needs to render and address the message
// is captured at transition time.
type StatusNotification struct {
	ReportId        int                 `json:"report_id"`
	MemberId        int                 `json:"member_id"`
	MemberName      string              `json:"member_name"`
	RecipientEmail  string              `json:"recipient_email"`
	Status          ExpenseReportStatus `json:"status"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	ApprovalDate    *time.Time          `json:"approval_date,omitempty"`
	PaymentMethod   *PaymentMethod      `json:"payment_method,omitempty"`
	CheckNumber     string              `json:"check_number,omitempty"`
	PaidDate        *time.Time          `json:"paid_date,omitempty"`
}

func (obj ExpenseReport) GetId() int {
	return obj.ID
}

// implements Cursor
func (r ExpenseReport) GetCursor() string {
	return r.ReportDate.Format("2006-01-02 15:04:05")
}

// CheckChangeAllowed implements utils.ModelChangeGuard: only drafts may
// be edited through the non-status write paths.
func (r ExpenseReport) CheckChangeAllowed(ctx context.Context) error {
	if r.Status != ExpenseReportStatusDraft {
		return utils.ErrPermissionDenied
	}
	return nil
}

func (input *NewExpenseReport) validate(ctx context.Context, reportType *ExpenseReportType) error {
	if err := utils.ValidateResourceId[Member](ctx, input.MemberId); err != nil {
		return errors.New("member not found")
	}
	if reportType == nil || reportType.IsActive == nil || !*reportType.IsActive {
		return errors.New("report type not found or inactive")
	}
	if input.Detail != nil {
		if err := input.Detail.validate(reportType); err != nil {
			return err
		}
	}
	return nil
}

func CreateExpenseReport(ctx context.Context, input *NewExpenseReport) (*ExpenseReport, error) {

	reportType, err := GetExpenseReportType(ctx, input.ReportTypeId)
	if err != nil {
		return nil, errors.New("report type not found")
	}
	if err := input.validate(ctx, reportType); err != nil {
		return nil, err
	}

	report := ExpenseReport{
		MemberId:     input.MemberId,
		ReportTypeId: input.ReportTypeId,
		Chapter:      input.Chapter,
		ReportDate:   input.ReportDate,
		Status:       ExpenseReportStatusDraft,
		Notes:        input.Notes,
		Verified:     utils.NewFalse(),
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Create(&report).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.Detail != nil {
		detail := input.Detail.toDetail(report.ID)
		if err := tx.WithContext(ctx).Create(&detail).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		report.Detail = &detail
		report.TotalAmount = CalculateReportTotal(&detail, reportType)
		if err := tx.WithContext(ctx).Model(&ExpenseReport{ID: report.ID}).
			Update("total_amount", report.TotalAmount).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := SaveHistoryCreate(tx.WithContext(ctx), report.ID, "expense_reports", report, "Expense report created"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &report, nil
}

// UpdateExpenseReport edits a draft. Reports past draft reject the edit
// with ErrPermissionDenied.
func UpdateExpenseReport(ctx context.Context, id int, input *NewExpenseReport) (*ExpenseReport, error) {

	beforeUpdate, err := utils.FetchModelForChange[ExpenseReport](ctx, id, "Detail")
	if err != nil {
		return nil, err
	}
	if input.MemberId != beforeUpdate.MemberId {
		return nil, errors.New("report cannot move between members")
	}

	reportType, err := GetExpenseReportType(ctx, input.ReportTypeId)
	if err != nil {
		return nil, errors.New("report type not found")
	}
	if err := input.validate(ctx, reportType); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	total := decimal.Zero
	var detail *ExpenseReportDetail
	if input.Detail != nil {
		d := input.Detail.toDetail(id)
		if beforeUpdate.Detail != nil {
			d.ID = beforeUpdate.Detail.ID
			if err := tx.WithContext(ctx).Save(&d).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		} else {
			if err := tx.WithContext(ctx).Create(&d).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		detail = &d
		total = CalculateReportTotal(detail, reportType)
	} else if beforeUpdate.Detail != nil {
		detail = beforeUpdate.Detail
		total = CalculateReportTotal(detail, reportType)
	}

	err = tx.WithContext(ctx).Model(&ExpenseReport{ID: id}).Updates(map[string]interface{}{
		"report_type_id": input.ReportTypeId,
		"chapter":        input.Chapter,
		"report_date":    input.ReportDate,
		"notes":          input.Notes,
		"total_amount":   total,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryUpdate(tx.WithContext(ctx), id, "expense_reports", beforeUpdate, input, "Expense report updated"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	after := *beforeUpdate
	after.ReportTypeId = input.ReportTypeId
	after.Chapter = input.Chapter
	after.ReportDate = input.ReportDate
	after.Notes = input.Notes
	after.TotalAmount = total
	after.Detail = detail
	return &after, nil
}

// UpdateExpenseReportStatus applies one workflow transition. Illegal
// transitions fail with ErrInvalidTransition; nothing is coerced.
func UpdateExpenseReportStatus(ctx context.Context, id int, input *NewExpenseReportStatus) (*ExpenseReport, error) {

	report, err := utils.FetchModel[ExpenseReport](ctx, id, "Member", "Detail")
	if err != nil {
		return nil, err
	}

	if !input.Status.IsValid() {
		return nil, errors.New("invalid status")
	}
	oldStatus := report.Status
	if !oldStatus.CanTransitionTo(input.Status) {
		return nil, fmt.Errorf("%w: %s to %s", utils.ErrInvalidTransition, oldStatus, input.Status)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status": input.Status,
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	switch input.Status {
	case ExpenseReportStatusReviewed:
		// stamp reviewer only the first time through review
		if report.ReviewDate == nil {
			report.ReviewerId = userId
			report.ReviewerName = userName
			report.ReviewDate = &now
			updates["reviewer_id"] = userId
			updates["reviewer_name"] = userName
			updates["review_date"] = now
		}
	case ExpenseReportStatusApproved:
		if report.ApprovalDate == nil {
			report.ApproverId = userId
			report.ApproverName = userName
			report.ApprovalDate = &now
			updates["approver_id"] = userId
			updates["approver_name"] = userName
			updates["approval_date"] = now
		}
	case ExpenseReportStatusPaid:
		paidDate := input.PaidDate
		if paidDate == nil {
			paidDate = &now
		}
		report.PaymentMethod = input.PaymentMethod
		report.CheckNumber = input.CheckNumber
		report.Payer = input.Payer
		report.PaidDate = paidDate
		updates["payment_method"] = input.PaymentMethod
		updates["check_number"] = input.CheckNumber
		updates["payer"] = input.Payer
		updates["paid_date"] = paidDate
	case ExpenseReportStatusRejected:
		report.RejectionReason = input.RejectionReason
		updates["rejection_reason"] = input.RejectionReason
	}
	report.Status = input.Status

	db := config.GetDB()
	tx := db.Begin()

	err = tx.WithContext(ctx).Model(&ExpenseReport{ID: id}).Updates(updates).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// rejected, approved and paid notify the member
	if input.Status == ExpenseReportStatusRejected ||
		input.Status == ExpenseReportStatusApproved ||
		input.Status == ExpenseReportStatusPaid {
		notification := buildStatusNotification(ctx, report)
		if err := PublishNotification(ctx, tx.WithContext(ctx), report.ID, report.MemberId, notification); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := SaveHistoryUpdate(tx.WithContext(ctx), id, "expense_reports", oldStatus, input.Status,
		fmt.Sprintf("Status changed from %s to %s", oldStatus, input.Status)); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return report, nil
}

func buildStatusNotification(ctx context.Context, report *ExpenseReport) StatusNotification {
	notification := StatusNotification{
		ReportId:        report.ID,
		MemberId:        report.MemberId,
		Status:          report.Status,
		TotalAmount:     report.TotalAmount,
		RejectionReason: report.RejectionReason,
		ApprovalDate:    report.ApprovalDate,
		PaymentMethod:   report.PaymentMethod,
		CheckNumber:     report.CheckNumber,
		PaidDate:        report.PaidDate,
	}
	if report.Member != nil {
		notification.MemberName = report.Member.FirstName + " " + report.Member.LastName
	}
	// the account email of the member, if one exists
	db := config.GetDB()
	var email string
	if err := db.WithContext(ctx).Model(&User{}).Where("member_id = ?", report.MemberId).
		Select("email").Scan(&email).Error; err == nil {
		notification.RecipientEmail = email
	}
	return notification
}

// AttachReceipt stores the object handle of an uploaded receipt blob.
func AttachReceipt(ctx context.Context, id int, objectKey string) (*ExpenseReport, error) {
	report, err := utils.FetchModel[ExpenseReport](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&ExpenseReport{ID: id}).
		Update("receipt_object_key", objectKey).Error; err != nil {
		return nil, err
	}
	report.ReceiptObjectKey = objectKey
	return report, nil
}

func GetExpenseReport(ctx context.Context, id int) (*ExpenseReport, error) {
	return utils.FetchModel[ExpenseReport](ctx, id, "Member", "ReportType", "Detail")
}

// PaginateExpenseReports pages reports newest first. memberId and status
// filter when non-zero.
func PaginateExpenseReports(ctx context.Context, memberId int, status ExpenseReportStatus, limit int, after *string) ([]Edge[ExpenseReport], *PageInfo, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&ExpenseReport{}).
		Preload("ReportType").Preload("Detail")
	if memberId > 0 {
		dbCtx = dbCtx.Where("member_id = ?", memberId)
	}
	if status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}

	return FetchPageCompositeCursor[ExpenseReport](dbCtx, limit, after, "report_date", "<")
}

// RecalculateExpenseReportTotal re-derives and stores one report's total
// from its current detail and policy. Used by the explicit backfill after
// a policy change; normal saves recompute on their own.
func RecalculateExpenseReportTotal(ctx context.Context, tx *gorm.DB, id int) (decimal.Decimal, error) {

	var report ExpenseReport
	if err := tx.WithContext(ctx).Preload("Detail").Preload("ReportType").First(&report, id).Error; err != nil {
		return decimal.Zero, utils.ErrorRecordNotFound
	}
	if report.Detail == nil {
		return report.TotalAmount, nil
	}

	total := CalculateReportTotal(report.Detail, report.ReportType)
	if total.Equal(report.TotalAmount) {
		return total, nil
	}
	if err := tx.WithContext(ctx).Model(&ExpenseReport{ID: id}).
		Update("total_amount", total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
