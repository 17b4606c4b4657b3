package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/models"
	"bitbucket.org/tbphq/members_backend/utils"
)

const rejectedBodyTemplate = `<p>Dear {{.MemberName}},</p>
<p>Your expense report #{{.ReportId}} was not approved.</p>
<p>Reason: {{.Reason}}</p>
<p>You may correct and resubmit the report from your account.</p>`

const approvedBodyTemplate = `<p>Dear {{.MemberName}},</p>
<p>Your expense report #{{.ReportId}} for {{.TotalAmount}} was approved on {{.ApprovalDate}}.</p>
<p>Payment is being scheduled.</p>`

const paidBodyTemplate = `<p>Dear {{.MemberName}},</p>
<p>Your expense report #{{.ReportId}} for {{.TotalAmount}} was paid on {{.PaidDate}}{{if .CheckNumber}} by check #{{.CheckNumber}}{{end}}.</p>`

// processNotification renders and sends one status email. Mail delivery
// is fire and forget: a send failure is logged and the message completes,
// the status transition itself happened long before this point.
func (p *Processor) processNotification(ctx context.Context, msg config.OutboxMessage) error {

	var notification models.StatusNotification
	if err := json.Unmarshal(msg.NewObj, &notification); err != nil {
		config.LogError(p.Logger, moduleName, "processNotification", "bad payload", msg.ID, err)
		return nil
	}
	if notification.RecipientEmail == "" {
		p.Logger.WithField("report_id", notification.ReportId).Warn("no recipient email for status notification")
		return nil
	}

	subject, body, err := renderStatusEmail(notification)
	if err != nil {
		config.LogError(p.Logger, moduleName, "processNotification", "render failed", notification.ReportId, err)
		return nil
	}
	if subject == "" {
		return nil
	}

	if err := p.Mailer.Send(notification.RecipientEmail, subject, body); err != nil {
		config.LogError(p.Logger, moduleName, "processNotification", "send failed", notification.ReportId, err)
	}
	return nil
}

func renderStatusEmail(n models.StatusNotification) (subject string, body string, err error) {

	memberName := n.MemberName
	if memberName == "" {
		memberName = "Member"
	}
	data := map[string]interface{}{
		"MemberName":  memberName,
		"ReportId":    n.ReportId,
		"TotalAmount": "$" + n.TotalAmount.StringFixed(2),
		"CheckNumber": n.CheckNumber,
	}

	switch n.Status {
	case models.ExpenseReportStatusRejected:
		reason := n.RejectionReason
		if reason == "" {
			reason = "not provided"
		}
		data["Reason"] = reason
		subject = fmt.Sprintf("Expense report #%d rejected", n.ReportId)
		body, err = utils.ExecTemplate(rejectedBodyTemplate, data)
	case models.ExpenseReportStatusApproved:
		data["ApprovalDate"] = formatNotificationDate(n.ApprovalDate)
		subject = fmt.Sprintf("Expense report #%d approved", n.ReportId)
		body, err = utils.ExecTemplate(approvedBodyTemplate, data)
	case models.ExpenseReportStatusPaid:
		data["PaidDate"] = formatNotificationDate(n.PaidDate)
		subject = fmt.Sprintf("Expense report #%d paid", n.ReportId)
		body, err = utils.ExecTemplate(paidBodyTemplate, data)
	}
	return subject, body, err
}

func formatNotificationDate(t *time.Time) string {
	if t == nil {
		return time.Now().UTC().Format("January 2, 2006")
	}
	return t.Format("January 2, 2006")
}
