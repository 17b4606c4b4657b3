// recalc-totals recomputes the stored reimbursement total for every expense
// report. Run it after a rate-table correction so stored totals match what
// the calculator produces today. Reports already PAID are left untouched.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	var (
		batchSize  = flag.Int("batch", 200, "reports per transaction")
		dryRun     = flag.Bool("dry-run", false, "log recomputed totals without writing")
		includePaid = flag.Bool("include-paid", false, "also recompute reports in PAID status")
	)
	flag.Parse()

	logger := config.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()

	var lastId int
	var scanned, changed, failed int

	for {
		select {
		case <-ctx.Done():
			logger.Warn("interrupted; stopping after current batch")
			summarize(logger, scanned, changed, failed)
			return
		default:
		}

		var reports []models.ExpenseReport
		q := db.WithContext(ctx).
			Where("id > ?", lastId).
			Order("id ASC").
			Limit(*batchSize)
		if !*includePaid {
			q = q.Where("status <> ?", models.ExpenseReportStatusPaid)
		}
		if err := q.Find(&reports).Error; err != nil {
			logger.WithFields(logrus.Fields{"field": "recalc"}).Error("batch query failed: " + err.Error())
			os.Exit(1)
		}
		if len(reports) == 0 {
			break
		}

		for _, report := range reports {
			lastId = report.ID
			scanned++

			oldTotal := report.TotalAmount
			var newTotal decimal.Decimal
			var err error
			if *dryRun {
				var full models.ExpenseReport
				err = db.WithContext(ctx).Preload("Detail").Preload("ReportType").First(&full, report.ID).Error
				if err == nil {
					newTotal = oldTotal
					if full.Detail != nil {
						newTotal = models.CalculateReportTotal(full.Detail, full.ReportType)
					}
				}
			} else {
				err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					newTotal, err = models.RecalculateExpenseReportTotal(ctx, tx, report.ID)
					return err
				})
			}
			if err != nil {
				failed++
				config.LogError(logger, "recalc-totals", "main", "recalculate failed", report.ID, err)
				continue
			}
			if !newTotal.Equal(oldTotal) {
				changed++
				logger.WithFields(logrus.Fields{
					"report_id": report.ID,
					"old_total": oldTotal.StringFixed(2),
					"new_total": newTotal.StringFixed(2),
				}).Info("total changed")
			}
		}
	}

	summarize(logger, scanned, changed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func summarize(logger *logrus.Logger, scanned, changed, failed int) {
	logger.WithFields(logrus.Fields{
		"scanned": scanned,
		"changed": changed,
		"failed":  failed,
	}).Info("recalc complete")
}
