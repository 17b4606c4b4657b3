package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"bitbucket.org/tbphq/members_backend/models"
	"bitbucket.org/tbphq/members_backend/utils"
	"github.com/gin-gonic/gin"
)

func ListReportTypesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		types, err := models.ListActiveExpenseReportTypes(c.Request.Context())
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, types)
	}
}

func GetReportTypeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		reportType, err := models.GetExpenseReportType(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, reportType)
	}
}

func CreateReportTypeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewExpenseReportType
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		reportType, err := models.CreateExpenseReportType(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, reportType)
	}
}

func UpdateReportTypeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewExpenseReportType
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		reportType, err := models.UpdateExpenseReportType(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, reportType)
	}
}

func CreateExpenseReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewExpenseReport
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if !canActOnMember(c, input.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		report, err := models.CreateExpenseReport(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func ListExpenseReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		memberId := 0
		if v := c.Query("member_id"); v != "" {
			memberId, _ = strconv.Atoi(v)
		}
		isAdmin, _ := utils.GetIsAdminFromContext(ctx)
		if !isAdmin {
			// members only ever see their own reports
			own, ok := utils.GetMemberIdFromContext(ctx)
			if !ok || own <= 0 {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
			memberId = own
		}

		status := models.ExpenseReportStatus(c.Query("status"))
		if status != "" && !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		limit := 20
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		var after *string
		if v := c.Query("after"); v != "" {
			after = &v
		}

		edges, pageInfo, err := models.PaginateExpenseReports(ctx, memberId, status, limit, after)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"edges": edges, "page_info": pageInfo})
	}
}

func GetExpenseReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		report, err := models.GetExpenseReport(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		if !canActOnMember(c, report.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func UpdateExpenseReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewExpenseReport
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if !canActOnMember(c, input.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		report, err := models.UpdateExpenseReport(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// memberTransitions are the workflow moves a member may apply to their
// own report; everything else needs an Official.
var memberTransitions = map[models.ExpenseReportStatus]bool{
	models.ExpenseReportStatusSubmitted: true,
	models.ExpenseReportStatusCancelled: true,
}

func UpdateExpenseReportStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewExpenseReportStatus
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}

		isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())
		if !isAdmin {
			if !memberTransitions[input.Status] {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
			report, err := models.GetExpenseReport(c.Request.Context(), id)
			if err != nil {
				writeModelError(c, err)
				return
			}
			if !canActOnMember(c, report.MemberId) {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}

		report, err := models.UpdateExpenseReportStatus(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func UploadReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		report, err := models.GetExpenseReport(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		if !canActOnMember(c, report.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		defer file.Close()

		objectKey := fmt.Sprintf("receipts/%d/%s%s", id, utils.GenerateUniqueFilename(), filepath.Ext(fileHeader.Filename))
		if err := utils.UploadFileToGCS(c.Request.Context(), objectKey, file); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		report, err = models.AttachReceipt(c.Request.Context(), id, objectKey)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"report":      report,
			"receipt_url": utils.BuildObjectAccessURL(objectKey),
		})
	}
}

// ExportExpenseReportsHandler streams an xlsx of reports in a date range.
func ExportExpenseReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fromDate, err := time.Parse("2006-01-02", c.DefaultQuery("from", "1970-01-01"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		toDate := time.Now().UTC()
		if v := c.Query("to"); v != "" {
			toDate, err = time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
				return
			}
		}
		status := models.ExpenseReportStatus(c.Query("status"))
		if status != "" && !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		data, err := models.ExportExpenseReportsExcel(c.Request.Context(), fromDate, toDate, status)
		if err != nil {
			writeModelError(c, err)
			return
		}

		filename := "expense-reports-" + time.Now().Format("20060102") + ".xlsx"
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}
