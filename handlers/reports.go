package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"restaurant-pos-api/config"
	"restaurant-pos-api/jobs"
	"restaurant-pos-api/models"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/araddon/dateparse"
	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

// reportRange reads from/to (inclusive days) in the configured zone. Any
// common date spelling is accepted. Both default to today.
func reportRange(c *gin.Context) (time.Time, time.Time, bool) {
	today := now().In(location)
	parse := func(key string) (time.Time, bool) {
		raw := c.Query(key)
		if raw == "" {
			return today, true
		}
		t, err := dateparse.ParseIn(raw, location)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key + ", expected a date such as 2006-01-02"})
			return time.Time{}, false
		}
		return t, true
	}
	fromDay, ok := parse("from")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	toDay, ok := parse("to")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	from, _ := jobs.DayBounds(fromDay, location)
	_, to := jobs.DayBounds(toDay, location)
	if !to.After(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// GetSalesSummary returns revenue, tips and ticket statistics for a date range
func GetSalesSummary(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}
	summary, err := jobs.Summarize(c.Request.Context(), config.DB, from, to)
	if err != nil {
		zap.L().Error("sales summary failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetProductSales ranks products sold in a date range
func GetProductSales(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	sales, err := jobs.ProductSales(c.Request.Context(), config.DB, from, to, limit)
	if err != nil {
		zap.L().Error("product sales failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build product ranking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(sales), "products": sales})
}

func loadDailyReports(c *gin.Context) ([]models.DailyReport, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if err != nil || limit <= 0 {
		limit = 30
	}
	var reports []models.DailyReport
	if err := config.DB.Order("day desc").Limit(limit).Find(&reports).Error; err != nil {
		dbError(c, err, "daily reports")
		return nil, false
	}
	return reports, true
}

// GetDailyReports lists the nightly snapshots, newest first
func GetDailyReports(c *gin.Context) {
	reports, ok := loadDailyReports(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(reports), "reports": reports})
}

// ExportDailyReportsCSV streams the nightly snapshots as CSV
func ExportDailyReportsCSV(c *gin.Context) {
	reports, ok := loadDailyReports(c)
	if !ok {
		return
	}
	out, err := gocsv.MarshalString(&reports)
	if err != nil {
		zap.L().Error("csv export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export CSV"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="daily-reports.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(out))
}

var dailyColumns = []string{"day", "orders", "revenue", "tips", "avg_ticket", "median_ticket", "p90_prep_seconds"}

// ExportDailyReportsXLSX returns the nightly snapshots as a spreadsheet
func ExportDailyReportsXLSX(c *gin.Context) {
	reports, ok := loadDailyReports(c)
	if !ok {
		return
	}
	const sheet = "Sheet1"
	f := excelize.NewFile()
	for col, name := range dailyColumns {
		f.SetCellValue(sheet, cell(col, 1), name)
	}
	for i, r := range reports {
		row := i + 2
		values := []interface{}{r.Day, r.Orders, r.Revenue, r.Tips, r.AvgTicket, r.MedianTicket, r.P90PrepSeconds}
		for col, v := range values {
			f.SetCellValue(sheet, cell(col, row), v)
		}
	}
	c.Header("Content-Disposition", `attachment; filename="daily-reports.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		zap.L().Error("xlsx export failed", zap.Error(err))
	}
}

// cell names a spreadsheet cell; col is zero based and stays under 26.
func cell(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
