package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"book-production-tracker/internal/database"
	"book-production-tracker/internal/models"
	"book-production-tracker/internal/tracking"
)

var csvHeader = []string{
	"ID", "Task", "Book ID", "Status", "Developer", "Page Count", "OCR",
	"ETA", "Created Date", "Created By", "Published Date",
	"TODO Hours", "In Progress Hours", "In Review Hours", "Review Failed Hours",
}

// ExportCSV handles GET /export/csv (admin/lead)
// Streams every record in the optional created-date range as a CSV
// download. Time columns carry live-adjusted hours.
func ExportCSV(c *gin.Context) {
	start, end, active, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dates must be YYYY-MM-DD"})
		return
	}

	var records []models.Record
	if err := database.GetDB().Order("created_at asc").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch records"})
		return
	}

	filename := fmt.Sprintf("records_export_%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	w := csv.NewWriter(c.Writer)
	if err := w.Write(csvHeader); err != nil {
		return
	}

	now := time.Now()
	for i := range records {
		rec := &records[i]
		if !inRange(rec.CreatedAt, start, end, active) {
			continue
		}
		snap, _ := tracking.TakeSnapshot(rec, now)

		assignee := ""
		if rec.DeveloperAssignee != nil {
			assignee = *rec.DeveloperAssignee
		}
		pageCount := ""
		if rec.PageCount != nil {
			pageCount = strconv.Itoa(*rec.PageCount)
		}
		ocr := ""
		if rec.OCR != nil {
			ocr = string(*rec.OCR)
		}
		eta := ""
		if rec.ETA != nil {
			eta = rec.ETA.Format("2006-01-02")
		}
		published := ""
		if rec.PublishedDate != nil {
			published = rec.PublishedDate.Format("2006-01-02 15:04")
		}

		row := []string{
			strconv.FormatUint(uint64(rec.ID), 10),
			rec.Task,
			rec.BookID,
			string(rec.Status),
			assignee,
			pageCount,
			ocr,
			eta,
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.CreatedBy,
			published,
			strconv.FormatFloat(snap.Todo, 'f', 2, 64),
			strconv.FormatFloat(snap.InProgress, 'f', 2, 64),
			strconv.FormatFloat(snap.InReview, 'f', 2, 64),
			strconv.FormatFloat(snap.ReviewFailed, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return
		}
	}
	w.Flush()
}
