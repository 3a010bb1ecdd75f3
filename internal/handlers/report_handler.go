package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"book-production-tracker/internal/database"
	"book-production-tracker/internal/models"
	"book-production-tracker/internal/tracking"
)

// dateRange parses start_date/end_date query params. The filter only
// applies when both bounds are present; the end bound is inclusive.
func dateRange(c *gin.Context) (start, end time.Time, active bool, err error) {
	startStr := c.Query("start_date")
	endStr := c.Query("end_date")
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	start, err = parseDateParam(startStr)
	if err != nil {
		return
	}
	end, err = parseDateParam(endStr)
	if err != nil {
		return
	}
	end = end.Add(24 * time.Hour)
	return start, end, true, nil
}

func inRange(t, start, end time.Time, active bool) bool {
	if !active {
		return true
	}
	return !t.Before(start) && t.Before(end)
}

// StatusOverview handles GET /api/tracking/status-overview (admin/lead)
// Aggregates record counts per status and total tracked time, shaped for
// the dashboard charts.
func StatusOverview(c *gin.Context) {
	start, end, active, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dates must be YYYY-MM-DD"})
		return
	}

	var records []models.Record
	if err := database.GetDB().Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch records"})
		return
	}

	now := time.Now()
	statusCounts := make(map[models.RecordStatus]int, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		statusCounts[s] = 0
	}

	var totalTodo, totalInProgress, totalInReview, totalReviewFailed float64
	for i := range records {
		rec := &records[i]
		if !inRange(rec.CreatedAt, start, end, active) {
			continue
		}
		statusCounts[rec.Status]++

		snap, _ := tracking.TakeSnapshot(rec, now)
		totalTodo += snap.Todo
		totalInProgress += snap.InProgress
		totalInReview += snap.InReview
		totalReviewFailed += snap.ReviewFailed
	}

	labels := make([]string, 0, len(models.AllStatuses))
	values := make([]int, 0, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		labels = append(labels, string(s))
		values = append(values, statusCounts[s])
	}

	c.JSON(http.StatusOK, gin.H{
		"status_counts":            statusCounts,
		"total_time_todo":          totalTodo,
		"total_time_in_progress":   totalInProgress,
		"total_time_in_review":     totalInReview,
		"total_time_review_failed": totalReviewFailed,
		"status_labels":            labels,
		"status_values":            values,
		"time_labels":              []string{"TODO Time", "In Progress Time", "In Review Time", "Review Failed Time"},
		"time_values":              []float64{totalTodo, totalInProgress, totalInReview, totalReviewFailed},
	})
}

// DeveloperStat aggregates one developer's records and tracked time.
type DeveloperStat struct {
	Username            string                      `json:"username"`
	TotalRecords        int                         `json:"total_records"`
	TotalTodoTime       float64                     `json:"total_todo_time"`
	TotalInProgressTime float64                     `json:"total_in_progress_time"`
	RecordsByStatus     map[models.RecordStatus]int `json:"records_by_status"`
}

// DeveloperStats handles GET /api/tracking/developer-stats (admin/lead)
func DeveloperStats(c *gin.Context) {
	start, end, active, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dates must be YYYY-MM-DD"})
		return
	}

	db := database.GetDB()
	var developers []models.User
	if err := db.Where("role = ?", models.RoleDeveloper).Order("username asc").Find(&developers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch developers"})
		return
	}

	now := time.Now()
	stats := make([]DeveloperStat, 0, len(developers))
	for _, dev := range developers {
		var records []models.Record
		if err := db.Where("developer_assignee = ?", dev.Username).Find(&records).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch records"})
			return
		}

		stat := DeveloperStat{
			Username:        dev.Username,
			RecordsByStatus: make(map[models.RecordStatus]int, len(models.AllStatuses)),
		}
		for _, s := range models.AllStatuses {
			stat.RecordsByStatus[s] = 0
		}

		for i := range records {
			rec := &records[i]
			if !inRange(rec.CreatedAt, start, end, active) {
				continue
			}
			stat.TotalRecords++
			stat.RecordsByStatus[rec.Status]++

			snap, _ := tracking.TakeSnapshot(rec, now)
			stat.TotalTodoTime += snap.Todo
			stat.TotalInProgressTime += snap.InProgress
		}
		stats = append(stats, stat)
	}

	c.JSON(http.StatusOK, gin.H{"developers": stats})
}

// DeveloperRecords handles GET /api/tracking/developer-records (admin/lead)
// Returns one developer's records inside an optional date range.
func DeveloperRecords(c *gin.Context) {
	developer := c.Query("developer")
	if developer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Developer username is required"})
		return
	}

	start, end, active, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dates must be YYYY-MM-DD"})
		return
	}

	var records []models.Record
	if err := database.GetDB().Where("developer_assignee = ?", developer).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch records"})
		return
	}

	now := time.Now()
	responses := make([]RecordResponse, 0, len(records))
	for i := range records {
		if !inRange(records[i].CreatedAt, start, end, active) {
			continue
		}
		responses = append(responses, toRecordResponse(&records[i], now))
	}

	c.JSON(http.StatusOK, gin.H{"records": responses})
}

// DeveloperWorkload summarises one developer's tracked time for a day.
type DeveloperWorkload struct {
	TotalTime        float64 `json:"total_time"`
	TodoTime         float64 `json:"todo_time"`
	InProgressTime   float64 `json:"in_progress_time"`
	InReviewTime     float64 `json:"in_review_time"`
	ReviewFailedTime float64 `json:"review_failed_time"`
	RecordCount      int     `json:"record_count"`

	StatusBreakdown map[models.RecordStatus]struct {
		RecordCount int `json:"record_count"`
	} `json:"status_breakdown"`
}

// Workload handles GET /api/workload (admin/lead)
// Per-developer workload for one day: records created or moved that day.
// Optional developer query param narrows to a single developer.
func Workload(c *gin.Context) {
	dateStr := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	day, err := parseDateParam(dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	dayEnd := day.Add(24 * time.Hour)
	developerFilter := c.Query("developer")

	query := database.GetDB().Where("developer_assignee IS NOT NULL")
	if developerFilter != "" {
		query = query.Where("developer_assignee = ?", developerFilter)
	}

	var records []models.Record
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch records"})
		return
	}

	now := time.Now()
	workload := make(map[string]*DeveloperWorkload)
	activities := make([]gin.H, 0)

	for i := range records {
		rec := &records[i]
		// Activity on the requested day: created then, or its status
		// changed then.
		createdThatDay := inRange(rec.CreatedAt, day, dayEnd, true)
		movedThatDay := inRange(rec.StatusChangedAt, day, dayEnd, true)
		if !createdThatDay && !movedThatDay {
			continue
		}

		dev := *rec.DeveloperAssignee
		w, ok := workload[dev]
		if !ok {
			w = &DeveloperWorkload{
				StatusBreakdown: make(map[models.RecordStatus]struct {
					RecordCount int `json:"record_count"`
				}),
			}
			workload[dev] = w
		}

		snap, _ := tracking.TakeSnapshot(rec, now)
		total := snap.Todo + snap.InProgress + snap.InReview + snap.ReviewFailed

		w.TodoTime += snap.Todo
		w.InProgressTime += snap.InProgress
		w.InReviewTime += snap.InReview
		w.ReviewFailedTime += snap.ReviewFailed
		w.TotalTime += total
		w.RecordCount++
		entry := w.StatusBreakdown[rec.Status]
		entry.RecordCount++
		w.StatusBreakdown[rec.Status] = entry

		activities = append(activities, gin.H{
			"developer":          dev,
			"task":               rec.Task,
			"book_id":            rec.BookID,
			"status":             rec.Status,
			"time_todo":          snap.Todo,
			"time_in_progress":   snap.InProgress,
			"time_in_review":     snap.InReview,
			"time_review_failed": snap.ReviewFailed,
			"total_time":         total,
			"created_date":       rec.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"date":       dateStr,
		"workload":   workload,
		"activities": activities,
	})
}
