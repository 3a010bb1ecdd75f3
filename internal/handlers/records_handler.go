package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"book-production-tracker/internal/database"
	"book-production-tracker/internal/models"
	"book-production-tracker/internal/realtime"
	"book-production-tracker/internal/tracking"
	"book-production-tracker/internal/workflow"
)

// CreateRecordRequest represents the request payload for creating a record
type CreateRecordRequest struct {
	Task              string           `json:"task" binding:"required"`
	BookID            string           `json:"book_id" binding:"required"`
	DeveloperAssignee *string          `json:"developer_assignee"`
	PageCount         *int             `json:"page_count"`
	OCR               *models.OCRState `json:"ocr"`
	ETA               *string          `json:"eta"` // YYYY-MM-DD
}

// UpdateRecordRequest represents the full editable field set for a record
type UpdateRecordRequest struct {
	Task              *string              `json:"task"`
	BookID            *string              `json:"book_id"`
	DeveloperAssignee *string              `json:"developer_assignee"`
	PageCount         *int                 `json:"page_count"`
	OCR               *models.OCRState     `json:"ocr"`
	ETA               *string              `json:"eta"`
	Status            *models.RecordStatus `json:"status"`
}

// UpdateStatusRequest represents a minimal request to change status
type UpdateStatusRequest struct {
	Status models.RecordStatus `json:"status" binding:"required"`
}

// actingUser pulls the authenticated identity set by the JWT middleware.
func actingUser(c *gin.Context) (string, models.Role) {
	return c.GetString("username"), models.Role(c.GetString("role"))
}

// isAssignedDeveloper reports whether the acting user is the record's
// assigned developer.
func isAssignedDeveloper(rec *models.Record, username string, role models.Role) bool {
	return role == models.RoleDeveloper &&
		rec.DeveloperAssignee != nil &&
		*rec.DeveloperAssignee == username
}

func parseDateParam(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

// findRecord loads a record by the :id path param, answering 404/500 itself.
func findRecord(c *gin.Context) (*models.Record, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID"})
		return nil, false
	}

	var rec models.Record
	result := database.GetDB().First(&rec, uint(id))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch record"})
		}
		return nil, false
	}
	return &rec, true
}

// validateAssignee checks that a proposed assignee exists and has the
// developer role. An empty username clears the assignment.
func validateAssignee(c *gin.Context, username *string) (*string, bool) {
	if username == nil || strings.TrimSpace(*username) == "" {
		return nil, true
	}
	name := strings.TrimSpace(*username)

	var user models.User
	err := database.GetDB().Where("username = ? AND role = ?", name, models.RoleDeveloper).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "developer_assignee must reference an existing developer"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate assignee"})
		}
		return nil, false
	}
	return &name, true
}

/*
*
ListRecords handles GET /records
Returns one page of records under the active filters, plus pagination
totals and the acting user's role for permission rendering.
Query params: page (default 1), limit (default 20), status, search,
assigned_to_me.
*/
func ListRecords(c *gin.Context) {
	username, role := actingUser(c)

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	db := database.GetDB()
	query := db.Model(&models.Record{})

	if statusFilter := c.Query("status"); statusFilter != "" {
		status := models.RecordStatus(statusFilter)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		query = query.Where("status = ?", status)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where("task LIKE ? OR book_id LIKE ?", like, like)
	}

	if c.Query("assigned_to_me") == "true" {
		query = query.Where("developer_assignee = ?", username)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count records"})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if totalPages == 0 {
		totalPages = 1
	}

	// A page past the end is not an error; it just comes back empty.
	var records []models.Record
	result := query.Session(&gorm.Session{}).Order("created_at desc").Limit(limit).Offset(offset).Find(&records)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch records"})
		return
	}

	now := time.Now()
	responses := make([]RecordResponse, 0, len(records))
	for i := range records {
		responses = append(responses, toRecordResponse(&records[i], now))
	}

	c.JSON(http.StatusOK, gin.H{
		"records":       responses,
		"total_records": total,
		"total_pages":   totalPages,
		"page":          page,
		"limit":         limit,
		"user_role":     role,
	})
}

// GetRecord handles GET /records/:id
func GetRecord(c *gin.Context) {
	rec, ok := findRecord(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(rec, time.Now()))
}

/*
*
CreateRecord handles POST /records/create
Only admins and leads create records. New records start in Backlog with a
fresh status entry timestamp; task and book_id are mandatory.
*/
func CreateRecord(c *gin.Context) {
	username, role := actingUser(c)
	if !workflow.CanEdit(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins and leads can create records"})
		return
	}

	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignee, ok := validateAssignee(c, req.DeveloperAssignee)
	if !ok {
		return
	}

	if req.PageCount != nil && *req.PageCount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page_count must be >= 0"})
		return
	}
	if req.OCR != nil && !req.OCR.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ocr value"})
		return
	}

	var eta *time.Time
	if req.ETA != nil && *req.ETA != "" {
		t, err := parseDateParam(*req.ETA)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "eta must be YYYY-MM-DD"})
			return
		}
		eta = &t
	}

	rec := models.Record{
		Task:              req.Task,
		BookID:            req.BookID,
		Status:            models.StatusBacklog,
		DeveloperAssignee: assignee,
		PageCount:         req.PageCount,
		OCR:               req.OCR,
		ETA:               eta,
		CreatedBy:         username,
		StatusChangedAt:   time.Now(),
	}

	if err := database.GetDB().Create(&rec).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create record"})
		return
	}

	realtime.GetHub().Broadcast(realtime.Event{
		Type:     realtime.EventRecordCreated,
		RecordID: rec.ID,
		Actor:    username,
		Status:   string(rec.Status),
	})

	c.JSON(http.StatusCreated, toRecordResponse(&rec, time.Now()))
}

/*
*
UpdateRecordStatus handles POST /records/:id/status
Re-validates the transition against the role/assignment rule table (the
same table the client uses for UI gating) and applies time accounting:
the leaving accumulator freezes, the entered one resumes.
*/
func UpdateRecordStatus(c *gin.Context) {
	username, role := actingUser(c)

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	rec, ok := findRecord(c)
	if !ok {
		return
	}

	assigned := isAssignedDeveloper(rec, username, role)
	if !workflow.CanTransition(role, assigned, rec.Status, req.Status) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to set this status"})
		return
	}

	tracking.ApplyTransition(rec, req.Status, time.Now())

	if err := database.GetDB().Save(rec).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	realtime.GetHub().Broadcast(realtime.Event{
		Type:     realtime.EventRecordStatusChanged,
		RecordID: rec.ID,
		Actor:    username,
		Status:   string(rec.Status),
	})

	c.JSON(http.StatusOK, toRecordResponse(rec, time.Now()))
}

/*
*
UpdateRecord handles POST /records/:id/update
Admin/lead field edits. Editing fields has no time-accounting effect; a
status change inside the edit goes through the same rule table and
accumulator handling as a direct status change.
*/
func UpdateRecord(c *gin.Context) {
	username, role := actingUser(c)
	if !workflow.CanEdit(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins and leads can edit records"})
		return
	}

	rec, ok := findRecord(c)
	if !ok {
		return
	}

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Task != nil {
		if strings.TrimSpace(*req.Task) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "task cannot be empty"})
			return
		}
		rec.Task = *req.Task
	}
	if req.BookID != nil {
		if strings.TrimSpace(*req.BookID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "book_id cannot be empty"})
			return
		}
		rec.BookID = *req.BookID
	}
	if req.DeveloperAssignee != nil {
		assignee, ok := validateAssignee(c, req.DeveloperAssignee)
		if !ok {
			return
		}
		rec.DeveloperAssignee = assignee
	}
	if req.PageCount != nil {
		if *req.PageCount < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page_count must be >= 0"})
			return
		}
		rec.PageCount = req.PageCount
	}
	if req.OCR != nil {
		if !req.OCR.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ocr value"})
			return
		}
		rec.OCR = req.OCR
	}
	if req.ETA != nil {
		if *req.ETA == "" {
			rec.ETA = nil
		} else {
			t, err := parseDateParam(*req.ETA)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "eta must be YYYY-MM-DD"})
				return
			}
			rec.ETA = &t
		}
	}

	if req.Status != nil && *req.Status != rec.Status {
		if !req.Status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		assigned := isAssignedDeveloper(rec, username, role)
		if !workflow.CanTransition(role, assigned, rec.Status, *req.Status) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to set this status"})
			return
		}
		tracking.ApplyTransition(rec, *req.Status, time.Now())
	}

	if err := database.GetDB().Save(rec).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update record"})
		return
	}

	realtime.GetHub().Broadcast(realtime.Event{
		Type:     realtime.EventRecordUpdated,
		RecordID: rec.ID,
		Actor:    username,
		Status:   string(rec.Status),
	})

	c.JSON(http.StatusOK, toRecordResponse(rec, time.Now()))
}

// DeleteRecord handles POST /records/:id/delete
// Soft-deletes a record; deleted records never come back.
func DeleteRecord(c *gin.Context) {
	username, role := actingUser(c)
	if !workflow.CanEdit(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins and leads can delete records"})
		return
	}

	rec, ok := findRecord(c)
	if !ok {
		return
	}

	if err := database.GetDB().Delete(rec).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete record"})
		return
	}

	realtime.GetHub().Broadcast(realtime.Event{
		Type:     realtime.EventRecordDeleted,
		RecordID: rec.ID,
		Actor:    username,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Record deleted successfully",
		"id":      rec.ID,
	})
}
