package handlers

import (
	"time"

	"go.uber.org/zap"

	"book-production-tracker/internal/logger"
	"book-production-tracker/internal/models"
	"book-production-tracker/internal/tracking"
)

// etaWarningWindow is how close an ETA has to be before the backend flags
// the record for the dashboard.
const etaWarningWindow = 48 * time.Hour

// RecordResponse is the wire shape of a record, with live-adjusted time
// accumulators, their hour/minute decomposition and tracking flags.
type RecordResponse struct {
	ID                uint                `json:"id"`
	Task              string              `json:"task"`
	BookID            string              `json:"book_id"`
	Status            models.RecordStatus `json:"status"`
	DeveloperAssignee *string             `json:"developer_assignee"`
	PageCount         *int                `json:"page_count"`
	OCR               *models.OCRState    `json:"ocr"`
	ETA               *time.Time          `json:"eta"`
	CreatedDate       time.Time           `json:"created_date"`
	CreatedBy         string              `json:"created_by"`
	PublishedDate     *time.Time          `json:"published_date"`

	TimeTodo         float64 `json:"time_todo"`
	TimeInProgress   float64 `json:"time_in_progress"`
	TimeInReview     float64 `json:"time_in_review"`
	TimeReviewFailed float64 `json:"time_review_failed"`

	TimeTodoHours           int `json:"time_todo_hours"`
	TimeTodoMinutes         int `json:"time_todo_minutes"`
	TimeInProgressHours     int `json:"time_in_progress_hours"`
	TimeInProgressMinutes   int `json:"time_in_progress_minutes"`
	TimeInReviewHours       int `json:"time_in_review_hours"`
	TimeInReviewMinutes     int `json:"time_in_review_minutes"`
	TimeReviewFailedHours   int `json:"time_review_failed_hours"`
	TimeReviewFailedMinutes int `json:"time_review_failed_minutes"`

	IsTodoTracking         bool `json:"is_todo_tracking"`
	IsInProgressTracking   bool `json:"is_in_progress_tracking"`
	IsInReviewTracking     bool `json:"is_in_review_tracking"`
	IsReviewFailedTracking bool `json:"is_review_failed_tracking"`

	ETAWarning bool `json:"eta_warning"`

	// TimeError marks a record whose live accumulator could not be
	// computed (missing entry timestamp). Frozen values are still served.
	TimeError bool `json:"time_error,omitempty"`
}

// toRecordResponse builds the wire shape for one record. A time-accounting
// failure is isolated to that record: frozen values are served and the
// record is flagged, never dropped from the page.
func toRecordResponse(rec *models.Record, now time.Time) RecordResponse {
	snap, err := tracking.TakeSnapshot(rec, now)
	if err != nil {
		logger.Warn("time accounting failed for record",
			zap.Uint("record_id", rec.ID),
			zap.String("status", string(rec.Status)),
			zap.Error(err),
		)
	}

	resp := RecordResponse{
		ID:                rec.ID,
		Task:              rec.Task,
		BookID:            rec.BookID,
		Status:            rec.Status,
		DeveloperAssignee: rec.DeveloperAssignee,
		PageCount:         rec.PageCount,
		OCR:               rec.OCR,
		ETA:               rec.ETA,
		CreatedDate:       rec.CreatedAt,
		CreatedBy:         rec.CreatedBy,
		PublishedDate:     rec.PublishedDate,

		TimeTodo:         snap.Todo,
		TimeInProgress:   snap.InProgress,
		TimeInReview:     snap.InReview,
		TimeReviewFailed: snap.ReviewFailed,

		IsTodoTracking:         snap.Live == models.StatusTodo && err == nil,
		IsInProgressTracking:   snap.Live == models.StatusInProgress && err == nil,
		IsInReviewTracking:     snap.Live == models.StatusInReview && err == nil,
		IsReviewFailedTracking: snap.Live == models.StatusReviewFailed && err == nil,

		TimeError: err != nil,
	}

	resp.TimeTodoHours, resp.TimeTodoMinutes = tracking.SplitHours(snap.Todo)
	resp.TimeInProgressHours, resp.TimeInProgressMinutes = tracking.SplitHours(snap.InProgress)
	resp.TimeInReviewHours, resp.TimeInReviewMinutes = tracking.SplitHours(snap.InReview)
	resp.TimeReviewFailedHours, resp.TimeReviewFailedMinutes = tracking.SplitHours(snap.ReviewFailed)

	if rec.ETA != nil && rec.Status != models.StatusPublished && rec.ETA.Before(now.Add(etaWarningWindow)) {
		resp.ETAWarning = true
	}
	return resp
}
