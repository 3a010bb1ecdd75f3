package models

import (
	"time"

	"gorm.io/gorm"
)

// RecordStatus represents the workflow status of a record
type RecordStatus string

const (
	StatusBacklog      RecordStatus = "Backlog"
	StatusTodo         RecordStatus = "TODO"
	StatusInProgress   RecordStatus = "In Progress"
	StatusInReview     RecordStatus = "In Review"
	StatusReviewFailed RecordStatus = "Review failed - In Progress"
	StatusOnHold       RecordStatus = "On-Hold"
	StatusPublished    RecordStatus = "Published"
)

// AllStatuses lists every workflow status in display order
var AllStatuses = []RecordStatus{
	StatusBacklog,
	StatusTodo,
	StatusInProgress,
	StatusInReview,
	StatusReviewFailed,
	StatusOnHold,
	StatusPublished,
}

// Valid reports whether the status is a member of the workflow enum
func (s RecordStatus) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusInReview,
		StatusReviewFailed, StatusOnHold, StatusPublished:
		return true
	default:
		return false
	}
}

// OCRState represents whether a book has been through OCR
type OCRState string

const (
	OCRYes OCRState = "yes"
	OCRNo  OCRState = "no"
)

// Valid reports whether the OCR value is a member of the enum
func (o OCRState) Valid() bool {
	return o == OCRYes || o == OCRNo
}

// Record represents one book-production task in the system
type Record struct {
	ID                uint         `json:"id" gorm:"primaryKey"`
	Task              string       `json:"task" gorm:"not null"`
	BookID            string       `json:"book_id" gorm:"column:book_id;not null"`
	Status            RecordStatus `json:"status" gorm:"not null;default:'Backlog'"`
	DeveloperAssignee *string      `json:"developer_assignee" gorm:"column:developer_assignee"`
	PageCount         *int         `json:"page_count" gorm:"column:page_count"`
	OCR               *OCRState    `json:"ocr" gorm:"column:ocr"`
	ETA               *time.Time   `json:"eta" gorm:"column:eta"`
	CreatedBy         string       `json:"created_by" gorm:"column:created_by;not null"`
	PublishedDate     *time.Time   `json:"published_date" gorm:"column:published_date"`

	// StatusChangedAt is the moment the record entered its current status.
	// The live accumulator runs from this timestamp.
	StatusChangedAt time.Time `json:"status_changed_at" gorm:"column:status_changed_at"`

	// Frozen portions of each time accumulator, in hours. The elapsed time
	// for the currently live status is computed on read, not stored here.
	TimeTodo         float64 `json:"time_todo" gorm:"column:time_todo;default:0"`
	TimeInProgress   float64 `json:"time_in_progress" gorm:"column:time_in_progress;default:0"`
	TimeInReview     float64 `json:"time_in_review" gorm:"column:time_in_review;default:0"`
	TimeReviewFailed float64 `json:"time_review_failed" gorm:"column:time_review_failed;default:0"`

	CreatedAt time.Time      `json:"created_date"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Record Model
func (Record) TableName() string {
	return "records"
}
