package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"book-production-tracker/internal/models"
	"book-production-tracker/internal/tracking"
)

// ErrUnauthorized is returned when the server answers 401. The caller's
// unauthorized hook (login redirect analog) has already been invoked.
var ErrUnauthorized = errors.New("client: unauthorized")

// Record is the dashboard's view of one record, as served by the API.
type Record struct {
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

	// ETAWarning is computed by the backend; the client surfaces it
	// unchanged.
	ETAWarning bool `json:"eta_warning"`
	TimeError  bool `json:"time_error,omitempty"`
}

// StatusHours returns the live-adjusted hours for one tracked status.
func (r *Record) StatusHours(status models.RecordStatus) float64 {
	switch status {
	case models.StatusTodo:
		return r.TimeTodo
	case models.StatusInProgress:
		return r.TimeInProgress
	case models.StatusInReview:
		return r.TimeInReview
	case models.StatusReviewFailed:
		return r.TimeReviewFailed
	default:
		return 0
	}
}

// Progress returns the display percentage for the record's current status,
// measured against that status's expected time ceiling.
func (r *Record) Progress() float64 {
	return tracking.ProgressPercent(r.Status, r.StatusHours(r.Status))
}

// Developer is one entry of the assignee dropdown.
type Developer struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// ListResponse is the record-list envelope.
type ListResponse struct {
	Records      []Record    `json:"records"`
	TotalRecords int64       `json:"total_records"`
	TotalPages   int         `json:"total_pages"`
	UserRole     models.Role `json:"user_role"`
}

// Client is a thin authenticated HTTP client for the tracker API. All
// methods take a context and never panic; a 401 anywhere maps to
// ErrUnauthorized and fires the OnUnauthorized hook.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string

	// OnUnauthorized is invoked on any 401 response, standing in for the
	// browser's redirect to /login. May be nil.
	OnUnauthorized func()
}

// New builds a Client for the given API base URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError is the {"error": "..."} envelope every endpoint uses.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return ErrUnauthorized
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Login authenticates and stores the bearer token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (models.Role, error) {
	var resp struct {
		Token string      `json:"token"`
		Role  models.Role `json:"role"`
	}
	err := c.do(ctx, http.MethodPost, "/api/login", nil, map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}
	c.Token = resp.Token
	return resp.Role, nil
}

// GetRecord fetches one record by ID.
func (c *Client) GetRecord(ctx context.Context, id uint) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/records/%d", id), nil, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetReport fetches one of the read-only reporting views unchanged.
func (c *Client) GetReport(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ExportCSV streams the CSV export into w.
func (c *Client) ExportCSV(ctx context.Context, startDate, endDate string, w io.Writer) error {
	query := url.Values{}
	if startDate != "" {
		query.Set("start_date", startDate)
	}
	if endDate != "" {
		query.Set("end_date", endDate)
	}

	u := c.BaseURL + "/export/csv"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("export csv: unexpected status %d", resp.StatusCode)
	}

	_, err = io.Copy(w, resp.Body)
	return err
}
