package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"book-production-tracker/internal/cache"
	"book-production-tracker/internal/models"
	"book-production-tracker/internal/workflow"
)

// PageSize is the fixed number of records per dashboard page.
const PageSize = 20

// developerCacheTTL bounds how long the assignee dropdown list is reused
// before hitting the API again.
const developerCacheTTL = time.Minute

// ErrRefreshInFlight is returned when a refresh is requested while another
// one is still outstanding. The new request is ignored, not queued and not
// cancelled, so a stale answer can never be applied out of order.
var ErrRefreshInFlight = errors.New("client: refresh already in flight")

// State is the synchronizer's view of the dashboard: the current page of
// records under the active filters, plus pagination totals and the acting
// user's role for permission rendering.
type State struct {
	Page         int
	StatusFilter models.RecordStatus
	Search       string
	AssignedToMe bool

	Records      []Record
	TotalRecords int64
	TotalPages   int
	UserRole     models.Role
	Username     string
}

// Synchronizer owns the client's single source of truth for what records
// exist. Every mutation goes back through the server and is followed by a
// re-fetch, so the local state always reflects authoritative server data
// (including server-computed time accumulators and eta_warning).
type Synchronizer struct {
	api *Client

	mu    sync.Mutex
	state State

	// loading is the single-flight guard for fetches.
	loading atomic.Bool

	developers *cache.TTLCache[string, []Developer]
}

// NewSynchronizer wraps an authenticated Client. username is the acting
// user, used for the assigned-to-me filter and assignment checks.
func NewSynchronizer(api *Client, username string) *Synchronizer {
	return &Synchronizer{
		api:        api,
		state:      State{Page: 1, Username: username},
		developers: cache.New[string, []Developer](),
	}
}

// State returns a copy of the current view state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Records = append([]Record(nil), s.state.Records...)
	return st
}

// SetStatusFilter replaces the status filter. Takes effect on the next
// refresh, which callers issue from page 1.
func (s *Synchronizer) SetStatusFilter(status models.RecordStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StatusFilter = status
}

// SetSearch replaces the free-text search term. Whitespace-only input
// collapses to no filter; a non-empty term is always sent on the next
// refresh.
func (s *Synchronizer) SetSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Search = strings.TrimSpace(term)
}

// SetAssignedToMe toggles the assigned-to-me filter.
func (s *Synchronizer) SetAssignedToMe(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AssignedToMe = on
}

// Refresh fetches the requested page under the current filters and applies
// the result. At most one fetch is in flight at a time; a refresh issued
// while one is outstanding returns ErrRefreshInFlight and changes nothing.
func (s *Synchronizer) Refresh(ctx context.Context, page int) error {
	if !s.loading.CompareAndSwap(false, true) {
		return ErrRefreshInFlight
	}
	defer s.loading.Store(false)

	if page < 1 {
		page = 1
	}

	s.mu.Lock()
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(PageSize))
	if s.state.StatusFilter != "" {
		query.Set("status", string(s.state.StatusFilter))
	}
	if s.state.Search != "" {
		query.Set("search", s.state.Search)
	}
	if s.state.AssignedToMe {
		query.Set("assigned_to_me", "true")
	}
	s.mu.Unlock()

	var resp ListResponse
	if err := s.api.do(ctx, http.MethodGet, "/records", query, nil, &resp); err != nil {
		return err
	}

	s.mu.Lock()
	s.state.Page = page
	s.state.Records = resp.Records
	s.state.TotalRecords = resp.TotalRecords
	s.state.TotalPages = resp.TotalPages
	s.state.UserRole = resp.UserRole
	s.mu.Unlock()
	return nil
}

// RefreshCurrent re-fetches whatever page is currently displayed.
func (s *Synchronizer) RefreshCurrent(ctx context.Context) error {
	s.mu.Lock()
	page := s.state.Page
	s.mu.Unlock()
	return s.Refresh(ctx, page)
}

// CreateRecordInput is the create form payload. Task and BookID are
// validated client-side before any request is sent.
type CreateRecordInput struct {
	Task              string  `json:"task"`
	BookID            string  `json:"book_id"`
	DeveloperAssignee *string `json:"developer_assignee,omitempty"`
	PageCount         *int    `json:"page_count,omitempty"`
	OCR               *string `json:"ocr,omitempty"`
	ETA               *string `json:"eta,omitempty"`
}

// CreateRecord validates and submits a new record, then jumps back to
// page 1 so the new record is visible.
func (s *Synchronizer) CreateRecord(ctx context.Context, input CreateRecordInput) error {
	if strings.TrimSpace(input.Task) == "" || strings.TrimSpace(input.BookID) == "" {
		return errors.New("task and book_id are required")
	}

	if err := s.api.do(ctx, http.MethodPost, "/records/create", nil, input, nil); err != nil {
		return err
	}
	return s.Refresh(ctx, 1)
}

// ChangeStatus requests a status transition and then re-fetches the
// current page. The re-fetch happens even when the server rejects the
// transition, so a reverted status is picked up rather than left stale.
func (s *Synchronizer) ChangeStatus(ctx context.Context, recordID uint, target models.RecordStatus) error {
	updateErr := s.api.do(ctx, http.MethodPost, fmt.Sprintf("/records/%d/status", recordID), nil,
		map[string]string{"status": string(target)}, nil)

	if errors.Is(updateErr, ErrUnauthorized) {
		return updateErr
	}

	if refreshErr := s.RefreshCurrent(ctx); updateErr == nil {
		return refreshErr
	}
	return updateErr
}

// UpdateRecordInput is the full editable field set, status included.
type UpdateRecordInput struct {
	Task              *string `json:"task,omitempty"`
	BookID            *string `json:"book_id,omitempty"`
	DeveloperAssignee *string `json:"developer_assignee,omitempty"`
	PageCount         *int    `json:"page_count,omitempty"`
	OCR               *string `json:"ocr,omitempty"`
	ETA               *string `json:"eta,omitempty"`
	Status            *string `json:"status,omitempty"`
}

// UpdateRecord submits a field edit and re-fetches the current page.
func (s *Synchronizer) UpdateRecord(ctx context.Context, recordID uint, input UpdateRecordInput) error {
	if err := s.api.do(ctx, http.MethodPost, fmt.Sprintf("/records/%d/update", recordID), nil, input, nil); err != nil {
		return err
	}
	return s.RefreshCurrent(ctx)
}

// DeleteRecord deletes a record and re-fetches the current page.
func (s *Synchronizer) DeleteRecord(ctx context.Context, recordID uint) error {
	if err := s.api.do(ctx, http.MethodPost, fmt.Sprintf("/records/%d/delete", recordID), nil, struct{}{}, nil); err != nil {
		return err
	}
	return s.RefreshCurrent(ctx)
}

// Developers returns the assignee dropdown list, cached for a short TTL.
func (s *Synchronizer) Developers(ctx context.Context) ([]Developer, error) {
	if devs, ok := s.developers.Get("developers"); ok {
		return devs, nil
	}

	var resp struct {
		Developers []Developer `json:"developers"`
	}
	if err := s.api.do(ctx, http.MethodGet, "/api/developers", nil, nil, &resp); err != nil {
		return nil, err
	}
	s.developers.Set("developers", resp.Developers, developerCacheTTL)
	return resp.Developers, nil
}

// AllowedTargets returns the statuses the acting user may set on a record,
// for rendering the status control. nil means read-only: present the
// current status without an editable control. This is advisory UI gating
// only; the server re-validates every transition against the same table.
func (s *Synchronizer) AllowedTargets(rec *Record) []models.RecordStatus {
	s.mu.Lock()
	role := s.state.UserRole
	username := s.state.Username
	s.mu.Unlock()

	assigned := role == models.RoleDeveloper &&
		rec.DeveloperAssignee != nil &&
		*rec.DeveloperAssignee == username
	return workflow.AllowedTargets(role, assigned, rec.Status)
}
