package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"book-production-tracker/internal/models"
)

func newTestSync(t *testing.T, handler http.Handler) (*Synchronizer, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api := New(srv.URL)
	api.Token = "test-token"
	return NewSynchronizer(api, "bob"), srv
}

func listHandler(t *testing.T, resp ListResponse, lastQuery *atomic.Value, hits *atomic.Int32) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/records" {
			http.NotFound(w, r)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		if lastQuery != nil {
			lastQuery.Store(r.URL.Query())
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
}

func TestRefresh_AppliesServerState(t *testing.T) {
	resp := ListResponse{
		Records:      []Record{{ID: 1, Task: "Scan atlas", Status: models.StatusTodo}},
		TotalRecords: 45,
		TotalPages:   3,
		UserRole:     models.RoleDeveloper,
	}
	var lastQuery atomic.Value
	s, _ := newTestSync(t, listHandler(t, resp, &lastQuery, nil))

	require.NoError(t, s.Refresh(context.Background(), 2))

	st := s.State()
	require.Equal(t, 2, st.Page)
	require.Len(t, st.Records, 1)
	require.Equal(t, "Scan atlas", st.Records[0].Task)
	require.EqualValues(t, 45, st.TotalRecords)
	require.Equal(t, 3, st.TotalPages)
	require.Equal(t, models.RoleDeveloper, st.UserRole)

	q := lastQuery.Load().(url.Values)
	require.Equal(t, "2", q["page"][0])
	require.Equal(t, "20", q["limit"][0])
}

func TestRefresh_SendsActiveFilters(t *testing.T) {
	var lastQuery atomic.Value
	s, _ := newTestSync(t, listHandler(t, ListResponse{}, &lastQuery, nil))

	s.SetStatusFilter(models.StatusInProgress)
	s.SetSearch("  atlas  ")
	s.SetAssignedToMe(true)
	require.NoError(t, s.Refresh(context.Background(), 1))

	q := lastQuery.Load().(url.Values)
	require.Equal(t, "In Progress", q["status"][0])
	require.Equal(t, "atlas", q["search"][0]) // trimmed before sending
	require.Equal(t, "true", q["assigned_to_me"][0])
}

func TestRefresh_WhitespaceSearchOmitted(t *testing.T) {
	var lastQuery atomic.Value
	s, _ := newTestSync(t, listHandler(t, ListResponse{}, &lastQuery, nil))

	s.SetSearch("   ")
	require.NoError(t, s.Refresh(context.Background(), 1))

	q := lastQuery.Load().(url.Values)
	require.NotContains(t, q, "search")
}

func TestRefresh_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	s, _ := newTestSync(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only the first request blocks; later requests answer directly.
		first := false
		once.Do(func() {
			first = true
			close(started)
		})
		if first {
			<-release
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ListResponse{TotalPages: 1})
	}))

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background(), 1) }()
	<-started

	// A second refresh while the first is outstanding is ignored.
	require.ErrorIs(t, s.Refresh(context.Background(), 2), ErrRefreshInFlight)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 1, s.State().Page)

	// The guard is released once the fetch completes.
	require.NoError(t, s.Refresh(context.Background(), 1))
}

func TestCreateRecord_ValidatesBeforeSending(t *testing.T) {
	var hits atomic.Int32
	s, _ := newTestSync(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	err := s.CreateRecord(context.Background(), CreateRecordInput{Task: "   ", BookID: "BK-1"})
	require.Error(t, err)
	err = s.CreateRecord(context.Background(), CreateRecordInput{Task: "Scan", BookID: ""})
	require.Error(t, err)
	require.Zero(t, hits.Load(), "invalid input must not produce a request")
}

func TestCreateRecord_RefetchesPageOne(t *testing.T) {
	var listHits atomic.Int32
	s, _ := newTestSync(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/records/create":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		case "/records":
			listHits.Add(1)
			require.Equal(t, "1", r.URL.Query().Get("page"))
			_ = json.NewEncoder(w).Encode(ListResponse{TotalPages: 1})
		default:
			http.NotFound(w, r)
		}
	}))

	// Start from a later page; creation jumps back to page 1.
	s.mu.Lock()
	s.state.Page = 3
	s.mu.Unlock()

	require.NoError(t, s.CreateRecord(context.Background(), CreateRecordInput{Task: "Scan", BookID: "BK-1"}))
	require.EqualValues(t, 1, listHits.Load())
	require.Equal(t, 1, s.State().Page)
}

func TestChangeStatus_RefetchesEvenWhenRejected(t *testing.T) {
	var listHits atomic.Int32
	s, _ := newTestSync(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/records/7/status":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error": "You are not allowed to set this status"}`))
		case "/records":
			listHits.Add(1)
			_ = json.NewEncoder(w).Encode(ListResponse{TotalPages: 1})
		default:
			http.NotFound(w, r)
		}
	}))

	err := s.ChangeStatus(context.Background(), 7, models.StatusInProgress)
	require.ErrorContains(t, err, "not allowed")
	// The rejected transition still triggers a re-fetch so the reverted
	// status is displayed.
	require.EqualValues(t, 1, listHits.Load())
}

func TestChangeStatus_UnauthorizedSkipsRefetch(t *testing.T) {
	var hookFired atomic.Bool
	var listHits atomic.Int32
	s, _ := newTestSync(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/records" {
			listHits.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	s.api.OnUnauthorized = func() { hookFired.Store(true) }

	err := s.ChangeStatus(context.Background(), 7, models.StatusInProgress)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.True(t, hookFired.Load())
	require.Zero(t, listHits.Load())
}

func TestDeleteRecord_RefetchesCurrentPage(t *testing.T) {
	var lastQuery atomic.Value
	s, _ := newTestSync(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/records/7/delete":
			_, _ = w.Write([]byte(`{"message": "ok"}`))
		case "/records":
			lastQuery.Store(r.URL.Query())
			_ = json.NewEncoder(w).Encode(ListResponse{TotalPages: 2})
		default:
			http.NotFound(w, r)
		}
	}))

	s.mu.Lock()
	s.state.Page = 2
	s.mu.Unlock()

	require.NoError(t, s.DeleteRecord(context.Background(), 7))
	q := lastQuery.Load().(url.Values)
	require.Equal(t, "2", q["page"][0])
}

func TestDevelopers_Cached(t *testing.T) {
	var hits atomic.Int32
	s, _ := newTestSync(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/developers", r.URL.Path)
		hits.Add(1)
		_, _ = w.Write([]byte(`{"developers": [{"username": "bob", "role": "developer"}], "count": 1}`))
	}))

	first, err := s.Developers(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, "bob", first[0].Username)

	second, err := s.Developers(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, hits.Load(), "second call must be served from cache")
}

func TestAllowedTargets_UsesRoleAndAssignment(t *testing.T) {
	s, _ := newTestSync(t, listHandler(t, ListResponse{UserRole: models.RoleDeveloper}, nil, nil))
	require.NoError(t, s.Refresh(context.Background(), 1))

	assignee := "bob"
	mine := &Record{Status: models.StatusInProgress, DeveloperAssignee: &assignee}
	require.Equal(t, []models.RecordStatus{
		models.StatusInProgress,
		models.StatusInReview,
		models.StatusReviewFailed,
		models.StatusOnHold,
		models.StatusPublished,
	}, s.AllowedTargets(mine))

	other := "carol"
	theirs := &Record{Status: models.StatusInProgress, DeveloperAssignee: &other}
	require.Nil(t, s.AllowedTargets(theirs), "unassigned developer is read-only")
}

func TestRecordProgress(t *testing.T) {
	rec := &Record{Status: models.StatusTodo, TimeTodo: 12}
	require.InDelta(t, 50.0, rec.Progress(), 1e-9)

	rec = &Record{Status: models.StatusInProgress, TimeInProgress: 12}
	require.InDelta(t, 25.0, rec.Progress(), 1e-9)

	rec = &Record{Status: models.StatusBacklog, TimeTodo: 12}
	require.Zero(t, rec.Progress())
}

func TestClientLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token": "issued-token", "username": "bob", "role": "developer"}`))
	}))
	t.Cleanup(srv.Close)

	api := New(srv.URL)
	role, err := api.Login(context.Background(), "bob", "s3cret")
	require.NoError(t, err)
	require.Equal(t, models.RoleDeveloper, role)
	require.Equal(t, "issued-token", api.Token)

	var hookFired bool
	api.OnUnauthorized = func() { hookFired = true }
	_, err = api.Login(context.Background(), "bob", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.True(t, hookFired)
}
