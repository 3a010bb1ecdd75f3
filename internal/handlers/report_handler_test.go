package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"book-production-tracker/internal/middleware"
	"book-production-tracker/internal/models"
)

func reportRouter() *gin.Engine {
	r := gin.New()
	reporting := r.Group("")
	reporting.Use(middleware.JWTAuthMiddleware(), middleware.RequireRoles("admin", "lead"))
	reporting.GET("/api/tracking/status-overview", StatusOverview)
	reporting.GET("/api/tracking/developer-stats", DeveloperStats)
	reporting.GET("/api/tracking/developer-records", DeveloperRecords)
	reporting.GET("/api/workload", Workload)
	return r
}

func TestStatusOverview(t *testing.T) {
	db := setupDB(t)
	lead := seedUser(t, db, "luke", models.RoleLead)
	token := tokenFor(t, lead)

	seedRecord(t, db, "A", "BK-1", models.StatusBacklog, nil, time.Time{})
	seedRecord(t, db, "B", "BK-2", models.StatusTodo, nil, time.Now().Add(-2*time.Hour))
	seedRecord(t, db, "C", "BK-3", models.StatusTodo, nil, time.Now().Add(-time.Hour))
	r := reportRouter()

	w := doJSON(t, r, http.MethodGet, "/api/tracking/status-overview", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		StatusCounts  map[string]int `json:"status_counts"`
		TotalTimeTodo float64        `json:"total_time_todo"`
		StatusLabels  []string       `json:"status_labels"`
		StatusValues  []int          `json:"status_values"`
		TimeValues    []float64      `json:"time_values"`
	}
	decodeBody(t, w, &body)
	require.Equal(t, 1, body.StatusCounts["Backlog"])
	require.Equal(t, 2, body.StatusCounts["TODO"])
	require.Equal(t, 0, body.StatusCounts["Published"])
	require.InDelta(t, 3.0, body.TotalTimeTodo, 0.05) // 2h + 1h live
	require.Len(t, body.StatusLabels, len(models.AllStatuses))
	require.Equal(t, "Backlog", body.StatusLabels[0])
	require.Len(t, body.TimeValues, 4)
}

func TestStatusOverview_DateRange(t *testing.T) {
	db := setupDB(t)
	lead := seedUser(t, db, "luke", models.RoleLead)
	token := tokenFor(t, lead)

	old := seedRecord(t, db, "Old", "BK-1", models.StatusBacklog, nil, time.Time{})
	require.NoError(t, db.Model(&old).UpdateColumn("created_at", time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)).Error)
	recent := seedRecord(t, db, "Recent", "BK-2", models.StatusBacklog, nil, time.Time{})
	require.NoError(t, db.Model(&recent).UpdateColumn("created_at", time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)).Error)
	r := reportRouter()

	// End date is inclusive.
	w := doJSON(t, r, http.MethodGet,
		"/api/tracking/status-overview?start_date=2025-03-01&end_date=2025-03-05", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		StatusCounts map[string]int `json:"status_counts"`
	}
	decodeBody(t, w, &body)
	require.Equal(t, 1, body.StatusCounts["Backlog"])

	// One bound alone does not filter.
	w = doJSON(t, r, http.MethodGet,
		"/api/tracking/status-overview?start_date=2025-03-01", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &body)
	require.Equal(t, 2, body.StatusCounts["Backlog"])

	// Malformed dates are rejected.
	w = doJSON(t, r, http.MethodGet,
		"/api/tracking/status-overview?start_date=bad&end_date=2025-03-05", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReporting_DevelopersAreForbidden(t *testing.T) {
	db := setupDB(t)
	dev := seedUser(t, db, "bob", models.RoleDeveloper)
	token := tokenFor(t, dev)
	r := reportRouter()

	for _, path := range []string{
		"/api/tracking/status-overview",
		"/api/tracking/developer-stats",
		"/api/tracking/developer-records?developer=bob",
		"/api/workload",
	} {
		w := doJSON(t, r, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func TestDeveloperStats(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "alice", models.RoleAdmin)
	seedUser(t, db, "bob", models.RoleDeveloper)
	seedUser(t, db, "carol", models.RoleDeveloper)
	token := tokenFor(t, admin)

	seedRecord(t, db, "A", "BK-1", models.StatusInProgress, strPtr("bob"), time.Now().Add(-time.Hour))
	seedRecord(t, db, "B", "BK-2", models.StatusTodo, strPtr("bob"), time.Now().Add(-30*time.Minute))
	r := reportRouter()

	w := doJSON(t, r, http.MethodGet, "/api/tracking/developer-stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Developers []DeveloperStat `json:"developers"`
	}
	decodeBody(t, w, &body)
	require.Len(t, body.Developers, 2)
	require.Equal(t, "bob", body.Developers[0].Username)
	require.Equal(t, 2, body.Developers[0].TotalRecords)
	require.Equal(t, 1, body.Developers[0].RecordsByStatus[models.StatusInProgress])
	require.InDelta(t, 1.0, body.Developers[0].TotalInProgressTime, 0.05)
	require.InDelta(t, 0.5, body.Developers[0].TotalTodoTime, 0.05)
	require.Equal(t, "carol", body.Developers[1].Username)
	require.Zero(t, body.Developers[1].TotalRecords)
}

func TestDeveloperRecords(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "alice", models.RoleAdmin)
	token := tokenFor(t, admin)

	seedRecord(t, db, "A", "BK-1", models.StatusInProgress, strPtr("bob"), time.Now())
	seedRecord(t, db, "B", "BK-2", models.StatusTodo, strPtr("carol"), time.Now())
	r := reportRouter()

	w := doJSON(t, r, http.MethodGet, "/api/tracking/developer-records?developer=bob", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Records []RecordResponse `json:"records"`
	}
	decodeBody(t, w, &body)
	require.Len(t, body.Records, 1)
	require.Equal(t, "A", body.Records[0].Task)

	// The developer param is mandatory.
	w = doJSON(t, r, http.MethodGet, "/api/tracking/developer-records", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkload(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "alice", models.RoleAdmin)
	token := tokenFor(t, admin)

	// Moved today: counts. Unassigned: excluded. Untouched since last week:
	// excluded.
	seedRecord(t, db, "Moved", "BK-1", models.StatusInProgress, strPtr("bob"), time.Now().Add(-time.Hour))
	seedRecord(t, db, "Loose", "BK-2", models.StatusTodo, nil, time.Now().Add(-time.Hour))
	stale := seedRecord(t, db, "Stale", "BK-3", models.StatusOnHold, strPtr("bob"), time.Now().AddDate(0, 0, -7))
	require.NoError(t, db.Model(&stale).UpdateColumn("created_at", time.Now().AddDate(0, 0, -7)).Error)
	r := reportRouter()

	w := doJSON(t, r, http.MethodGet, "/api/workload", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Date       string                       `json:"date"`
		Workload   map[string]DeveloperWorkload `json:"workload"`
		Activities []map[string]any             `json:"activities"`
	}
	decodeBody(t, w, &body)
	require.Equal(t, time.Now().Format("2006-01-02"), body.Date)
	require.Len(t, body.Workload, 1)
	require.Equal(t, 1, body.Workload["bob"].RecordCount)
	require.InDelta(t, 1.0, body.Workload["bob"].InProgressTime, 0.05)
	require.Len(t, body.Activities, 1)
	require.Equal(t, "Moved", body.Activities[0]["task"])

	// Developer filter with no activity yields an empty day. Decoding into
	// a populated map would merge, so reset it first.
	w = doJSON(t, r, http.MethodGet, "/api/workload?developer=carol", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body.Workload = nil
	decodeBody(t, w, &body)
	require.Empty(t, body.Workload)
}
