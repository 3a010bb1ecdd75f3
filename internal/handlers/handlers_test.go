package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"book-production-tracker/internal/auth"
	"book-production-tracker/internal/database"
	"book-production-tracker/internal/middleware"
	"book-production-tracker/internal/models"
	"book-production-tracker/internal/testutil"
)

// setupDB swaps the package-level DB for a fresh in-memory database.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	user := models.User{
		ID:       "user-" + username,
		Username: username,
		Password: "x", // hashed passwords only matter for login tests
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(user.ID, user.Username, user.Role)
	require.NoError(t, err)
	return token
}

// seedRecord inserts a record already sitting in the given status since
// enteredAt.
func seedRecord(t *testing.T, db *gorm.DB, task, bookID string, status models.RecordStatus, assignee *string, enteredAt time.Time) models.Record {
	t.Helper()
	rec := models.Record{
		Task:              task,
		BookID:            bookID,
		Status:            status,
		DeveloperAssignee: assignee,
		CreatedBy:         "admin",
		StatusChangedAt:   enteredAt,
	}
	require.NoError(t, db.Create(&rec).Error)
	return rec
}

// recordRouter wires the record endpoints behind JWT auth, like the real
// route table does.
func recordRouter() *gin.Engine {
	r := gin.New()
	protected := r.Group("")
	protected.Use(middleware.JWTAuthMiddleware())
	protected.GET("/records", ListRecords)
	protected.GET("/records/:id", GetRecord)
	protected.POST("/records/create", CreateRecord)
	protected.POST("/records/:id/status", UpdateRecordStatus)
	protected.POST("/records/:id/update", UpdateRecord)
	protected.POST("/records/:id/delete", DeleteRecord)
	protected.GET("/api/developers", GetDevelopers)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func strPtr(s string) *string { return &s }

func fetchRecord(t *testing.T, db *gorm.DB, id uint) models.Record {
	t.Helper()
	var rec models.Record
	require.NoError(t, db.First(&rec, id).Error)
	return rec
}

func listPath(page int, extra string) string {
	p := fmt.Sprintf("/records?page=%d&limit=20", page)
	if extra != "" {
		p += "&" + extra
	}
	return p
}
