package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-bugs/internal/directory"
	"github.com/celerix-dev/celerix-bugs/internal/engine"
	"github.com/celerix-dev/celerix-bugs/internal/lifecycle"
	"github.com/celerix-dev/celerix-bugs/pkg/schema"
	"github.com/celerix-dev/celerix-bugs/pkg/sdk"
)

const (
	admin  = "admin@company.com"
	dev    = "dev@company.com"
	tester = "tester@company.com"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tracker := sdk.NewLocal(lifecycle.New(engine.NewMemStore(nil, nil)), directory.Demo(), nil)
	h := &Handler{Tracker: tracker}
	r := gin.New()
	h.Register(r.Group("/api"))
	return r
}

func do(r *gin.Engine, method, path, actor string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createBug(t *testing.T, r *gin.Engine) schema.BugReport {
	t.Helper()
	w := do(r, "POST", "/api/bugs", tester, schema.NewBugReport{
		Title: "Login fails", Description: "500 on submit", Severity: schema.SeverityHigh, Project: "web",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var bug schema.BugReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bug))
	return bug
}

func TestCreateAndGetBug(t *testing.T) {
	r := setupTestRouter()
	bug := createBug(t, r)
	assert.Equal(t, schema.StatusOpen, bug.Status)
	assert.Equal(t, tester, bug.ReportedBy)

	w := do(r, "GET", "/api/bugs/"+bug.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got schema.BugReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, bug.ID, got.ID)
}

func TestErrorStatusCodes(t *testing.T) {
	r := setupTestRouter()
	bug := createBug(t, r)

	tests := []struct {
		name   string
		method string
		path   string
		actor  string
		body   any
		want   int
	}{
		{"developer cannot create", "POST", "/api/bugs", dev, schema.NewBugReport{Title: "a", Description: "b", Project: "c"}, http.StatusForbidden},
		{"missing title", "POST", "/api/bugs", tester, schema.NewBugReport{Description: "b", Project: "c"}, http.StatusBadRequest},
		{"missing actor", "POST", "/api/bugs", "", schema.NewBugReport{Title: "a", Description: "b", Project: "c"}, http.StatusUnauthorized},
		{"unknown actor", "POST", "/api/bugs", "ghost@company.com", schema.NewBugReport{Title: "a", Description: "b", Project: "c"}, http.StatusUnauthorized},
		{"unknown bug", "GET", "/api/bugs/nope", "", nil, http.StatusNotFound},
		{"tester cannot change status", "POST", "/api/bugs/" + bug.ID + "/status", tester, gin.H{"status": "closed"}, http.StatusForbidden},
		{"invalid status", "POST", "/api/bugs/" + bug.ID + "/status", dev, gin.H{"status": "done"}, http.StatusBadRequest},
		{"missing status", "POST", "/api/bugs/" + bug.ID + "/status", dev, gin.H{}, http.StatusBadRequest},
		{"tester cannot assign", "POST", "/api/bugs/" + bug.ID + "/assign", tester, nil, http.StatusForbidden},
		{"developer cannot view analytics", "GET", "/api/analytics", dev, nil, http.StatusForbidden},
		{"bad list filter", "GET", "/api/bugs?severity=urgent", "", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.actor, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAssignSelfConflict(t *testing.T) {
	r := setupTestRouter()
	bug := createBug(t, r)

	w := do(r, "POST", "/api/bugs/"+bug.ID+"/assign", dev, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var claimed schema.BugReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claimed))
	assert.Equal(t, schema.StatusInProgress, claimed.Status)
	who, _ := claimed.Assignee()
	assert.Equal(t, dev, who)

	w = do(r, "POST", "/api/bugs/"+bug.ID+"/assign", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, schema.CodeAlreadyAssigned, body["code"])
}

func TestChangeStatusAndAudit(t *testing.T) {
	r := setupTestRouter()
	bug := createBug(t, r)

	w := do(r, "POST", "/api/bugs/"+bug.ID+"/status", dev, gin.H{"status": "resolved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, "GET", "/api/bugs/"+bug.ID+"/audit", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []schema.AuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, tester, entries[0].Actor)
	assert.Equal(t, dev, entries[1].Actor)
}

func TestListBugsFilters(t *testing.T) {
	r := setupTestRouter()

	w := do(r, "GET", "/api/bugs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	bug := createBug(t, r)
	do(r, "POST", "/api/bugs/"+bug.ID+"/assign", dev, nil)
	createBug(t, r)

	var bugs []schema.BugReport
	w = do(r, "GET", "/api/bugs?status=in-progress", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bugs))
	require.Len(t, bugs, 1)
	assert.Equal(t, bug.ID, bugs[0].ID)

	w = do(r, "GET", "/api/bugs?project=web&severity=high", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bugs))
	assert.Len(t, bugs, 2)
}

func TestAnalyticsAndSummary(t *testing.T) {
	r := setupTestRouter()
	bug := createBug(t, r)
	createBug(t, r)
	do(r, "POST", "/api/bugs/"+bug.ID+"/status", admin, gin.H{"status": "closed"})

	w := do(r, "GET", "/api/analytics", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report schema.AnalyticsReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Status[schema.StatusClosed].Count)
	assert.InDelta(t, 50.0, report.Status[schema.StatusOpen].Percentage, 0.001)

	w = do(r, "GET", "/api/summary", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary schema.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, schema.Summary{Open: 1, Closed: 1, Total: 2}, summary)
}

func TestWhoAmI(t *testing.T) {
	r := setupTestRouter()

	w := do(r, "GET", "/api/me", tester, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session schema.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, schema.RoleTester, session.Identity.Role)
	assert.Equal(t, []string{"create_bug"}, session.Capabilities)
}
