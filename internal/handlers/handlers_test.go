package handlers

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrape-portal/internal/auth"
	"scrape-portal/internal/batch"
	"scrape-portal/internal/jobs"
	"scrape-portal/internal/middleware"
	"scrape-portal/internal/models"
	"scrape-portal/internal/results"
	"scrape-portal/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeHistory struct {
	subs   []models.Submission
	userID uint
	err    error
}

func (f *fakeHistory) ListForUser(_ context.Context, userID uint, _ int) ([]models.Submission, error) {
	f.userID = userID
	return f.subs, f.err
}

type testEnv struct {
	router  *gin.Engine
	jwt     *auth.JWTManager
	batch   *batch.Memory
	store   *storage.Memory
	history *fakeHistory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	jwt, err := auth.NewJWTManager("secret", time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		jwt:     jwt,
		batch:   batch.NewMemory("proj", "us-central1"),
		store:   storage.NewMemory(),
		history: &fakeHistory{},
	}

	submitter := jobs.NewSubmitter(env.batch, jobs.DefaultPolicy("gcr.io/proj/scraper"), nil)
	lister := jobs.NewLister(env.batch)
	catalog := results.NewCatalog(env.store)

	r := gin.New()
	r.POST("/api/logout", Logout(Cookie{Domain: "localhost"}))
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwt))
	{
		protected.POST("/jobs", SubmitJob(submitter))
		protected.GET("/jobs", ListJobs(lister))
		protected.GET("/jobs/history", GetHistory(env.history))
		protected.GET("/results", ListResults(catalog))
		protected.GET("/results/*name", ViewResult(catalog))
		protected.GET("/download/*name", DownloadResult(catalog))
	}
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, target, email, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		token, err := e.jwt.GenerateToken(1, email)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSubmitJob(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/jobs", "alice@example.com", `{"input": "cats, dogs"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got jobs.Submitted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "alice_at_examplecom", got.Identity)
	assert.Equal(t, []string{"cats", "dogs"}, got.Keywords)

	spec, ok := env.batch.Spec(got.JobName)
	require.True(t, ok)
	assert.Equal(t, []string{"scraper.py", "alice_at_examplecom", "cats", "dogs"}, spec.Commands)
}

func TestSubmitJob_KeywordList(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/jobs", "alice@example.com", `{"keywords": [" cats ", "", "big fish"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []interface{}{"cats", "big fish"}, decode(t, w)["keywords"])
}

func TestSubmitJob_EmptyInput(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/jobs", "alice@example.com", `{"input": " , "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.batch.Creates)
}

func TestSubmitJob_BatchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.batch.CreateErr = errors.New("permission denied")

	w := env.do(t, http.MethodPost, "/api/jobs", "alice@example.com", `{"input": "cats"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	body := decode(t, w)
	assert.Equal(t, "Failed to submit job", body["error"])
	assert.Contains(t, body["detail"], "permission denied")
	assert.NotEmpty(t, body["hint"])
}

func TestSubmitJob_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/jobs", "", `{"input": "cats"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, env.batch.Creates)
}

func TestListJobs(t *testing.T) {
	env := newTestEnv(t)
	env.batch.Add(batch.Job{Name: "projects/proj/locations/us-central1/jobs/a", Labels: map[string]string{"user": "alice_at_examplecom"}, State: batch.StateRunning})
	env.batch.Add(batch.Job{Name: "projects/proj/locations/us-central1/jobs/b", Labels: map[string]string{"user": "bob_at_examplecom"}, State: batch.StateRunning})
	env.batch.Add(batch.Job{Name: "projects/proj/locations/us-central1/jobs/c", Labels: map[string]string{"user": "alice_at_examplecom"}, State: batch.StateSucceeded})
	env.batch.Add(batch.Job{Name: "projects/proj/locations/us-central1/jobs/d", Labels: map[string]string{"user": "alice_at_examplecom"}, State: batch.StateQueued})

	w := env.do(t, http.MethodGet, "/api/jobs?state=active", "alice@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["jobs"].([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].(map[string]interface{})["id"])
	assert.Equal(t, "d", list[1].(map[string]interface{})["id"])

	w = env.do(t, http.MethodGet, "/api/jobs?state=completed", "bob@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["jobs"])

	w = env.do(t, http.MethodGet, "/api/jobs?state=RUNNING", "alice@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	list = decode(t, w)["jobs"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].(map[string]interface{})["id"])

	w = env.do(t, http.MethodGet, "/api/jobs?state=EXPLODED", "alice@example.com", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.batch.ListErr = errors.New("unavailable")
	w = env.do(t, http.MethodGet, "/api/jobs", "alice@example.com", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetHistory(t *testing.T) {
	env := newTestEnv(t)
	env.history.subs = []models.Submission{{JobID: "scraper-job-cats"}}

	w := env.do(t, http.MethodGet, "/api/jobs/history", "alice@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(1), env.history.userID)
	assert.Len(t, decode(t, w)["submissions"], 1)

	env.history.err = errors.New("db down")
	w = env.do(t, http.MethodGet, "/api/jobs/history", "alice@example.com", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestResults(t *testing.T) {
	env := newTestEnv(t)
	csv := []byte("title,url\nfirst,http://a\nsecond,http://b\n")
	env.store.Put("alice_at_examplecom/cats_2025-08-13T14:32:45.csv", csv, time.Time{})
	env.store.Put("alice_at_examplecom/cats_2025-08-13T09:00:00.csv", csv, time.Time{})
	env.store.Put("bob_at_examplecom/secret_2025-08-13T09:00:00.csv", []byte("x"), time.Time{})

	t.Run("list", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/results", "alice@example.com", "")
		require.Equal(t, http.StatusOK, w.Code)
		list := decode(t, w)["results"].([]interface{})
		require.Len(t, list, 2)
		assert.Equal(t, "cats_2025-08-13T14:32:45.csv", list[0].(map[string]interface{})["name"])
	})

	t.Run("preview", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/results/cats_2025-08-13T09:00:00.csv?rows=1", "alice@example.com", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, []interface{}{"title", "url"}, body["header"])
		assert.Len(t, body["rows"], 1)
		assert.Equal(t, true, body["truncated"])
	})

	t.Run("download", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/download/cats_2025-08-13T09:00:00.csv", "alice@example.com", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, csv, w.Body.Bytes())
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="cats_2025-08-13T09:00:00.csv"`, w.Header().Get("Content-Disposition"))
	})

	t.Run("download non-ascii name", func(t *testing.T) {
		env.store.Put("alice_at_examplecom/café_2025-08-13T09:00:00.csv", csv, time.Time{})
		w := env.do(t, http.MethodGet, "/api/download/caf%C3%A9_2025-08-13T09:00:00.csv", "alice@example.com", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		disposition, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
		require.NoError(t, err)
		assert.Equal(t, "attachment", disposition)
		assert.Equal(t, "café_2025-08-13T09:00:00.csv", params["filename"])
		assert.Contains(t, w.Header().Get("Content-Disposition"), "filename*=utf-8''caf%C3%A9_2025-08-13T09%3A00%3A00.csv")
	})

	t.Run("other users files are unreachable", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/download/secret_2025-08-13T09:00:00.csv", "alice@example.com", "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, http.MethodGet, "/api/download/../bob_at_examplecom/secret_2025-08-13T09:00:00.csv", "alice@example.com", "")
		assert.NotEqual(t, http.StatusOK, w.Code)
	})

	t.Run("bad rows", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/results/cats_2025-08-13T09:00:00.csv?rows=zero", "alice@example.com", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		env.store.ListErr = errors.New("timeout")
		defer func() { env.store.ListErr = nil }()
		w := env.do(t, http.MethodGet, "/api/results", "alice@example.com", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/logout", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "auth_token=")
}
