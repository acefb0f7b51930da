package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynaform/internal/cache"
	"dynaform/internal/store"
)

const signupForm = `{
	"name": "signup",
	"description": "signup form",
	"schema_definition": {
		"name": {"type": "string", "required": true, "minLength": 2},
		"email": {"type": "email", "required": true},
		"age": {"type": "number", "min": 18}
	}
}`

func newTestServer(t *testing.T, cacheStore cache.Store) *Server {
	t.Helper()
	st, err := store.NewSQLite(store.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, cacheStore, &Config{})
}

func doJSON(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestCreateForm(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodPost, "/api/forms", signupForm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "signup", body["name"])
	assert.NotZero(t, body["id"])

	t.Run("DuplicateName", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/forms", signupForm)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Form 'signup' already exists", decode(t, rec)["detail"])
	})

	t.Run("EmptySchema", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/forms", `{"name": "empty", "schema_definition": {}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Schema cannot be empty", decode(t, rec)["detail"])
	})

	t.Run("ShortName", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/forms", `{"name": "ab", "schema_definition": {"f": {"type": "string"}}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateForm_UserDetailsValidated(t *testing.T) {
	srv := newTestServer(t, nil)

	body := `{
		"name": "owners",
		"schema_definition": {
			"name": {"type": "string", "required": true},
			"email": {"type": "email"}
		},
		"user_details": {"email": "not-an-email"}
	}`
	rec := doJSON(srv, http.MethodPost, "/api/forms", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode(t, rec)
	assert.Equal(t, "Validation failed", resp["message"])
	assert.Equal(t, []any{
		"name is required",
		"email must be a valid email address",
	}, resp["errors"])
}

func TestCreateForm_DuplicateOwnerEmail(t *testing.T) {
	srv := newTestServer(t, nil)

	first := `{
		"name": "form-one",
		"schema_definition": {"email": {"type": "email"}},
		"user_details": {"email": "owner@example.com"}
	}`
	rec := doJSON(srv, http.MethodPost, "/api/forms", first)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	second := `{
		"name": "form-two",
		"schema_definition": {"email": {"type": "email"}},
		"user_details": {"email": "OWNER@example.com"}
	}`
	rec = doJSON(srv, http.MethodPost, "/api/forms", second)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "already exists in system")
}

func TestGetForm(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodPost, "/api/forms", signupForm)
	require.Equal(t, http.StatusOK, rec.Code)
	id := int64(decode(t, rec)["id"].(float64))

	rec = doJSON(srv, http.MethodGet, "/api/forms/"+itoa(id), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "signup", decode(t, rec)["name"])

	t.Run("NotFound", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/forms/9999", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Form 9999 not found", decode(t, rec)["detail"])
	})

	t.Run("BadID", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/forms/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateForm(t *testing.T) {
	srv := newTestServer(t, nil)

	doJSON(srv, http.MethodPost, "/api/forms", signupForm)
	rec := doJSON(srv, http.MethodPost, "/api/forms", `{"name": "other", "schema_definition": {"f": {"type": "string"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	otherID := int64(decode(t, rec)["id"].(float64))

	// Renaming onto an existing name conflicts.
	rec = doJSON(srv, http.MethodPut, "/api/forms/"+itoa(otherID),
		`{"name": "signup", "schema_definition": {"f": {"type": "string"}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Form name 'signup' already exists", decode(t, rec)["detail"])

	// Keeping the name while changing other fields is fine.
	rec = doJSON(srv, http.MethodPut, "/api/forms/"+itoa(otherID),
		`{"name": "other", "description": "fresh", "schema_definition": {"g": {"type": "number"}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "fresh", decode(t, rec)["description"])

	t.Run("NotFound", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPut, "/api/forms/9999",
			`{"name": "ghost", "schema_definition": {"f": {"type": "string"}}}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteForm(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodPost, "/api/forms", signupForm)
	id := int64(decode(t, rec)["id"].(float64))

	rec = doJSON(srv, http.MethodDelete, "/api/forms/"+itoa(id), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Form "+itoa(id)+" deleted", decode(t, rec)["message"])

	rec = doJSON(srv, http.MethodDelete, "/api/forms/"+itoa(id), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListForms(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, name := range []string{"alpha", "alphabet", "beta"} {
		rec := doJSON(srv, http.MethodPost, "/api/forms",
			`{"name": "`+name+`", "schema_definition": {"f": {"type": "string"}}}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(srv, http.MethodGet, "/api/forms?search=alpha&sort=name&order=asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, "prefix", body["search_mode"])
	assert.Equal(t, "name", body["sort"])
	assert.Len(t, body["forms"], 2)

	rec = doJSON(srv, http.MethodGet, "/api/forms", "")
	body = decode(t, rec)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, "all", body["search_mode"])

	rec = doJSON(srv, http.MethodGet, "/api/forms/stats/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["total_forms"])
}

func createSignupForm(t *testing.T, srv *Server) int64 {
	t.Helper()
	rec := doJSON(srv, http.MethodPost, "/api/forms", signupForm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return int64(decode(t, rec)["id"].(float64))
}

func TestCreateSubmission(t *testing.T) {
	srv := newTestServer(t, nil)
	formID := createSignupForm(t, srv)

	valid := `{"form_schema_id": ` + itoa(formID) + `, "data": {"name": "Alice", "email": "alice@example.com", "age": "30"}}`
	rec := doJSON(srv, http.MethodPost, "/api/submissions", valid)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "signup", body["form_name"])
	assert.Equal(t, "alice@example.com", body["user_email"])
	assert.Equal(t, false, body["is_duplicate"])
	assert.Equal(t, "valid", body["validation_status"])

	t.Run("DuplicateFlaggedNotRejected", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/submissions", valid)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["is_duplicate"])
	})

	t.Run("InvalidData", func(t *testing.T) {
		invalid := `{"form_schema_id": ` + itoa(formID) + `, "data": {"email": "bad", "age": "15"}}`
		rec := doJSON(srv, http.MethodPost, "/api/submissions", invalid)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decode(t, rec)
		assert.Equal(t, "Validation failed", resp["message"])
		assert.Equal(t, []any{
			"name is required",
			"email must be a valid email address",
			"age must be at least 18",
		}, resp["errors"])
	})

	t.Run("UnknownForm", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/submissions", `{"form_schema_id": 9999, "data": {}}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Form not found", decode(t, rec)["detail"])
	})
}

func TestListSubmissions(t *testing.T) {
	srv := newTestServer(t, nil)
	formID := createSignupForm(t, srv)

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		body := `{"form_schema_id": ` + itoa(formID) + `, "data": {"name": "N", "email": "` + email + `"}}`
		rec := doJSON(srv, http.MethodPost, "/api/submissions", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	t.Run("FormIDRequired", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/submissions", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "form_id required", decode(t, rec)["detail"])
	})

	t.Run("PaginationEnvelope", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/submissions?form_id="+itoa(formID)+"&limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, float64(3), body["total"])
		assert.Equal(t, float64(1), body["page"])
		assert.Equal(t, float64(1), body["total_pages"])
		assert.Equal(t, false, body["has_next"])
		assert.Equal(t, false, body["has_prev"])
		assert.Equal(t, "signup", body["form_name"])
		assert.Len(t, body["submissions"], 3)
	})

	t.Run("EmailFilter", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/submissions?form_id="+itoa(formID)+"&email=b%40x", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), decode(t, rec)["total"])
	})

	t.Run("UnknownForm", func(t *testing.T) {
		rec := doJSON(srv, http.MethodGet, "/api/submissions?form_id=9999", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubmissionAnalytics(t *testing.T) {
	srv := newTestServer(t, nil)
	formID := createSignupForm(t, srv)

	body := `{"form_schema_id": ` + itoa(formID) + `, "data": {"name": "N", "email": "a@x.com"}}`
	doJSON(srv, http.MethodPost, "/api/submissions", body)
	doJSON(srv, http.MethodPost, "/api/submissions", body)

	rec := doJSON(srv, http.MethodGet, "/api/submissions/analytics/"+itoa(formID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.Equal(t, float64(2), stats["total_submissions"])
	assert.Equal(t, float64(1), stats["duplicate_submissions"])
	assert.Equal(t, float64(1), stats["unique_submissions"])
	assert.Equal(t, float64(50), stats["duplicate_percentage"])

	t.Run("EmptyForm", func(t *testing.T) {
		rec := doJSON(srv, http.MethodPost, "/api/forms", `{"name": "empty-form", "schema_definition": {"f": {"type": "string"}}}`)
		id := int64(decode(t, rec)["id"].(float64))

		rec = doJSON(srv, http.MethodGet, "/api/submissions/analytics/"+itoa(id), "")
		require.Equal(t, http.StatusOK, rec.Code)
		stats := decode(t, rec)
		assert.Equal(t, float64(0), stats["total_submissions"])
		assert.Equal(t, float64(0), stats["duplicate_percentage"])
	})
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = doJSON(srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestServerWithCache exercises the full read-through path: cached list
// responses are served without re-querying and mutations invalidate them.
func TestServerWithCache(t *testing.T) {
	mem, err := cache.NewMemory(128)
	require.NoError(t, err)
	srv := newTestServer(t, mem)

	createSignupForm(t, srv)
	time.Sleep(60 * time.Millisecond) // let the post-mutation sweep settle

	first := doJSON(srv, http.MethodGet, "/api/forms", "")
	require.Equal(t, http.StatusOK, first.Code)
	time.Sleep(60 * time.Millisecond) // otter writes are async

	second := doJSON(srv, http.MethodGet, "/api/forms", "")
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes(), "cached response must be byte-identical")

	// A mutation sweeps the forms family; the next read sees fresh data.
	rec := doJSON(srv, http.MethodPost, "/api/forms", `{"name": "second-form", "schema_definition": {"f": {"type": "string"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	third := doJSON(srv, http.MethodGet, "/api/forms", "")
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, float64(2), decode(t, third)["total"], "stale cached list must not be served after a mutation")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
