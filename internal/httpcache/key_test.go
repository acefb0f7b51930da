package httpcache

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadKey(t *testing.T) {
	cases := []struct {
		method, path, query string
		want                string
	}{
		{"GET", "/api/forms", "", "GET:/api/forms"},
		{"GET", "/api/forms", "skip=0&limit=10", "GET:/api/forms?skip=0&limit=10"},
		{"GET", "/api/forms/1", "", "GET:/api/forms/1"},
		{"GET", "/api/submissions", "form_id=3", "GET:/api/submissions?form_id=3"},
		// Query order is preserved verbatim, producing distinct keys.
		{"GET", "/api/forms", "limit=10&skip=0", "GET:/api/forms?limit=10&skip=0"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ReadKey(tc.method, tc.path, tc.query))
	}
}

func TestInvalidationPatterns(t *testing.T) {
	cases := []struct {
		method, path string
		want         []string
	}{
		{http.MethodPost, "/api/forms", []string{"GET:/api/forms*"}},
		{http.MethodPut, "/api/forms/1", []string{"GET:/api/forms*"}},
		{http.MethodDelete, "/api/forms/1", []string{"GET:/api/forms*"}},
		{http.MethodPost, "/api/create_form", []string{"GET:/api/forms*"}},
		{http.MethodPost, "/api/submissions", []string{"GET:/api/submissions*"}},
		{http.MethodDelete, "/api/submissions/9", []string{"GET:/api/submissions*"}},
		// Reads never invalidate.
		{http.MethodGet, "/api/forms", nil},
		// Mutations outside both families invalidate nothing.
		{http.MethodPost, "/api/other", nil},
		{http.MethodDelete, "/api/unrelated/5", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InvalidationPatterns(tc.method, tc.path), "%s %s", tc.method, tc.path)
	}
}
