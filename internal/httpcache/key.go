// Package httpcache implements the read-through response cache wrapped
// around the API: cached GETs short-circuit the handler, successful GET
// responses are captured and stored, and mutations sweep the affected
// cache family.
package httpcache

import (
	"net/http"
	"strings"
)

// Invalidation patterns per resource family. A mutation sweeps every
// cached read for its family, not just the mutated resource.
const (
	formsPattern       = "GET:/api/forms*"
	submissionsPattern = "GET:/api/submissions*"
)

// ReadKey derives the cache key for a read request:
// "<METHOD>:<path>" with "?<query>" appended verbatim when present.
// Query parameter order is not canonicalized, so reordered but logically
// identical queries cache separately.
func ReadKey(method, path, rawQuery string) string {
	key := method + ":" + path
	if rawQuery != "" {
		key += "?" + rawQuery
	}
	return key
}

// InvalidationPatterns returns the cache-key patterns a mutating request
// invalidates. A mutation matching neither resource family returns nil,
// which is not an error; nothing is swept.
func InvalidationPatterns(method, path string) []string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil
	}

	if strings.Contains(path, "/forms") || strings.Contains(path, "/create_form") {
		return []string{formsPattern}
	}
	if strings.Contains(path, "/submissions") {
		return []string{submissionsPattern}
	}
	return nil
}
