package middleware

import (
	"net/http"

	json "github.com/goccy/go-json"

	apierrors "github.com/sgratzl/lineup-if-fi/internal/errors"
)

// writeProblem answers with an RFC 7807 document outside of chi/render,
// for middleware that runs before a route is resolved.
func writeProblem(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	problem := apierrors.APIProblem(apiErr, r.URL.Path)
	if traceID := GetReqID(r.Context()); traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(apiErr.StatusCode)
	_ = json.NewEncoder(w).Encode(problem)
}
