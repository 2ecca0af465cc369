// Package v0 provides the REST API handlers for repository source access.
package v0

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sdkforge/repo-resolver/internal/logger"
	"github.com/sdkforge/repo-resolver/internal/packages"
	"github.com/sdkforge/repo-resolver/internal/service"
	"github.com/sdkforge/repo-resolver/internal/versions"
)

// SourcesResponse lists every configured source
type SourcesResponse struct {
	Sources []service.SourceInfo `json:"sources"`
}

// PackagesResponse lists the packages known for one source
type PackagesResponse struct {
	Packages []*packages.Package `json:"packages"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes defines the routes for the resolver API with dependency injection
type Routes struct {
	service *service.Resolver
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc *service.Resolver) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates a new router for the resolver API
func Router(svc *service.Resolver) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Get("/sources", routes.listSources)
	r.Get("/sources/{name}", routes.getSource)
	r.Get("/sources/{name}/packages", routes.getPackages)
	r.Post("/sources/{name}/load", routes.loadSource)

	return r
}

// listSources handles GET /v0/sources
func (rr *Routes) listSources(w http.ResponseWriter, r *http.Request) {
	rr.writeJSONResponse(w, SourcesResponse{Sources: rr.service.ListSources(r.Context())})
}

// getSource handles GET /v0/sources/{name}
func (rr *Routes) getSource(w http.ResponseWriter, r *http.Request) {
	info, err := rr.service.GetSource(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		rr.writeErrorResponse(w, "Source not found", http.StatusNotFound)
		return
	}

	rr.writeJSONResponse(w, info)
}

// getPackages handles GET /v0/sources/{name}/packages
func (rr *Routes) getPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := rr.service.GetPackages(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		rr.writeErrorResponse(w, "Source not found", http.StatusNotFound)
		return
	}

	if pkgs == nil {
		// Never loaded successfully; the list is unknown, not empty.
		pkgs = []*packages.Package{}
	}

	rr.writeJSONResponse(w, PackagesResponse{Packages: pkgs})
}

// loadSource handles POST /v0/sources/{name}/load
func (rr *Routes) loadSource(w http.ResponseWriter, r *http.Request) {
	out, err := rr.service.LoadSource(r.Context(), chi.URLParam(r, "name"), nil)
	switch {
	case errors.Is(err, service.ErrSourceNotFound):
		rr.writeErrorResponse(w, "Source not found", http.StatusNotFound)
		return
	case errors.Is(err, service.ErrLoadInProgress):
		rr.writeErrorResponse(w, "Load already in progress", http.StatusConflict)
		return
	case err != nil:
		logger.Errorf("Failed to load source: %v", err)
		rr.writeErrorResponse(w, "Failed to load source", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, out)
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(svc *service.Resolver) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessHandler handles readiness check requests
func readinessHandler(svc *service.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			errorResp := ErrorResponse{
				Error: "Resolver not ready: " + err.Error(),
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if encodeErr := json.NewEncoder(w).Encode(errorResp); encodeErr != nil {
				logger.Errorf("Failed to encode readiness error response: %v", encodeErr)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	response := map[string]string{
		"version":    info.Version,
		"commit":     info.Commit,
		"build_date": info.BuildDate,
		"go_version": info.GoVersion,
		"platform":   info.Platform,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode version info: %v", err)
	}
}

// writeJSONResponse writes a JSON response with the given data
func (*Routes) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{
		Error: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		logger.Errorf("Failed to encode error response: %v", err)
	}
}
