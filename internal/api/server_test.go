package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkforge/repo-resolver/internal/fetch"
	"github.com/sdkforge/repo-resolver/internal/packages"
	"github.com/sdkforge/repo-resolver/internal/service"
	"github.com/sdkforge/repo-resolver/internal/source"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	return nil, &fetch.Error{Kind: fetch.KindNotFound, URL: url, Message: "file not found"}
}

func newStubService(t *testing.T) *service.Resolver {
	t.Helper()

	svc, err := service.New(source.NewLoader(stubFetcher{}), []service.Definition{
		{URL: "http://example.com/repository.xml", Name: "main", Trust: packages.TrustInternal},
	})
	require.NoError(t, err)
	return svc
}

func TestNewServerRoutes(t *testing.T) {
	t.Parallel()

	router := NewServer(newStubService(t))

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/readiness", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/v0/sources", http.StatusOK},
		{http.MethodGet, "/v0/sources/main", http.StatusOK},
		{http.MethodGet, "/v0/sources/nope", http.StatusNotFound},
		{http.MethodGet, "/no-such-route", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestNewServerWithMiddlewares(t *testing.T) {
	t.Parallel()

	router := NewServer(newStubService(t),
		WithMiddlewares(middleware.RequestID, LoggingMiddleware),
	)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
