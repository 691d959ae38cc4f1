package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul4469/birdwatcher/internal/views"
)

func newStaticController() *StaticController {
	return NewStaticController(StaticTemplates{
		Home: views.MustParseFS("pages/home.gohtml"),
		Info: views.MustParseFS("pages/info.gohtml"),
	}, 10<<20)
}

func TestGetHome(t *testing.T) {
	rec := httptest.NewRecorder()
	newStaticController().GetHome(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"Birdwatcher.ai",
		"Upload Image",
		"Take Photo",
		`capture="environment"`,
		`data-endpoint="/api/identify"`,
		`data-max-bytes="10485760"`,
		"AI Identification",
		"Simple Interface",
		"Bird Database",
		"/static/app.js",
	} {
		assert.Contains(t, body, want)
	}
}

func TestGetInfo(t *testing.T) {
	c := newStaticController()

	for path, page := range InfoPages {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.GetInfo(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), page.Heading)
		})
	}

	rec := httptest.NewRecorder()
	c.GetInfo(rec, httptest.NewRequest(http.MethodGet, "/careers", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFooterLinksHavePages(t *testing.T) {
	for _, path := range []string{"/about", "/contact", "/privacy", "/terms", "/faq", "/blog"} {
		assert.Contains(t, InfoPages, path)
	}
}

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) error { return s.err }

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		db         HealthChecker
		configured bool
		wantStatus int
		want       healthResponse
	}{
		{"no database", nil, true, http.StatusOK, healthResponse{Status: "ok", Database: "disabled", Model: "configured"}},
		{"database ok", stubHealth{}, true, http.StatusOK, healthResponse{Status: "ok", Database: "ok", Model: "configured"}},
		{"database down", stubHealth{err: errors.New("dial tcp: refused")}, true, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "unreachable", Model: "configured"}},
		{"no api key", nil, false, http.StatusOK, healthResponse{Status: "ok", Database: "disabled", Model: "missing api key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthCheck(tt.db, tt.configured)(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got healthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
