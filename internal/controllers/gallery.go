package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	localcontext "github.com/rahul4469/birdwatcher/context"
	"github.com/rahul4469/birdwatcher/internal/models"
	"github.com/rahul4469/birdwatcher/internal/views"
)

// SightingReader is the read side of the gallery store.
type SightingReader interface {
	Recent(ctx context.Context, limit, offset int) ([]*models.Sighting, error)
	Count(ctx context.Context) (int, error)
	ByPublicID(ctx context.Context, publicID string) (*models.Sighting, error)
}

// GalleryController shows recently identified birds.
type GalleryController struct {
	sightings SightingReader
	templates GalleryTemplates
	pageSize  int
}

// GalleryTemplates holds the templates for the gallery pages.
type GalleryTemplates struct {
	List   *views.Template
	Detail *views.Template
	Error  *views.Template
}

// NewGalleryController creates a new GalleryController. sightings may be nil
// when no database is configured; the gallery then says it is disabled.
func NewGalleryController(sightings SightingReader, templates GalleryTemplates, pageSize int) *GalleryController {
	if pageSize <= 0 {
		pageSize = 24
	}
	return &GalleryController{
		sightings: sightings,
		templates: templates,
		pageSize:  pageSize,
	}
}

// GalleryData holds data for the gallery template.
type GalleryData struct {
	Enabled    bool
	Sightings  []*models.Sighting
	Total      int
	Page       int
	TotalPages int
}

// GetGallery renders one page of recent sightings.
func (c *GalleryController) GetGallery(w http.ResponseWriter, r *http.Request) {
	data := &views.TemplateData{
		Title: "Recent sightings",
		Data:  GalleryData{},
	}

	if c.sightings == nil {
		c.templates.List.ExecuteHTTP(w, r, data)
		return
	}

	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	total, err := c.sightings.Count(r.Context())
	if err != nil {
		c.renderError(w, r, http.StatusInternalServerError, "Failed to load sightings", err)
		return
	}

	sightings, err := c.sightings.Recent(r.Context(), c.pageSize, (page-1)*c.pageSize)
	if err != nil {
		c.renderError(w, r, http.StatusInternalServerError, "Failed to load sightings", err)
		return
	}

	data.Data = GalleryData{
		Enabled:    true,
		Sightings:  sightings,
		Total:      total,
		Page:       page,
		TotalPages: (total + c.pageSize - 1) / c.pageSize,
	}
	c.templates.List.ExecuteHTTP(w, r, data)
}

// GetSighting renders a single gallery entry.
func (c *GalleryController) GetSighting(w http.ResponseWriter, r *http.Request) {
	if c.sightings == nil {
		c.renderError(w, r, http.StatusNotFound, "Sighting not found", models.ErrDatabaseDisabled)
		return
	}

	sighting, err := c.sightings.ByPublicID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, models.ErrSightingNotFound), errors.Is(err, models.ErrInvalidSightingID):
		c.renderError(w, r, http.StatusNotFound, "Sighting not found", err)
		return
	case err != nil:
		c.renderError(w, r, http.StatusInternalServerError, "Failed to load sighting", err)
		return
	}

	c.templates.Detail.ExecuteHTTP(w, r, &views.TemplateData{
		Title: sighting.Bird.CommonName,
		Data:  sighting,
	})
}

func (c *GalleryController) renderError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	logger := localcontext.Logger(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error(message, "error", err)
	} else {
		logger.Debug(message, "error", err)
	}

	c.templates.Error.ExecuteHTTPWithStatus(w, r, status, &views.TemplateData{
		Title: http.StatusText(status),
		Data:  message,
	})
}
