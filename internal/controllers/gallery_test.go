package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/rahul4469/birdwatcher/internal/models"
	"github.com/rahul4469/birdwatcher/internal/views"
)

type memorySightings struct {
	items []*models.Sighting
	err   error

	lastLimit, lastOffset int
}

func (m *memorySightings) Recent(_ context.Context, limit, offset int) ([]*models.Sighting, error) {
	m.lastLimit, m.lastOffset = limit, offset
	if m.err != nil {
		return nil, m.err
	}
	if offset >= len(m.items) {
		return nil, nil
	}
	end := min(offset+limit, len(m.items))
	return m.items[offset:end], nil
}

func (m *memorySightings) Count(context.Context) (int, error) {
	return len(m.items), m.err
}

func (m *memorySightings) ByPublicID(_ context.Context, id string) (*models.Sighting, error) {
	if m.err != nil {
		return nil, m.err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, models.ErrInvalidSightingID
	}
	for _, s := range m.items {
		if s.PublicID == parsed {
			return s, nil
		}
	}
	return nil, models.ErrSightingNotFound
}

func sighting(name, scientific string) *models.Sighting {
	return &models.Sighting{
		PublicID:  uuid.New(),
		MIMEType:  "image/jpeg",
		Bird:      models.BirdIdentification{CommonName: name, ScientificName: scientific, Habitat: "Wetlands"},
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
}

func newGalleryController(store SightingReader, pageSize int) *GalleryController {
	return NewGalleryController(store, GalleryTemplates{
		List:   views.MustParseFS("pages/gallery.gohtml"),
		Detail: views.MustParseFS("pages/sighting.gohtml"),
		Error:  views.MustParseFS("pages/error.gohtml"),
	}, pageSize)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetGallery_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	newGalleryController(nil, 10).GetGallery(rec, httptest.NewRequest(http.MethodGet, "/gallery", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not enabled")
}

func TestGetGallery_Empty(t *testing.T) {
	rec := httptest.NewRecorder()
	newGalleryController(&memorySightings{}, 10).GetGallery(rec, httptest.NewRequest(http.MethodGet, "/gallery", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No birds identified yet")
}

func TestGetGallery_Paging(t *testing.T) {
	store := &memorySightings{items: []*models.Sighting{
		sighting("Mallard", "Anas platyrhynchos"),
		sighting("Grey Heron", "Ardea cinerea"),
		sighting("Mute Swan", "Cygnus olor"),
	}}
	c := newGalleryController(store, 2)

	rec := httptest.NewRecorder()
	c.GetGallery(rec, httptest.NewRequest(http.MethodGet, "/gallery", http.NoBody))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "Mallard")
	assert.Contains(t, body, "Grey Heron")
	assert.NotContains(t, body, "Mute Swan")
	assert.Contains(t, body, "Page 1 of 2")
	assert.Contains(t, body, "/gallery/"+store.items[0].PublicID.String())
	assert.Contains(t, body, "2 hours ago")

	rec = httptest.NewRecorder()
	c.GetGallery(rec, httptest.NewRequest(http.MethodGet, "/gallery?page=2", http.NoBody))

	assert.Equal(t, 2, store.lastOffset)
	assert.Contains(t, rec.Body.String(), "Mute Swan")
	assert.Contains(t, rec.Body.String(), "Page 2 of 2")

	rec = httptest.NewRecorder()
	c.GetGallery(rec, httptest.NewRequest(http.MethodGet, "/gallery?page=-4", http.NoBody))
	assert.Equal(t, 0, store.lastOffset)
}

func TestGetGallery_StoreError(t *testing.T) {
	rec := httptest.NewRecorder()
	newGalleryController(&memorySightings{err: errors.New("timeout")}, 10).GetGallery(rec, httptest.NewRequest(http.MethodGet, "/gallery", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load sightings")
}

func TestGetSighting(t *testing.T) {
	heron := sighting("Grey Heron", "Ardea cinerea")
	heron.SpeciesImageURL = "https://upload.wikimedia.org/heron.jpg"
	heron.SpeciesPageURL = "https://en.wikipedia.org/wiki/Grey_heron"
	c := newGalleryController(&memorySightings{items: []*models.Sighting{heron}}, 10)

	rec := httptest.NewRecorder()
	c.GetSighting(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/gallery/x", http.NoBody), "id", heron.PublicID.String()))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Grey Heron")
	assert.Contains(t, body, "Ardea cinerea")
	assert.Contains(t, body, "Wetlands")
	assert.Contains(t, body, "https://upload.wikimedia.org/heron.jpg")
}

func TestGetSighting_NotFound(t *testing.T) {
	for name, id := range map[string]string{
		"unknown": uuid.NewString(),
		"invalid": "not-a-uuid",
	} {
		t.Run(name, func(t *testing.T) {
			c := newGalleryController(&memorySightings{}, 10)

			rec := httptest.NewRecorder()
			c.GetSighting(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/gallery/"+id, http.NoBody), "id", id))

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), "Sighting not found")
		})
	}

	rec := httptest.NewRecorder()
	newGalleryController(nil, 10).GetSighting(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/gallery/x", http.NoBody), "id", "x"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
