package services

import (
	"context"
	"errors"
	"fmt"

	localcontext "github.com/rahul4469/birdwatcher/context"
	"github.com/rahul4469/birdwatcher/internal/models"
)

// ErrNotRecordable marks identifications that never go to the gallery.
var ErrNotRecordable = errors.New("identification is not recordable")

// SightingStore persists gallery entries.
type SightingStore interface {
	Create(ctx context.Context, sighting *models.Sighting) (*models.Sighting, error)
}

// SightingRecorder turns successful identifications into gallery entries.
type SightingRecorder struct {
	store  SightingStore
	images SpeciesImageProvider
}

// NewSightingRecorder creates a recorder. images may be nil.
func NewSightingRecorder(store SightingStore, images SpeciesImageProvider) *SightingRecorder {
	return &SightingRecorder{
		store:  store,
		images: images,
	}
}

// Record stores id for img. Placeholder and unnamed results are skipped
// with ErrNotRecordable. A failed species image lookup does not stop the
// sighting from being stored.
func (r *SightingRecorder) Record(ctx context.Context, img Image, id *Identification) (*models.Sighting, error) {
	if id == nil || id.Fallback || id.Bird.IsUnidentified() {
		return nil, ErrNotRecordable
	}

	fingerprint, err := img.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("record sighting: %w", err)
	}

	sighting := &models.Sighting{
		Fingerprint: fingerprint,
		MIMEType:    img.MIMEType,
		Bird:        id.Bird,
	}

	if r.images != nil {
		speciesImg, err := r.images.Lookup(ctx, id.Bird)
		switch {
		case err == nil:
			sighting.SpeciesImageURL = speciesImg.URL
			sighting.SpeciesPageURL = speciesImg.PageURL
			sighting.SpeciesImageTitle = speciesImg.Title
		case errors.Is(err, ErrSpeciesImageNotFound):
		default:
			localcontext.Logger(ctx).Warn("Species image lookup failed",
				"common_name", id.Bird.CommonName,
				"error", err)
		}
	}

	saved, err := r.store.Create(ctx, sighting)
	if err != nil {
		return nil, fmt.Errorf("record sighting: %w", err)
	}
	return saved, nil
}
