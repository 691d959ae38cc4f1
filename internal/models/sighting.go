package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sighting is a gallery entry: one successful identification of an
// uploaded photo. The photo itself is never stored, only its fingerprint.
type Sighting struct {
	ID          int64     `json:"-"`
	PublicID    uuid.UUID `json:"id"`
	Fingerprint string    `json:"-"`
	MIMEType    string    `json:"mimeType"`

	Bird BirdIdentification `json:"bird"`

	// Reference picture of the species, empty when none was found
	SpeciesImageURL   string `json:"speciesImageUrl,omitempty"`
	SpeciesPageURL    string `json:"speciesPageUrl,omitempty"`
	SpeciesImageTitle string `json:"speciesImageTitle,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// HasSpeciesImage reports whether a reference picture is attached.
func (s *Sighting) HasSpeciesImage() bool {
	return s.SpeciesImageURL != ""
}

type SightingService struct {
	pool *pgxpool.Pool
}

func NewSightingService(pool *pgxpool.Pool) *SightingService {
	return &SightingService{pool: pool}
}

const sightingColumns = `
	id, public_id, fingerprint, mime_type,
	common_name, scientific_name, habitat, behavior, migration_pattern,
	diet, conservation_status, interesting_facts,
	species_image_url, species_page_url, species_image_title, created_at`

// Create stores a sighting. A photo that was already recorded is not
// stored twice: the existing entry is returned instead.
func (s *SightingService) Create(ctx context.Context, sighting *Sighting) (*Sighting, error) {
	if strings.TrimSpace(sighting.Fingerprint) == "" {
		return nil, ErrEmptyFingerprint
	}
	if sighting.PublicID == uuid.Nil {
		sighting.PublicID = uuid.New()
	}

	query := `
		INSERT INTO sightings (
			public_id, fingerprint, mime_type,
			common_name, scientific_name, habitat, behavior, migration_pattern,
			diet, conservation_status, interesting_facts,
			species_image_url, species_page_url, species_image_title
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + sightingColumns

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	b := sighting.Bird
	row := s.pool.QueryRow(ctx, query,
		sighting.PublicID,
		sighting.Fingerprint,
		sighting.MIMEType,
		b.CommonName,
		b.ScientificName,
		b.Habitat,
		b.Behavior,
		b.MigrationPattern,
		b.Diet,
		b.ConservationStatus,
		b.InterestingFacts,
		sighting.SpeciesImageURL,
		sighting.SpeciesPageURL,
		sighting.SpeciesImageTitle,
	)

	saved, err := scanSighting(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return s.ByFingerprint(ctx, sighting.Fingerprint)
		}
		return nil, fmt.Errorf("failed to create sighting: %w", err)
	}

	return saved, nil
}

// ByFingerprint returns the sighting recorded for a photo fingerprint.
func (s *SightingService) ByFingerprint(ctx context.Context, fingerprint string) (*Sighting, error) {
	query := `SELECT ` + sightingColumns + ` FROM sightings WHERE fingerprint = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	sighting, err := scanSighting(s.pool.QueryRow(ctx, query, fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSightingNotFound
		}
		return nil, fmt.Errorf("failed to get sighting: %w", err)
	}
	return sighting, nil
}

// ByPublicID returns the sighting with the given public id.
func (s *SightingService) ByPublicID(ctx context.Context, publicID string) (*Sighting, error) {
	id, err := uuid.Parse(publicID)
	if err != nil {
		return nil, ErrInvalidSightingID
	}

	query := `SELECT ` + sightingColumns + ` FROM sightings WHERE public_id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	sighting, err := scanSighting(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSightingNotFound
		}
		return nil, fmt.Errorf("failed to get sighting: %w", err)
	}
	return sighting, nil
}

// Recent returns the newest sightings first.
func (s *SightingService) Recent(ctx context.Context, limit, offset int) ([]*Sighting, error) {
	if limit <= 0 {
		limit = 24
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + sightingColumns + `
		FROM sightings
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sightings: %w", err)
	}
	defer rows.Close()

	var sightings []*Sighting
	for rows.Next() {
		sighting, err := scanSighting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		sightings = append(sightings, sighting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sightings: %w", err)
	}

	return sightings, nil
}

// Count returns the number of stored sightings.
func (s *SightingService) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sightings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sightings: %w", err)
	}
	return count, nil
}

func scanSighting(row pgx.Row) (*Sighting, error) {
	s := &Sighting{}
	err := row.Scan(
		&s.ID,
		&s.PublicID,
		&s.Fingerprint,
		&s.MIMEType,
		&s.Bird.CommonName,
		&s.Bird.ScientificName,
		&s.Bird.Habitat,
		&s.Bird.Behavior,
		&s.Bird.MigrationPattern,
		&s.Bird.Diet,
		&s.Bird.ConservationStatus,
		&s.Bird.InterestingFacts,
		&s.SpeciesImageURL,
		&s.SpeciesPageURL,
		&s.SpeciesImageTitle,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
