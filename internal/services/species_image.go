package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"golang.org/x/time/rate"

	localcontext "github.com/rahul4469/birdwatcher/context"
	"github.com/rahul4469/birdwatcher/internal/models"
)

var ErrSpeciesImageNotFound = errors.New("species image not found")

// User-Agent following the Wikimedia robot policy
const speciesImageUserAgent = "Birdwatcher.ai/1.0 (https://github.com/rahul4469/birdwatcher) Go-HTTP-Client"

// SpeciesImage is a reference picture of an identified species.
type SpeciesImage struct {
	URL         string
	PageURL     string
	Title       string
	Description string
}

// SpeciesImageProvider finds a reference picture for an identification.
type SpeciesImageProvider interface {
	Lookup(ctx context.Context, bird models.BirdIdentification) (*SpeciesImage, error)
}

// WikipediaImages reads page summaries from the Wikipedia REST API.
type WikipediaImages struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewWikipediaImages(baseURL string) *WikipediaImages {
	return &WikipediaImages{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Wikimedia asks API clients to keep request rates modest
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// Lookup tries the scientific name first, then the common name.
func (w *WikipediaImages) Lookup(ctx context.Context, bird models.BirdIdentification) (*SpeciesImage, error) {
	titles := lookupTitles(bird)
	if len(titles) == 0 {
		return nil, ErrSpeciesImageNotFound
	}

	logger := localcontext.Logger(ctx).With("provider", "wikipedia")
	for _, title := range titles {
		img, err := w.fetchSummary(ctx, title)
		if err == nil {
			logger.Debug("Species image found", "title", title, "url", img.URL)
			return img, nil
		}
		if !errors.Is(err, ErrSpeciesImageNotFound) {
			return nil, err
		}
		logger.Debug("No species image for title", "title", title)
	}
	return nil, ErrSpeciesImageNotFound
}

func lookupTitles(bird models.BirdIdentification) []string {
	var titles []string
	if sci := strings.TrimSpace(bird.ScientificName); sci != "" && sci != models.UnidentifiedScientificName {
		titles = append(titles, sci)
	}
	if !bird.IsUnidentified() {
		common := strings.TrimSpace(bird.CommonName)
		if len(titles) == 0 || !strings.EqualFold(common, titles[0]) {
			titles = append(titles, common)
		}
	}
	return titles
}

func (w *WikipediaImages) summaryURL(title string) string {
	return w.baseURL + "/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

func (w *WikipediaImages) fetchSummary(ctx context.Context, title string) (*SpeciesImage, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wikipedia: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.summaryURL(title), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: create request: %w", err)
	}
	req.Header.Set("User-Agent", speciesImageUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrSpeciesImageNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("wikipedia API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: decode summary: %w", err)
	}

	if kind, _ := obj.GetString("type"); kind == "disambiguation" {
		return nil, ErrSpeciesImageNotFound
	}

	thumb, err := obj.GetString("thumbnail", "source")
	if err != nil || thumb == "" {
		return nil, ErrSpeciesImageNotFound
	}

	img := &SpeciesImage{URL: thumb}
	img.Title, _ = obj.GetString("title")
	img.Description, _ = obj.GetString("description")
	img.PageURL, _ = obj.GetString("content_urls", "desktop", "page")
	return img, nil
}
