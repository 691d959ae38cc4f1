package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/csrf"

	localcontext "github.com/rahul4469/birdwatcher/context"
	"github.com/rahul4469/birdwatcher/internal/models"
	"github.com/rahul4469/birdwatcher/internal/services"
	"github.com/rahul4469/birdwatcher/internal/views"
)

// Messages returned to API clients.
const (
	msgConfigError     = "Server configuration error"
	msgNoImage         = "No image provided"
	msgModelError      = "Error analyzing image with AI model: "
	msgProcessingError = "Error processing image. Please try again."
	msgTooLarge        = "Image is too large"
)

const imageField = "image"

// multipart parts below this size stay in memory
const multipartMemory = 8 << 20

// SightingRecorder stores successful identifications in the gallery.
type SightingRecorder interface {
	Record(ctx context.Context, img services.Image, id *services.Identification) (*models.Sighting, error)
}

// IdentifyController serves the identify API and its no-JavaScript form.
type IdentifyController struct {
	identifier     services.BirdIdentifier
	recorder       SightingRecorder
	templates      IdentifyTemplates
	maxUploadBytes int64
	recordTimeout  time.Duration

	wg sync.WaitGroup
}

// IdentifyTemplates holds the templates for the identify pages.
type IdentifyTemplates struct {
	Form *views.Template
}

// NewIdentifyController creates a new IdentifyController. recorder may be
// nil, in which case nothing is stored.
func NewIdentifyController(
	identifier services.BirdIdentifier,
	recorder SightingRecorder,
	templates IdentifyTemplates,
	maxUploadBytes int64,
) *IdentifyController {
	return &IdentifyController{
		identifier:     identifier,
		recorder:       recorder,
		templates:      templates,
		maxUploadBytes: maxUploadBytes,
		recordTimeout:  30 * time.Second,
	}
}

// IdentifyPageData holds data for the identify form template.
type IdentifyPageData struct {
	MaxUploadMB int64
	Result      *models.BirdIdentification
	Fallback    bool
	Cached      bool
	Sighting    *models.Sighting
}

type identifyResponse struct {
	Result json.RawMessage `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// requestError is a failed identify request: the status and the message
// shown to the client.
type requestError struct {
	status  int
	message string
	err     error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *requestError) Unwrap() error { return e.err }

// PostIdentifyAPI handles POST /api/identify. The key check comes first so
// that a misconfigured server never reads the upload.
func (c *IdentifyController) PostIdentifyAPI(w http.ResponseWriter, r *http.Request) {
	img, id, reqErr := c.identify(w, r)
	if reqErr != nil {
		writeJSON(w, reqErr.status, errorResponse{Error: reqErr.message})
		return
	}

	c.recordAsync(r.Context(), img, id)
	writeJSON(w, http.StatusOK, identifyResponse{Result: id.Raw})
}

// GetIdentify renders the upload form.
func (c *IdentifyController) GetIdentify(w http.ResponseWriter, r *http.Request) {
	c.templates.Form.ExecuteHTTP(w, r, c.formData(r, &IdentifyPageData{}))
}

// PostIdentifyForm handles the form submission. Unlike the API the sighting
// is recorded before rendering so the page can show the reference photo.
func (c *IdentifyController) PostIdentifyForm(w http.ResponseWriter, r *http.Request) {
	img, id, reqErr := c.identify(w, r)
	if reqErr != nil {
		data := c.formData(r, &IdentifyPageData{})
		data.Error = reqErr.message
		c.templates.Form.ExecuteHTTPWithStatus(w, r, reqErr.status, data)
		return
	}

	page := &IdentifyPageData{
		Result:   &id.Bird,
		Fallback: id.Fallback,
		Cached:   id.Cached,
	}
	if c.recorder != nil && !id.Fallback {
		ctx, cancel := context.WithTimeout(r.Context(), c.recordTimeout)
		sighting, err := c.recorder.Record(ctx, img, id)
		cancel()
		switch {
		case err == nil:
			page.Sighting = sighting
		case errors.Is(err, services.ErrNotRecordable):
		default:
			localcontext.Logger(r.Context()).Warn("Failed to record sighting", "error", err)
		}
	}

	data := c.formData(r, page)
	data.Title = id.Bird.CommonName
	c.templates.Form.ExecuteHTTP(w, r, data)
}

func (c *IdentifyController) formData(r *http.Request, page *IdentifyPageData) *views.TemplateData {
	page.MaxUploadMB = c.maxUploadBytes >> 20
	return &views.TemplateData{
		Title:     "Identify a bird",
		CSRFToken: csrf.Token(r),
		CSRFField: csrf.TemplateField(r),
		Data:      page,
	}
}

// identify runs one request through the identifier and maps every failure
// to the status and message the client sees.
func (c *IdentifyController) identify(w http.ResponseWriter, r *http.Request) (services.Image, *services.Identification, *requestError) {
	logger := localcontext.Logger(r.Context())

	if !c.identifier.Configured() {
		logger.Error("API key not found")
		return services.Image{}, nil, &requestError{status: http.StatusInternalServerError, message: msgConfigError}
	}

	img, reqErr := c.readImage(w, r)
	if reqErr != nil {
		logger.Warn("Rejected upload", "status", reqErr.status, "error", reqErr)
		return services.Image{}, nil, reqErr
	}
	logger.Info("Processing file",
		"type", img.MIMEType,
		"size", len(img.Data),
		"name", img.Filename)

	id, err := c.identifier.Identify(r.Context(), img)
	if err != nil {
		var modelErr *services.ModelError
		switch {
		case errors.As(err, &modelErr):
			logger.Error("Model error", "error", err)
			return img, nil, &requestError{
				status:  http.StatusInternalServerError,
				message: msgModelError + modelErr.Err.Error(),
				err:     err,
			}
		case errors.Is(err, services.ErrMissingAPIKey):
			logger.Error("API key not found")
			return img, nil, &requestError{status: http.StatusInternalServerError, message: msgConfigError, err: err}
		case errors.Is(err, services.ErrEmptyImage):
			return img, nil, &requestError{status: http.StatusBadRequest, message: msgNoImage, err: err}
		default:
			logger.Error("General error", "error", err)
			return img, nil, &requestError{status: http.StatusInternalServerError, message: msgProcessingError, err: err}
		}
	}
	return img, id, nil
}

// readImage pulls the image field out of the multipart body.
func (c *IdentifyController) readImage(w http.ResponseWriter, r *http.Request) (services.Image, *requestError) {
	if c.maxUploadBytes > 0 && r.Body != nil {
		// LimitUpload may have wrapped the body already
		r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return services.Image{}, uploadError(err)
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		return services.Image{}, uploadError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return services.Image{}, uploadError(err)
	}
	if len(data) == 0 {
		return services.Image{}, &requestError{
			status:  http.StatusBadRequest,
			message: msgNoImage,
			err:     models.FileError{Issue: fmt.Sprintf("%q is empty", header.Filename)},
		}
	}

	return services.NewImage(data, header.Header.Get("Content-Type"), header.Filename), nil
}

func uploadError(err error) *requestError {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return &requestError{status: http.StatusRequestEntityTooLarge, message: msgTooLarge, err: err}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return &requestError{status: http.StatusBadRequest, message: msgNoImage, err: err}
	default:
		return &requestError{status: http.StatusInternalServerError, message: msgProcessingError, err: err}
	}
}

// recordAsync stores the sighting in the background. The request context is
// detached so the write outlives the response.
func (c *IdentifyController) recordAsync(ctx context.Context, img services.Image, id *services.Identification) {
	if c.recorder == nil || id.Fallback || id.Cached {
		return
	}

	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(bg, c.recordTimeout)
		defer cancel()

		logger := localcontext.Logger(ctx)
		sighting, err := c.recorder.Record(ctx, img, id)
		switch {
		case err == nil:
			logger.Info("Sighting recorded", "id", sighting.PublicID, "common_name", sighting.Bird.CommonName)
		case errors.Is(err, services.ErrNotRecordable):
		default:
			logger.Warn("Failed to record sighting", "error", err)
		}
	}()
}

// Wait blocks until background sighting writes have finished.
func (c *IdentifyController) Wait() {
	c.wg.Wait()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
