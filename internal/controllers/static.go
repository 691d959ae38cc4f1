package controllers

import (
	"context"
	"net/http"
	"time"

	localcontext "github.com/rahul4469/birdwatcher/context"
	"github.com/rahul4469/birdwatcher/internal/views"
)

// StaticController handles static pages like home, about, etc.
type StaticController struct {
	templates      StaticTemplates
	maxUploadBytes int64
}

// StaticTemplates holds templates for static pages.
type StaticTemplates struct {
	Home *views.Template
	Info *views.Template
}

// NewStaticController creates a new StaticController.
func NewStaticController(templates StaticTemplates, maxUploadBytes int64) *StaticController {
	return &StaticController{
		templates:      templates,
		maxUploadBytes: maxUploadBytes,
	}
}

// HomeData holds data for the home page template.
type HomeData struct {
	MaxUploadBytes int64
	Features       []Feature
}

// Feature represents a feature card displayed on the home page.
type Feature struct {
	Icon  string
	Tint  string
	Title string
	Body  string
}

var homeFeatures = []Feature{
	{
		Icon:  "\U0001F426",
		Tint:  "bg-violet-100",
		Title: "AI Identification",
		Body:  "Advanced machine learning technology that accurately identifies bird species from your photos instantly, providing detailed information about each species.",
	},
	{
		Icon:  "\U0001F451",
		Tint:  "bg-red-100",
		Title: "Simple Interface",
		Body:  "User-friendly design that makes bird identification easy and accessible. Simply upload your photo and get instant results with detailed information.",
	},
	{
		Icon:  "\U0001F4CA",
		Tint:  "bg-emerald-100",
		Title: "Bird Database",
		Body:  "Access comprehensive information about bird species, including habitats, behaviors, migration patterns, and conservation status.",
	},
}

// GetHome renders the home page with the uploader.
func (c *StaticController) GetHome(w http.ResponseWriter, r *http.Request) {
	data := &views.TemplateData{
		Title:       "AI Bird Identification",
		Description: "Upload or photograph a bird and get its species, habitat, diet and more.",
		Data: HomeData{
			MaxUploadBytes: c.maxUploadBytes,
			Features:       homeFeatures,
		},
	}

	c.templates.Home.ExecuteHTTP(w, r, data)
}

// InfoPage is the content of one of the plain text pages.
type InfoPage struct {
	Heading    string
	Paragraphs []string
	Questions  []FAQ
}

type FAQ struct {
	Question string
	Answer   string
}

// InfoPages maps a URL path to its page.
var InfoPages = map[string]InfoPage{
	"/about": {
		Heading: "About Birdwatcher.ai",
		Paragraphs: []string{
			"Birdwatcher.ai identifies birds from a single photo. Upload a picture or take one with your phone and an AI vision model tells you the species together with its habitat, diet, behavior, migration pattern and conservation status.",
			"The project exists to make bird watching more accessible and educational. Every identification that succeeds is added to the public gallery of recent sightings.",
		},
	},
	"/contact": {
		Heading: "Contact",
		Paragraphs: []string{
			"Found a wrong identification or have an idea for the project? Open an issue on the project repository or write to hello@birdwatcher.ai.",
		},
	},
	"/privacy": {
		Heading: "Privacy Policy",
		Paragraphs: []string{
			"Photos you upload are sent to Google's Gemini API for identification and are not stored on our servers.",
			"When an identification succeeds we keep the text result and a one-way fingerprint of the photo so that the same picture is not listed twice in the gallery. The fingerprint cannot be turned back into the image.",
			"Server logs record the type and size of each upload for troubleshooting. We do not use cookies other than the one needed to protect forms against cross-site request forgery.",
		},
	},
	"/terms": {
		Heading: "Terms of Service",
		Paragraphs: []string{
			"Birdwatcher.ai is provided as is. Identifications are produced by an AI model and can be wrong, so do not rely on them where a mistake matters.",
			"Only upload photos you have the right to share. Successful identifications appear in the public gallery without the photo itself.",
		},
	},
	"/faq": {
		Heading: "Frequently Asked Questions",
		Questions: []FAQ{
			{Question: "Which photos work best?", Answer: "A sharp, well lit photo with the bird filling a good part of the frame. Silhouettes and distant birds are hard to identify."},
			{Question: "Why did I get \"Unidentified Bird\"?", Answer: "The AI model could not describe the photo in a structured way. Try another picture of the same bird."},
			{Question: "Is my photo stored?", Answer: "No. Only the identification text and a fingerprint of the photo are kept."},
			{Question: "Which file types are supported?", Answer: "Any common image format your browser can upload, such as JPEG, PNG, WebP or HEIC."},
		},
	},
	"/blog": {
		Heading: "Blog",
		Paragraphs: []string{
			"News about Birdwatcher.ai will appear here. In the meantime, browse the gallery to see what other birders have spotted.",
		},
	},
}

// GetInfo renders the info page registered for the request path.
func (c *StaticController) GetInfo(w http.ResponseWriter, r *http.Request) {
	page, ok := InfoPages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	c.templates.Info.ExecuteHTTP(w, r, &views.TemplateData{
		Title: page.Heading,
		Data:  page,
	})
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Model    string `json:"model"`
}

// HealthCheck returns a handler reporting service health for monitoring.
// db may be nil when the gallery store is disabled.
func HealthCheck(db HealthChecker, modelConfigured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Database: "disabled", Model: "configured"}
		if !modelConfigured {
			resp.Model = "missing api key"
		}

		status := http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Health(ctx); err != nil {
				localcontext.Logger(r.Context()).Error("Database health check failed", "error", err)
				resp.Status = "degraded"
				resp.Database = "unreachable"
				status = http.StatusServiceUnavailable
			} else {
				resp.Database = "ok"
			}
		}

		writeJSON(w, status, resp)
	}
}
