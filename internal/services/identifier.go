package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	localcontext "github.com/rahul4469/birdwatcher/context"
	"github.com/rahul4469/birdwatcher/internal/models"
)

var (
	ErrMissingAPIKey = errors.New("google API key not configured")
	ErrEmptyImage    = errors.New("image is empty")
)

// ModelError is a failed call to the model API. Err carries the message
// reported by the API.
type ModelError struct {
	Op  string
	Err error
}

func (e *ModelError) Error() string { return "gemini: " + e.Op + ": " + e.Err.Error() }
func (e *ModelError) Unwrap() error { return e.Err }

// IdentificationPrompt asks the model for the eight-field JSON record.
const IdentificationPrompt = "Analyze this bird image and provide details in this exact JSON format:\n" +
	"{\n" +
	`  "commonName": "Name of the bird",` + "\n" +
	`  "scientificName": "Scientific name",` + "\n" +
	`  "habitat": "Brief description of typical habitat",` + "\n" +
	`  "behavior": "Detailed description of behavioral patterns",` + "\n" +
	`  "migrationPattern": "Information about migration routes and timing",` + "\n" +
	`  "diet": "What the bird typically eats",` + "\n" +
	`  "conservationStatus": "Current conservation status and population trends",` + "\n" +
	`  "interestingFacts": "A fascinating fact about this bird"` + "\n" +
	"}"

// Identification is the outcome of one identify call.
type Identification struct {
	// Raw is the model JSON as relayed to API clients. For a fallback it
	// holds the placeholder record.
	Raw json.RawMessage
	// Bird is Raw decoded into the fixed record, best effort.
	Bird models.BirdIdentification
	// Fallback is set when the model answer was not JSON.
	Fallback bool
	// Cached is set when the result came from the identify cache.
	Cached bool
}

// BirdIdentifier identifies the bird in a photo.
type BirdIdentifier interface {
	// Configured reports whether the identifier can call its model at all.
	Configured() bool
	Identify(ctx context.Context, img Image) (*Identification, error)
}

// ParseIdentification reads the model text. JSON is relayed unchanged
// (whitespace compacted), anything else becomes the placeholder record.
func ParseIdentification(text string) *Identification {
	cleaned := StripCodeFences(text)
	if cleaned == "" || !json.Valid([]byte(cleaned)) {
		return fallbackIdentification()
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(cleaned)); err != nil {
		return fallbackIdentification()
	}

	id := &Identification{Raw: json.RawMessage(buf.Bytes())}
	// Non-object answers are still relayed; Bird just stays partially empty.
	_ = json.Unmarshal(id.Raw, &id.Bird)
	return id
}

func fallbackIdentification() *Identification {
	bird := models.UnidentifiedBird()
	raw, _ := json.Marshal(bird)
	return &Identification{
		Raw:      raw,
		Bird:     bird,
		Fallback: true,
	}
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// modelOpener returns a ready model and a func releasing its client.
type modelOpener func(ctx context.Context) (contentGenerator, func() error, error)

// GeminiIdentifier sends the photo inline to a Gemini model.
type GeminiIdentifier struct {
	apiKey  string
	model   string
	timeout time.Duration

	open modelOpener
}

func NewGeminiIdentifier(apiKey, model string, timeout time.Duration) *GeminiIdentifier {
	g := &GeminiIdentifier{
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		timeout: timeout,
	}
	g.open = g.openGemini
	return g
}

func (g *GeminiIdentifier) Configured() bool { return g.apiKey != "" }
func (g *GeminiIdentifier) Model() string    { return g.model }

func (g *GeminiIdentifier) openGemini(ctx context.Context) (contentGenerator, func() error, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	m := cl.GenerativeModel(g.model)
	if m == nil {
		_ = cl.Close()
		return nil, nil, errors.New("model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0.2),
		ResponseMIMEType: "application/json",
	}
	return m, cl.Close, nil
}

// Identify runs a single model round trip. There are no retries: a failed
// call is reported to the caller as is.
func (g *GeminiIdentifier) Identify(ctx context.Context, img Image) (*Identification, error) {
	if !g.Configured() {
		return nil, ErrMissingAPIKey
	}
	if len(img.Data) == 0 {
		return nil, ErrEmptyImage
	}
	logger := localcontext.Logger(ctx).With("model", g.model)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	m, closeClient, err := g.open(ctx)
	if err != nil {
		return nil, &ModelError{Op: "open model", Err: err}
	}
	defer func() { _ = closeClient() }()
	logger.Debug("Model initialized")

	resp, err := m.GenerateContent(ctx,
		genai.Text(IdentificationPrompt),
		genai.Blob{MIMEType: PickMIME(img.MIMEType, img.Data), Data: img.Data},
	)
	if err != nil {
		return nil, &ModelError{Op: "generate content", Err: err}
	}
	logger.Debug("Content generated")

	txt := firstText(resp)
	logger.Debug("Raw response", "text", txt)

	id := ParseIdentification(txt)
	if id.Fallback {
		logger.Warn("Failed to parse response as JSON, using placeholder")
	}
	return id, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
