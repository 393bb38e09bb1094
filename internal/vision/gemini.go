package vision

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash"

	// Room for a few dozen items with every field filled in.
	defaultGeminiMaxOutputTokens = 2048
)

// GeminiDetector detects food items with Google's Gemini API.
type GeminiDetector struct {
	apiKey          string
	model           string
	maxOutputTokens int32

	// The API handle is built on first use. mu is held for the whole
	// construction so concurrent first calls build it exactly once.
	mu        sync.Mutex
	client    *genai.Client
	newClient func(ctx context.Context) (*genai.Client, error)
}

// NewGeminiDetector creates a Gemini-based detector. The API client is not
// constructed until the first Detect call. An empty model selects
// DefaultGeminiModel.
func NewGeminiDetector(apiKey, model string) *GeminiDetector {
	if model == "" {
		model = DefaultGeminiModel
	}
	g := &GeminiDetector{
		apiKey:          apiKey,
		model:           model,
		maxOutputTokens: defaultGeminiMaxOutputTokens,
	}
	g.newClient = func(ctx context.Context) (*genai.Client, error) {
		return genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	}
	return g
}

// WithMaxOutputTokens sets the output size cap for a detection reply.
func (g *GeminiDetector) WithMaxOutputTokens(n int32) *GeminiDetector {
	g.maxOutputTokens = n
	return g
}

// Model returns the Gemini model name used for detection.
func (g *GeminiDetector) Model() string {
	return g.model
}

func (g *GeminiDetector) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}
	g.client = client
	return client, nil
}

// Detect implements the Detector interface using Gemini structured output.
func (g *GeminiDetector) Detect(ctx context.Context, image []byte) ([]DetectedItem, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, &ExternalServiceError{Provider: "Gemini", Err: err}
	}

	format := DetectImageFormat(image)
	parts := []*genai.Part{
		genai.NewPartFromText(DetectionPrompt),
		{InlineData: &genai.Blob{Data: image, MIMEType: format.MIMEType()}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   detectionSchema(),
		MaxOutputTokens:  g.maxOutputTokens,
	}

	result, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, &ExternalServiceError{Provider: "Gemini", Err: err}
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, &ResponseParseError{Err: errors.New("no response from Gemini")}
	}

	items, err := parseDetectionResponse(result.Text())
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
	}

	log.Info().
		Str("model", g.model).
		Str("format", string(format)).
		Int("itemCount", len(items)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Msg("vision detection llm call")

	return items, nil
}

// detectionSchema describes the {"items": [...]} reply for structured output.
func detectionSchema() *genai.Schema {
	nullable := true
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":                {Type: genai.TypeString},
						"category":            {Type: genai.TypeString, Format: "enum", Enum: Categories, Nullable: &nullable},
						"quantity":            {Type: genai.TypeNumber, Nullable: &nullable},
						"unit":                {Type: genai.TypeString, Format: "enum", Enum: Units, Nullable: &nullable},
						"quantity_confidence": {Type: genai.TypeNumber, Nullable: &nullable},
					},
					Required:         []string{"name"},
					PropertyOrdering: []string{"name", "category", "quantity", "unit", "quantity_confidence"},
				},
			},
		},
		Required: []string{"items"},
	}
}
