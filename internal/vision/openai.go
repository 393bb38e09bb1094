package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	defaultOpenAIMaxTokens = 800
	openAITimeout          = 60 * time.Second
)

// OpenAIDetector detects food items with an OpenAI-compatible chat
// completions endpoint.
type OpenAIDetector struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int

	mu         sync.Mutex
	httpClient *resty.Client
}

// NewOpenAIDetector creates a detector for the OpenAI chat completions API.
// Empty model and baseURL select the defaults.
func NewOpenAIDetector(apiKey, model, baseURL string) *OpenAIDetector {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIDetector{
		apiKey:    apiKey,
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxTokens: defaultOpenAIMaxTokens,
	}
}

// Model returns the model name used for detection.
func (o *OpenAIDetector) Model() string {
	return o.model
}

func (o *OpenAIDetector) client() *resty.Client {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.httpClient == nil {
		o.httpClient = resty.New().
			SetDebug(false).
			SetBaseURL(o.baseURL).
			SetTimeout(openAITimeout).
			SetAuthToken(o.apiKey).
			SetHeader("Content-Type", "application/json")
	}
	return o.httpClient
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Detect implements the Detector interface.
func (o *OpenAIDetector) Detect(ctx context.Context, image []byte) ([]DetectedItem, error) {
	format := DetectImageFormat(image)
	dataURL := fmt.Sprintf("data:%s;base64,%s", format.MIMEType(), base64.StdEncoding.EncodeToString(image))

	body := chatRequest{
		Model: o.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{Type: "text", Text: DetectionPrompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL, Detail: "low"}},
			},
		}},
		MaxTokens:      o.maxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	res, err := o.client().R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, &ExternalServiceError{Provider: "OpenAI", Err: err}
	}
	if res.IsError() {
		return nil, &ExternalServiceError{Provider: "OpenAI", Err: statusError(res)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return nil, &ResponseParseError{Err: fmt.Errorf("invalid completion body: %w", err)}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return nil, &ResponseParseError{Err: errors.New("no response from OpenAI")}
	}

	items, err := parseDetectionResponse(*parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("model", o.model).
		Str("format", string(format)).
		Int("itemCount", len(items)).
		Int64("inputTokens", parsed.Usage.PromptTokens).
		Int64("outputTokens", parsed.Usage.CompletionTokens).
		Msg("vision detection llm call")

	return items, nil
}

func statusError(res *resty.Response) error {
	var apiErr chatErrorResponse
	if err := json.Unmarshal(res.Body(), &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("status %d: %s", res.StatusCode(), apiErr.Error.Message)
	}
	return fmt.Errorf("status %d: %s", res.StatusCode(), truncate(strings.TrimSpace(res.String()), 200))
}
