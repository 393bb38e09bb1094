// Package vision detects food items in photos using an external multimodal
// model and turns its loosely-typed output into DetectedItem values.
package vision

import (
	"context"
	"fmt"
)

// DetectedItem is a single food item reported by the vision model, before
// any normalization. Empty strings and nil pointers mean the model did not
// provide the field.
type DetectedItem struct {
	Name               string   `json:"name"`
	Category           string   `json:"category,omitempty"`
	Quantity           *float64 `json:"quantity,omitempty"`
	Unit               string   `json:"unit,omitempty"`
	QuantityConfidence *float64 `json:"quantity_confidence,omitempty"` // 0.0-1.0
}

// Detector finds food items in an image.
type Detector interface {
	// Detect returns the named items found in image, in the order the model
	// reported them. It returns an *ExternalServiceError when the model call
	// fails and a *ResponseParseError when the reply is not usable.
	Detect(ctx context.Context, image []byte) ([]DetectedItem, error)
}

// Usage contains token usage information for a vision call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ExternalServiceError reports that the call to the vision model itself
// failed: network, authentication, quota, bad request or cancellation.
type ExternalServiceError struct {
	Provider string
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// ResponseParseError reports that the model answered with content that does
// not have the expected {"items": [...]} shape.
type ResponseParseError struct {
	Err error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse vision response: %v", e.Err)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}
