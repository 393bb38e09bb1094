// Package ingest turns a photo into normalized, expiry-annotated food item
// predictions ready to be stored as drafts.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raine/snapshelf/internal/expiry"
	"github.com/raine/snapshelf/internal/food"
	"github.com/raine/snapshelf/internal/vision"
	"github.com/rs/zerolog/log"
)

// DefaultConfidence is the confidence score given to every detected item.
// User confirmation is the real trust gate, so it is a fixed moderate value.
const DefaultConfidence = 0.75

// DefaultStorageLocation is used when the caller gives no location.
const DefaultStorageLocation = expiry.LocationFridge

// NoItemsMessage is returned when the photo contains no recognizable food.
const NoItemsMessage = "No food items detected in the image. Try taking a clearer photo with better lighting."

const unexpectedErrorPrefix = "Unexpected error during image analysis: "

// Prediction is a detected item after normalization and expiry prediction.
type Prediction struct {
	Name               string        `json:"name"`
	Category           food.Category `json:"category,omitempty"`
	PredictedExpiry    string        `json:"predicted_expiry"`
	ConfidenceScore    float64       `json:"confidence_score"`
	Reasoning          string        `json:"reasoning,omitempty"`
	Quantity           *float64      `json:"quantity,omitempty"`
	Unit               food.Unit     `json:"unit,omitempty"`
	QuantityConfidence *float64      `json:"quantity_confidence,omitempty"`
}

// Result is the outcome of one ingestion. On success Items holds one entry
// per named detection in detection order; otherwise ErrorMessage says why.
type Result struct {
	Success      bool         `json:"success"`
	Items        []Prediction `json:"items,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// Service runs the detection, normalization and prediction pipeline.
type Service struct {
	detector  vision.Detector
	predictor expiry.Predictor
}

// NewService creates an ingestion service.
func NewService(detector vision.Detector, predictor expiry.Predictor) *Service {
	return &Service{detector: detector, predictor: predictor}
}

// IngestFromImage detects food items in image and predicts their expiry for
// storageLocation.
//
// Detection failures are reported in the Result, never as an error. A
// predictor failure aborts the whole call and is returned as the error, with
// no partial results.
func (s *Service) IngestFromImage(ctx context.Context, image []byte, storageLocation string) (*Result, error) {
	if storageLocation == "" {
		storageLocation = DefaultStorageLocation
	}

	detected, err := s.detector.Detect(ctx, image)
	if err != nil {
		return detectionFailure(err), nil
	}
	detected = namedOnly(detected)

	if len(detected) == 0 {
		return &Result{Success: false, ErrorMessage: NoItemsMessage}, nil
	}

	items := make([]Prediction, 0, len(detected))
	for _, d := range detected {
		category := food.NormalizeCategory(d.Category)

		pred, err := s.predictor.Predict(ctx, d.Name, category, storageLocation)
		if err != nil {
			return nil, fmt.Errorf("failed to predict expiry for %q: %w", d.Name, err)
		}

		items = append(items, Prediction{
			Name:               d.Name,
			Category:           category,
			PredictedExpiry:    pred.ExpiryDate.Format("2006-01-02"),
			ConfidenceScore:    DefaultConfidence,
			Reasoning:          pred.Reasoning,
			Quantity:           d.Quantity,
			Unit:               food.NormalizeUnit(d.Unit),
			QuantityConfidence: d.QuantityConfidence,
		})
	}

	log.Info().
		Int("itemCount", len(items)).
		Str("storageLocation", storageLocation).
		Msg("image ingested")

	return &Result{Success: true, Items: items}, nil
}

// namedOnly drops detections without a usable name.
func namedOnly(items []vision.DetectedItem) []vision.DetectedItem {
	named := items[:0:0]
	for _, it := range items {
		if strings.TrimSpace(it.Name) != "" {
			named = append(named, it)
		}
	}
	return named
}

func detectionFailure(err error) *Result {
	var svcErr *vision.ExternalServiceError
	var parseErr *vision.ResponseParseError

	msg := err.Error()
	switch {
	case errors.As(err, &svcErr), errors.As(err, &parseErr):
		log.Warn().Err(err).Msg("vision detection failed")
	default:
		log.Error().Err(err).Msg("unexpected vision detection error")
		msg = unexpectedErrorPrefix + msg
	}

	return &Result{Success: false, ErrorMessage: msg}
}
