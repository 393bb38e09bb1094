package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/raine/snapshelf/internal/storage"
)

// BuildDrafts assembles draft records for successful predictions. detectedBy
// names the vision model and ends up in the notes for provenance.
func BuildDrafts(ownerID, location, detectedBy string, items []Prediction) []storage.Draft {
	drafts := make([]storage.Draft, 0, len(items))
	for _, item := range items {
		confidence := item.ConfidenceScore
		d := storage.Draft{
			OwnerID:         ownerID,
			Name:            item.Name,
			Category:        string(item.Category),
			Location:        location,
			Source:          storage.SourceImage,
			ConfidenceScore: &confidence,
			Unit:            string(item.Unit),
		}
		if item.Quantity != nil {
			q := *item.Quantity
			d.Quantity = &q
		}
		if item.PredictedExpiry != "" {
			if t, err := time.Parse(storage.DateLayout, item.PredictedExpiry); err == nil {
				d.ExpirationDate = &t
			}
		}
		d.Notes = draftNotes(detectedBy, item)
		drafts = append(drafts, d)
	}
	return drafts
}

func draftNotes(detectedBy string, item Prediction) string {
	parts := []string{fmt.Sprintf("[Image detection - %s]", detectedBy)}
	if item.Reasoning != "" {
		parts = append(parts, fmt.Sprintf("[%s]", item.Reasoning))
	}
	if item.QuantityConfidence != nil {
		parts = append(parts, fmt.Sprintf("[Quantity confidence: %d%%]", int(*item.QuantityConfidence*100)))
	}
	return strings.Join(parts, "\n")
}
