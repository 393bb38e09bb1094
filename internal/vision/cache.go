package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// VisionCache persists detection results keyed by image hash. A miss is
// reported as nil payload with nil error.
type VisionCache interface {
	GetVisionCache(imageHash string) ([]byte, error)
	SetVisionCache(imageHash string, payload []byte) error
}

// CachedDetector wraps a Detector so identical photos are only sent to the
// model once.
type CachedDetector struct {
	inner Detector
	store VisionCache
}

// NewCachedDetector creates a cached detector.
func NewCachedDetector(inner Detector, store VisionCache) *CachedDetector {
	return &CachedDetector{inner: inner, store: store}
}

// HashImage returns the hex SHA256 digest used as the cache key.
func HashImage(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Detect implements the Detector interface with caching. Cache failures are
// logged and never fail detection.
func (c *CachedDetector) Detect(ctx context.Context, image []byte) ([]DetectedItem, error) {
	hash := HashImage(image)

	if c.store != nil {
		payload, err := c.store.GetVisionCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if payload != nil {
			var items []DetectedItem
			if err := json.Unmarshal(payload, &items); err != nil {
				log.Warn().Err(err).Str("hash", hash[:16]).Msg("discarding corrupt vision cache entry")
			} else {
				log.Debug().Str("hash", hash[:16]).Int("itemCount", len(items)).Msg("vision cache hit")
				return items, nil
			}
		}
	}

	items, err := c.inner.Detect(ctx, image)
	if err != nil {
		return nil, err
	}

	// Empty results are not cached so a retry can hit the model again.
	if c.store != nil && len(items) > 0 {
		payload, err := json.Marshal(items)
		if err != nil {
			log.Warn().Err(err).Msg("failed to encode vision result")
		} else if err := c.store.SetVisionCache(hash, payload); err != nil {
			log.Warn().Err(err).Msg("failed to cache vision result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("vision result cached")
		}
	}

	return items, nil
}
