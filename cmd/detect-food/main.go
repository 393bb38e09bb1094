// Command detect-food runs one image through the ingestion pipeline and
// prints the result as JSON. No drafts are stored.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/raine/snapshelf/config"
	"github.com/raine/snapshelf/internal/expiry"
	"github.com/raine/snapshelf/internal/ingest"
	"github.com/raine/snapshelf/internal/vision"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image-path> [gemini|openai] [fridge|freezer|pantry]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY - Required for Gemini\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY - Required for OpenAI\n")
		fmt.Fprintf(os.Stderr, "  VISION_MODEL   - Optional model override\n")
		os.Exit(1)
	}

	config.LoadEnvFile()

	imagePath := os.Args[1]
	provider := config.ProviderGemini
	if len(os.Args) >= 3 {
		provider = os.Args[2]
	}
	location := ingest.DefaultStorageLocation
	if len(os.Args) >= 4 {
		location = os.Args[3]
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
		os.Exit(1)
	}

	var detector vision.Detector
	switch provider {
	case config.ProviderGemini:
		detector = vision.NewGeminiDetector(os.Getenv("GEMINI_API_KEY"), os.Getenv("VISION_MODEL"))
	case config.ProviderOpenAI:
		detector = vision.NewOpenAIDetector(os.Getenv("OPENAI_API_KEY"), os.Getenv("VISION_MODEL"), os.Getenv("OPENAI_BASE_URL"))
	default:
		fmt.Fprintf(os.Stderr, "Unknown provider: %s (use gemini or openai)\n", provider)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc := ingest.NewService(detector, expiry.NewRulePredictor())
	result, err := svc.IngestFromImage(ctx, imageData, location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		os.Exit(1)
	}
	if !result.Success {
		os.Exit(2)
	}
}
