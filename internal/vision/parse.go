package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting. Returns the extracted JSON string or an error.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %q", truncate(text, 200))
	}
	return text[start : end+1], nil
}

// detectionResponse is the reply contract. Only the top-level items array is
// required; every leaf is decoded loosely and coerced per item.
type detectionResponse struct {
	Items *[]map[string]json.RawMessage `json:"items"`
}

// parseDetectionResponse turns the model's text reply into detected items.
// Shape errors fail the whole reply with a *ResponseParseError. Bad leaf
// values only drop that field, and entries without a name are skipped.
func parseDetectionResponse(text string) ([]DetectedItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ResponseParseError{Err: errors.New("empty response")}
	}

	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, &ResponseParseError{Err: err}
	}

	var resp detectionResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, &ResponseParseError{Err: fmt.Errorf("%w (response: %s)", err, truncate(jsonStr, 200))}
	}
	if resp.Items == nil {
		return nil, &ResponseParseError{Err: errors.New(`missing "items" array`)}
	}

	items := make([]DetectedItem, 0, len(*resp.Items))
	for _, raw := range *resp.Items {
		if raw == nil {
			return nil, &ResponseParseError{Err: errors.New("items entry is not an object")}
		}
		name := strings.TrimSpace(stringField(raw, "name"))
		if name == "" {
			continue
		}
		item := DetectedItem{
			Name:     name,
			Category: strings.TrimSpace(stringField(raw, "category")),
			Unit:     strings.TrimSpace(stringField(raw, "unit")),
		}
		if q, ok := numberField(raw, "quantity"); ok && q >= 0 {
			item.Quantity = &q
		}
		if c, ok := numberField(raw, "quantity_confidence"); ok && c >= 0 && c <= 1 {
			item.QuantityConfidence = &c
		}
		items = append(items, item)
	}

	return items, nil
}

// stringField returns the string value of key, or "" when the key is missing,
// null or not a string.
func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// numberField returns the numeric value of key. Numeric strings such as
// "500" are accepted since models occasionally quote numbers.
func numberField(obj map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
