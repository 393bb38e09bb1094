package vision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectionPrompt_ListsVocabulary(t *testing.T) {
	for _, c := range Categories {
		assert.Contains(t, DetectionPrompt, c)
	}
	for _, u := range Units {
		assert.Contains(t, DetectionPrompt, u)
	}
	assert.Contains(t, DetectionPrompt, `{"items": []}`)
	assert.True(t, strings.Contains(DetectionPrompt, "clearly identify"))
}
