package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestAssembleEmpty(t *testing.T) {
	result := Assemble(nil)

	assert.Equal(t, "", result.FullText)
	assert.Equal(t, 0, result.WordCount)
	assert.Equal(t, 0.0, result.Duration)
	assert.Equal(t, 0.0, result.ConfidenceAverage)
	assert.NotNil(t, result.Segments)
	assert.Empty(t, result.Segments)
}

func TestAssembleJoinsText(t *testing.T) {
	segments := []Segment{
		{Start: 0.0, End: 2.0, Text: "hello", Confidence: floatPtr(0.8)},
		{Start: 2.0, End: 4.0, Text: "world", Confidence: floatPtr(0.6)},
	}

	result := Assemble(segments)

	assert.Equal(t, "hello world", result.FullText)
	assert.Equal(t, 2, result.WordCount)
	assert.Equal(t, 4.0, result.Duration)
	assert.InDelta(t, 0.7, result.ConfidenceAverage, 1e-9)
}

func TestAssembleSkipsBlankSegments(t *testing.T) {
	segments := []Segment{
		{Start: 0.0, End: 1.0, Text: "first"},
		{Start: 1.0, End: 2.0, Text: "   "},
		{Start: 2.0, End: 3.0, Text: ""},
		{Start: 3.0, End: 4.0, Text: "last"},
	}

	result := Assemble(segments)

	assert.Equal(t, "first last", result.FullText)
	assert.Equal(t, 2, result.WordCount)
	// Blank segments still count toward the time span
	assert.Equal(t, 4.0, result.Duration)
	assert.Len(t, result.Segments, 4)
}

func TestAssembleTrimsSegmentWhitespace(t *testing.T) {
	segments := []Segment{
		{Start: 0.0, End: 1.0, Text: "  leading"},
		{Start: 1.0, End: 2.0, Text: "trailing  "},
	}

	result := Assemble(segments)
	assert.Equal(t, "leading trailing", result.FullText)
}

func TestAssembleDuration(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		expected float64
	}{
		{
			name: "span from earliest start to latest end",
			segments: []Segment{
				{Start: 5.0, End: 7.0, Text: "b"},
				{Start: 1.0, End: 3.0, Text: "a"},
			},
			expected: 6.0,
		},
		{
			name: "non-positive span collapses to zero",
			segments: []Segment{
				{Start: 2.0, End: 2.0, Text: "a"},
			},
			expected: 0.0,
		},
		{
			name: "single segment",
			segments: []Segment{
				{Start: 1.5, End: 4.5, Text: "a"},
			},
			expected: 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Assemble(tt.segments)
			assert.Equal(t, tt.expected, result.Duration)
		})
	}
}

func TestAssembleConfidenceAverage(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 1, Text: "a", Confidence: floatPtr(0.9)},
		{Start: 1, End: 2, Text: "b", Confidence: nil},
		{Start: 2, End: 3, Text: "c", Confidence: floatPtr(-0.5)},
		{Start: 3, End: 4, Text: "d", Confidence: floatPtr(0.3)},
	}

	result := Assemble(segments)

	// Only the positive reported confidences participate
	assert.InDelta(t, 0.6, result.ConfidenceAverage, 1e-9)
}
