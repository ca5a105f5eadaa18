package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
)

func TestExtractObjects(t *testing.T) {
	caption := "A person stands next to a whiteboard with a chart drawn on it."
	objects := ExtractObjects(caption)
	assert.Contains(t, objects, "person")
	assert.Contains(t, objects, "whiteboard")
	assert.Contains(t, objects, "chart")
	assert.NotContains(t, objects, "car")

	assert.Empty(t, ExtractObjects("An empty blue sky."))
}

func TestExtractLabels(t *testing.T) {
	tests := []struct {
		caption string
		want    []string
	}{
		{
			caption: "This appears to be a presentation slide with bullet points.",
			want:    []string{"presentation"},
		},
		{
			caption: "A screen capture of a computer desktop.",
			want:    []string{"screen-capture"},
		},
		{
			caption: "A bar chart showing quarterly revenue.",
			want:    []string{"data-visualization"},
		},
		{
			caption: "Dense text fills the frame, likely a document.",
			want:    []string{"text-heavy"},
		},
		{
			// "flowchart" also matches the chart keyword
			caption: "A flowchart describing the deployment process.",
			want:    []string{"data-visualization", "diagram"},
		},
		{
			caption: "An outdoor scene with trees.",
			want:    nil,
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractLabels(tt.caption), "caption: %s", tt.caption)
	}
}

func TestExtractLabelsMultiple(t *testing.T) {
	labels := ExtractLabels(`A presentation slide shown on a computer screen with the text "Q3 Results".`)
	assert.Contains(t, labels, "presentation")
	assert.Contains(t, labels, "screen-capture")
	assert.Contains(t, labels, "text-heavy")
}

func TestExtractTextFromCaption(t *testing.T) {
	assert.Equal(t, "Q3 Results", ExtractTextFromCaption(`A slide titled "Q3 Results" on screen.`))
	assert.Equal(t, "Hello World", ExtractTextFromCaption(`Signs reading "Hello" and "World" are visible.`))
	assert.Equal(t, "", ExtractTextFromCaption("No quoted text here."))
	assert.Equal(t, "", ExtractTextFromCaption(`An unterminated "quote`))
}

func TestTextBearing(t *testing.T) {
	assert.True(t, entity.VisionCaption{Labels: []string{"presentation"}}.TextBearing())
	assert.True(t, entity.VisionCaption{Labels: []string{"diagram", "text-heavy"}}.TextBearing())
	assert.False(t, entity.VisionCaption{Labels: []string{"data-visualization"}}.TextBearing())
	assert.False(t, entity.VisionCaption{}.TextBearing())
}
