package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/curatorr/curatorr/internal/models"
)

func TestScoreComponents(t *testing.T) {
	poster := SpecFor(models.AssetPoster)

	// Exact Kodi name, 1.5M pixels, jpg: 50 + 15 + 10.
	assert.Equal(t, 75, Score("poster.jpg", 1000, 1500, poster))

	// Keyword name, same resolution tier, png: 30 + 15 + 8.
	assert.Equal(t, 53, Score("movie-poster-alt.png", 1000, 1500, poster))

	// No keyword at all: resolution + format only.
	assert.Equal(t, 25, Score("img001.jpg", 1000, 1500, poster))
}

func TestScoreResolutionTiers(t *testing.T) {
	poster := SpecFor(models.AssetPoster)

	tests := []struct {
		w, h int
		want int
	}{
		{2000, 3000, 50 + 25 + 10}, // 6M pixels
		{1400, 2100, 50 + 20 + 10}, // 2.9M
		{1000, 1500, 50 + 15 + 10}, // 1.5M
		{800, 1200, 50 + 10 + 10},  // 0.96M
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Score("poster.jpg", tt.w, tt.h, poster))
	}
}

func TestScoreMonotonicity(t *testing.T) {
	poster := SpecFor(models.AssetPoster)

	// Same resolution and format: exact name always outranks keyword name.
	exact := Score("poster.jpg", 1000, 1500, poster)
	keyword := Score("movie-poster-hd.jpg", 1000, 1500, poster)
	assert.Greater(t, exact, keyword)
	assert.Equal(t, 20, exact-keyword)
}

func TestScoreMaximum(t *testing.T) {
	poster := SpecFor(models.AssetPoster)
	// Exact name + top tier + jpg is the ceiling.
	assert.Equal(t, 85, Score("poster.jpg", 3000, 4500, poster))
}

func TestScoreCandidateProviderOrigin(t *testing.T) {
	poster := SpecFor(models.AssetPoster)

	// Provider candidates have no file path, so no naming score applies.
	c := &models.AssetCandidate{Width: 2000, Height: 3000}
	assert.Equal(t, 25, ScoreCandidate(c, poster))
}
