package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatorr/curatorr/internal/models"
)

func TestSpecFor(t *testing.T) {
	spec := SpecFor(models.AssetPoster)
	require.NotNil(t, spec)
	assert.Equal(t, models.AssetPoster, spec.Type)
	assert.Equal(t, 500, spec.MinWidth)
	assert.Equal(t, 750, spec.MinHeight)

	assert.Nil(t, SpecFor(models.AssetTrailer), "trailer has no image spec")
	assert.Nil(t, SpecFor(models.AssetSubtitle))
}

func TestFindSpecsByFilename(t *testing.T) {
	tests := []struct {
		name  string
		types []models.AssetType
	}{
		{"poster.jpg", []models.AssetType{models.AssetPoster}},
		{"movie-poster-alt.png", []models.AssetType{models.AssetPoster}},
		{"fanart.jpg", []models.AssetType{models.AssetFanart}},
		{"backdrop1.jpg", []models.AssetType{models.AssetFanart}},
		{"clearlogo.png", []models.AssetType{models.AssetClearlogo}},
		// "landscape" and "thumb" route to the same type
		{"landscape-thumb.jpg", []models.AssetType{models.AssetLandscape}},
		{"subtitles.srt", nil},
		{"random-screenshot.jpg", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs := FindSpecsByFilename(tt.name)
			var got []models.AssetType
			for _, s := range specs {
				got = append(got, s.Type)
			}
			assert.ElementsMatch(t, tt.types, got)
		})
	}
}

func TestFindSpecsByFilenameMultiMatch(t *testing.T) {
	// A name carrying keywords of two types matches both specs.
	specs := FindSpecsByFilename("movie-banner.jpg")
	var got []models.AssetType
	for _, s := range specs {
		got = append(got, s.Type)
	}
	assert.Contains(t, got, models.AssetPoster)
	assert.Contains(t, got, models.AssetBanner)
}

func TestExtensionAllowed(t *testing.T) {
	poster := SpecFor(models.AssetPoster)
	assert.True(t, poster.ExtensionAllowed(".jpg"))
	assert.True(t, poster.ExtensionAllowed(".JPG"))
	assert.True(t, poster.ExtensionAllowed(".png"))
	assert.False(t, poster.ExtensionAllowed(".gif"))

	// Transparency types accept only png.
	logo := SpecFor(models.AssetClearlogo)
	assert.True(t, logo.ExtensionAllowed(".png"))
	assert.False(t, logo.ExtensionAllowed(".jpg"))
}

func TestExactName(t *testing.T) {
	poster := SpecFor(models.AssetPoster)
	assert.True(t, poster.ExactName("poster.jpg"))
	assert.True(t, poster.ExactName("Poster.PNG"))
	assert.False(t, poster.ExactName("movie-poster.jpg"))
	assert.False(t, poster.ExactName("poster.webp"))
}

func TestDefaultLimits(t *testing.T) {
	limits := DefaultLimits()
	assert.Equal(t, 1, limits[models.AssetPoster])
	assert.Equal(t, 20, limits[models.AssetFanart])
	assert.Equal(t, 5, limits[models.AssetTrailer])
	assert.Equal(t, 50, limits[models.AssetSubtitle])
	assert.Equal(t, 1, limits[models.AssetTheme])
}
