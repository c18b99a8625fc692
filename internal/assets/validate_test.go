package assets

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatorr/curatorr/internal/models"
)

func TestValidateMinSizeTolerance(t *testing.T) {
	poster := SpecFor(models.AssetPoster)

	// Exactly 90% of the 500x750 minimum is accepted.
	assert.True(t, Validate(450, 675, poster).Valid)

	// Just under the tolerance floor is rejected.
	res := Validate(449, 673, poster)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "below minimum")
}

func TestValidateAspectRatio(t *testing.T) {
	poster := SpecFor(models.AssetPoster)

	// 2:3 exactly.
	assert.True(t, Validate(1000, 1500, poster).Valid)

	// Inside the ±8% ratio band.
	assert.True(t, Validate(719, 1000, poster).Valid)

	// Outside the band.
	res := Validate(730, 1000, poster)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "aspect ratio")

	// Square image is never a poster.
	assert.False(t, Validate(1000, 1000, poster).Valid)
}

func TestValidateAspectRatioBandEdge(t *testing.T) {
	poster := SpecFor(models.AssetPoster)

	// 720/1000 is exactly (2/3)*1.08, the upper edge of the ±8% band.
	// Float rounding of the difference must not reject it.
	res := Validate(720, 1000, poster)
	assert.True(t, res.Valid, "edge ratio rejected: %s", res.Reason)

	// One pixel past the edge is out.
	assert.False(t, Validate(721, 1000, poster).Valid)
}

func TestValidateFanart(t *testing.T) {
	fanart := SpecFor(models.AssetFanart)
	assert.True(t, Validate(1920, 1080, fanart).Valid)
	assert.True(t, Validate(1280, 720, fanart).Valid)
	assert.False(t, Validate(1000, 1500, fanart).Valid, "portrait ratio rejected")
	assert.False(t, Validate(800, 450, fanart).Valid, "below minimum size")
}

func TestValidateUnknownDimensions(t *testing.T) {
	poster := SpecFor(models.AssetPoster)
	assert.False(t, Validate(0, 0, poster).Valid)
	assert.False(t, Validate(-1, 100, poster).Valid)
}

func TestProbeImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe.png")
	writeTestPNG(t, path, 640, 480)

	w, h, format, err := ProbeImage(path)
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, "png", format)

	_, _, _, err = ProbeImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

// writeTestPNG writes a solid-color PNG of the given dimensions.
func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}
