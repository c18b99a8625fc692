package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatorr/curatorr/internal/models"
)

func writeGradientPNG(t *testing.T, path string, width, height int, invert bool) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(x * 255 / width)
			if invert {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestComputePerceptualHash(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writeGradientPNG(t, a, 100, 100, false)

	hash, err := ComputePerceptualHash(a)
	require.NoError(t, err)
	assert.Len(t, hash, 16)
}

func TestPerceptualHashStability(t *testing.T) {
	dir := t.TempDir()

	// Same gradient at different sizes hashes identically: the sample grid
	// normalizes scale.
	small := filepath.Join(dir, "small.png")
	large := filepath.Join(dir, "large.png")
	writeGradientPNG(t, small, 80, 80, false)
	writeGradientPNG(t, large, 400, 400, false)

	h1, err := ComputePerceptualHash(small)
	require.NoError(t, err)
	h2, err := ComputePerceptualHash(large)
	require.NoError(t, err)

	assert.LessOrEqual(t, HammingDistance(h1, h2), 4, "scaled copies should be near-identical")
}

func TestPerceptualHashDistinguishes(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeGradientPNG(t, a, 100, 100, false)
	writeGradientPNG(t, b, 100, 100, true)

	h1, err := ComputePerceptualHash(a)
	require.NoError(t, err)
	h2, err := ComputePerceptualHash(b)
	require.NoError(t, err)

	// Opposite gradients flip every neighbour comparison.
	assert.Greater(t, HammingDistance(h1, h2), 32)
	assert.Less(t, Similarity(h1, h2), 0.5)
}

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0, HammingDistance("ff00", "ff00"))
	assert.Equal(t, 16, HammingDistance("ff00", "00ff"))
	assert.Equal(t, 1, HammingDistance("0", "1"))
	assert.Equal(t, -1, HammingDistance("ff", "fff"), "length mismatch")
	assert.Equal(t, -1, HammingDistance("zz", "ff"), "non-hex input")
	assert.Equal(t, 1.0, Similarity("abcd", "abcd"))
}

func TestNearDuplicates(t *testing.T) {
	hashed := func(id uuid.UUID, hash string) *models.AssetCandidate {
		return &models.AssetCandidate{ID: id, PerceptualHash: &hash}
	}
	idA, idB, idC := uuid.New(), uuid.New(), uuid.New()
	list := []*models.AssetCandidate{
		hashed(idA, "ffffffffffffffff"),
		hashed(idB, "fffffffffffffffe"), // one bit off idA
		hashed(idC, "0000000000000000"),
		{ID: uuid.New()}, // never hashed, skipped
	}

	pairs := NearDuplicates(list, 0.92)
	require.Len(t, pairs, 1)
	assert.Equal(t, idA, pairs[0].A)
	assert.Equal(t, idB, pairs[0].B)
	assert.Greater(t, pairs[0].Similarity, 0.92)
}
