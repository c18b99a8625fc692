package assets

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/curatorr/curatorr/internal/models"
)

// ComputePerceptualHash generates a 64-bit difference hash of an image file,
// returned as 16 hex characters. Near-identical artwork from different
// providers hashes to nearby values; exact dedup stays content-hash based.
func ComputePerceptualHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	// Sample a 9x8 grayscale grid and compare horizontal neighbours.
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 2 || h < 1 {
		return "", fmt.Errorf("image too small for hashing")
	}

	gray := make([][]float64, 8)
	for y := 0; y < 8; y++ {
		gray[y] = make([]float64, 9)
		for x := 0; x < 9; x++ {
			sx := bounds.Min.X + x*(w-1)/8
			sy := bounds.Min.Y + y*(h-1)/7
			r, g, b, _ := img.At(sx, sy).RGBA()
			c := color.GrayModel.Convert(color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255})
			gray[y][x] = float64(c.(color.Gray).Y)
		}
	}

	var hash uint64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			hash <<= 1
			if gray[y][x] < gray[y][x+1] {
				hash |= 1
			}
		}
	}
	return fmt.Sprintf("%016x", hash), nil
}

// HammingDistance counts differing bits between two hex hashes.
// Returns -1 when the hashes are not comparable.
func HammingDistance(hash1, hash2 string) int {
	if len(hash1) != len(hash2) || len(hash1) == 0 {
		return -1
	}
	distance := 0
	for i := 0; i < len(hash1); i++ {
		v1, err1 := strconv.ParseUint(string(hash1[i]), 16, 8)
		v2, err2 := strconv.ParseUint(string(hash2[i]), 16, 8)
		if err1 != nil || err2 != nil {
			return -1
		}
		xor := v1 ^ v2
		for xor > 0 {
			distance += int(xor & 1)
			xor >>= 1
		}
	}
	return distance
}

// Similarity returns a 0-1 score (1 = identical).
func Similarity(hash1, hash2 string) float64 {
	dist := HammingDistance(hash1, hash2)
	if dist < 0 {
		return 0
	}
	maxBits := len(hash1) * 4
	return 1.0 - float64(dist)/float64(maxBits)
}

// DuplicatePair flags two candidates whose perceptual hashes are close enough
// to be the same artwork sourced twice.
type DuplicatePair struct {
	A          uuid.UUID `json:"a"`
	B          uuid.UUID `json:"b"`
	Similarity float64   `json:"similarity"`
}

// NearDuplicates compares every hashed candidate pair and returns those at or
// above the similarity threshold. Byte-identical copies never get here; the
// content hash dedups them at cache time.
func NearDuplicates(list []*models.AssetCandidate, threshold float64) []DuplicatePair {
	var pairs []DuplicatePair
	for i := 0; i < len(list); i++ {
		if list[i].PerceptualHash == nil {
			continue
		}
		for j := i + 1; j < len(list); j++ {
			if list[j].PerceptualHash == nil {
				continue
			}
			sim := Similarity(*list[i].PerceptualHash, *list[j].PerceptualHash)
			if sim >= threshold {
				pairs = append(pairs, DuplicatePair{A: list[i].ID, B: list[j].ID, Similarity: sim})
			}
		}
	}
	return pairs
}
