package assets

import (
	"path/filepath"
	"strings"

	"github.com/curatorr/curatorr/internal/models"
)

// Score components. Maximum total is 85 (50 + 25 + 10).
const (
	scoreExactName   = 50
	scoreKeywordName = 30

	scoreRes4M = 25
	scoreRes2M = 20
	scoreRes1M = 15
	scoreResLo = 10

	scoreFormatJPG = 10
	scoreFormatPNG = 8
)

// Score ranks a candidate file of one asset type. Purely deterministic:
// naming convention + resolution tier + format. The result is persisted on
// the candidate and re-used by selection without recomputation.
func Score(filename string, width, height int, spec *AssetTypeSpec) int {
	return namingScore(filename, spec) + resolutionScore(width*height) + formatScore(filename)
}

// ScoreCandidate scores a local candidate row. Provider candidates carry no
// meaningful filename; they get the keyword-less naming score.
func ScoreCandidate(c *models.AssetCandidate, spec *AssetTypeSpec) int {
	return Score(c.FileName(), c.Width, c.Height, spec)
}

func namingScore(filename string, spec *AssetTypeSpec) int {
	if filename == "" {
		return 0
	}
	if spec.ExactName(filename) {
		return scoreExactName
	}
	base := strings.ToLower(strings.TrimSuffix(filename, filepath.Ext(filename)))
	for _, kw := range spec.Keywords {
		if strings.Contains(base, kw) {
			return scoreKeywordName
		}
	}
	return 0
}

func resolutionScore(pixels int) int {
	switch {
	case pixels > 4_000_000:
		return scoreRes4M
	case pixels > 2_000_000:
		return scoreRes2M
	case pixels > 1_000_000:
		return scoreRes1M
	default:
		return scoreResLo
	}
}

func formatScore(filename string) int {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return scoreFormatJPG
	case ".png":
		return scoreFormatPNG
	default:
		return 0
	}
}
