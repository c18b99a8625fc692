package assets

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// minSizeTolerance admits near-miss candidates slightly under the spec
// minimum instead of rejecting them outright.
const minSizeTolerance = 0.9

// ValidationResult is the outcome of checking one candidate against a spec.
// An invalid candidate is not an error; the reason is recorded and the
// candidate is excluded from scoring.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// Validate checks image dimensions against a spec. Both the minimum-size and
// aspect-ratio checks must pass.
func Validate(width, height int, spec *AssetTypeSpec) ValidationResult {
	if width <= 0 || height <= 0 {
		return ValidationResult{Valid: false, Reason: "unknown dimensions"}
	}

	minW := float64(spec.MinWidth) * minSizeTolerance
	minH := float64(spec.MinHeight) * minSizeTolerance
	if float64(width) < minW || float64(height) < minH {
		return ValidationResult{
			Valid: false,
			Reason: fmt.Sprintf("%dx%d below minimum %dx%d (10%% tolerance)",
				width, height, spec.MinWidth, spec.MinHeight),
		}
	}

	ratio := float64(width) / float64(height)
	band := spec.AspectRatio * spec.Tolerance
	// A ratio landing exactly on the band edge must pass; pad the band by a
	// relative epsilon so float rounding cannot tip an edge value out.
	if math.Abs(ratio-spec.AspectRatio) > band*(1+1e-9) {
		return ValidationResult{
			Valid: false,
			Reason: fmt.Sprintf("aspect ratio %.3f outside %.3f±%.0f%%",
				ratio, spec.AspectRatio, spec.Tolerance*100),
		}
	}

	return ValidationResult{Valid: true}
}

// ProbeImage reads only the image header and returns width, height, and the
// normalized format ("jpeg", "png", "webp", ...).
func ProbeImage(path string) (width, height int, format string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, "", fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}
