package assets

import (
	"path/filepath"
	"strings"

	"github.com/curatorr/curatorr/internal/models"
)

// AssetTypeSpec holds the physical-format rules for one artwork type.
// Exactly one spec exists per type; keyword sets may overlap across types,
// so a filename can match several specs and is evaluated against each.
type AssetTypeSpec struct {
	Type        models.AssetType `json:"type"`
	Keywords    []string         `json:"keywords"`
	Extensions  []string         `json:"extensions"`
	AspectRatio float64          `json:"aspect_ratio"` // target width/height
	Tolerance   float64          `json:"tolerance"`    // fraction of the target ratio
	MinWidth    int              `json:"min_width"`
	MinHeight   int              `json:"min_height"`
	RecWidth    int              `json:"rec_width"`
	RecHeight   int              `json:"rec_height"`
	// MaxSelected is the default selection limit; overridable via settings.
	MaxSelected int `json:"max_selected"`
}

var jpgPng = []string{".jpg", ".jpeg", ".png", ".webp"}
var pngOnly = []string{".png"} // types that require transparency

// registry is the static per-type rule table. Adding an asset type means
// adding a row here, not new branches in the scanner.
var registry = []AssetTypeSpec{
	{
		Type:        models.AssetPoster,
		Keywords:    []string{"poster", "folder", "cover", "movie"},
		Extensions:  jpgPng,
		AspectRatio: 2.0 / 3.0,
		Tolerance:   0.08,
		MinWidth:    500, MinHeight: 750,
		RecWidth: 1000, RecHeight: 1500,
		MaxSelected: 1,
	},
	{
		Type:        models.AssetFanart,
		Keywords:    []string{"fanart", "backdrop", "background"},
		Extensions:  jpgPng,
		AspectRatio: 16.0 / 9.0,
		Tolerance:   0.08,
		MinWidth:    1280, MinHeight: 720,
		RecWidth: 1920, RecHeight: 1080,
		MaxSelected: 20,
	},
	{
		Type:        models.AssetBanner,
		Keywords:    []string{"banner"},
		Extensions:  jpgPng,
		AspectRatio: 1000.0 / 185.0,
		Tolerance:   0.15,
		MinWidth:    758, MinHeight: 140,
		RecWidth: 1000, RecHeight: 185,
		MaxSelected: 1,
	},
	{
		Type:        models.AssetClearlogo,
		Keywords:    []string{"clearlogo", "logo"},
		Extensions:  pngOnly,
		AspectRatio: 800.0 / 310.0,
		Tolerance:   0.5,
		MinWidth:    400, MinHeight: 155,
		RecWidth: 800, RecHeight: 310,
		MaxSelected: 1,
	},
	{
		Type:        models.AssetClearart,
		Keywords:    []string{"clearart"},
		Extensions:  pngOnly,
		AspectRatio: 1000.0 / 562.0,
		Tolerance:   0.5,
		MinWidth:    500, MinHeight: 281,
		RecWidth: 1000, RecHeight: 562,
		MaxSelected: 1,
	},
	{
		Type:        models.AssetDiscart,
		Keywords:    []string{"discart", "disc"},
		Extensions:  pngOnly,
		AspectRatio: 1.0,
		Tolerance:   0.3,
		MinWidth:    500, MinHeight: 500,
		RecWidth: 1000, RecHeight: 1000,
		MaxSelected: 1,
	},
	{
		Type:        models.AssetKeyart,
		Keywords:    []string{"keyart"},
		Extensions:  jpgPng,
		AspectRatio: 2.0 / 3.0,
		Tolerance:   0.08,
		MinWidth:    500, MinHeight: 750,
		RecWidth: 1000, RecHeight: 1500,
		MaxSelected: 1,
	},
	{
		Type:        models.AssetLandscape,
		Keywords:    []string{"landscape", "thumb"},
		Extensions:  jpgPng,
		AspectRatio: 16.0 / 9.0,
		Tolerance:   0.1,
		MinWidth:    500, MinHeight: 281,
		RecWidth: 1000, RecHeight: 562,
		MaxSelected: 1,
	},
}

// SpecFor returns the registry row for an asset type, or nil for types
// without image rules (trailer, subtitle, theme).
func SpecFor(t models.AssetType) *AssetTypeSpec {
	for i := range registry {
		if registry[i].Type == t {
			return &registry[i]
		}
	}
	return nil
}

// AllSpecs returns the full registry.
func AllSpecs() []AssetTypeSpec {
	return registry
}

// FindSpecsByFilename returns every spec whose keyword list matches the
// filename (case-insensitive substring on the name without extension).
// Zero, one, or several specs may match.
func FindSpecsByFilename(name string) []*AssetTypeSpec {
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))

	var matched []*AssetTypeSpec
	for i := range registry {
		for _, kw := range registry[i].Keywords {
			if strings.Contains(base, kw) {
				matched = append(matched, &registry[i])
				break
			}
		}
	}
	return matched
}

// ExtensionAllowed reports whether ext (with leading dot) is acceptable for
// the spec. Types requiring transparency accept only the alpha-capable format.
func (s *AssetTypeSpec) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range s.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ExactName reports whether the filename is the exact Kodi-standard name for
// this type: "{type}.jpg" or "{type}.png".
func (s *AssetTypeSpec) ExactName(name string) bool {
	lower := strings.ToLower(name)
	return lower == string(s.Type)+".jpg" || lower == string(s.Type)+".png"
}

// DefaultLimits returns the built-in per-type selection limits, including the
// non-image types handled by scanner rules instead of the registry.
func DefaultLimits() map[models.AssetType]int {
	limits := map[models.AssetType]int{
		models.AssetTrailer:  5,
		models.AssetSubtitle: 50,
		models.AssetTheme:    1,
	}
	for i := range registry {
		limits[registry[i].Type] = registry[i].MaxSelected
	}
	return limits
}
