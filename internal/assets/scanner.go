package assets

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/curatorr/curatorr/internal/models"
)

// Extension sets for the sidecar rules that operate independently of the
// image spec registry.
var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".m4v": true, ".wmv": true, ".webm": true, ".ts": true,
	".mpg": true, ".mpeg": true,
}

var subtitleExtensions = map[string]bool{
	".srt": true, ".sub": true, ".ssa": true, ".ass": true,
	".vtt": true, ".idx": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".ogg": true, ".wav": true,
	".m4a": true, ".aac": true,
}

var trailerKeywords = []string{"trailer", "preview"}

// RawCandidate is a file matched to one asset-type spec, before validation.
type RawCandidate struct {
	Path string
	Spec *AssetTypeSpec
}

// SubtitleFile is a subtitle sidecar with an optional language code parsed
// from a ".xx." or ".xxx." filename segment.
type SubtitleFile struct {
	Path     string
	Language string
}

// ScanOutput is the classification of one entity directory: a multimap from
// asset type to raw image candidates, plus the sidecar files.
type ScanOutput struct {
	Images    map[models.AssetType][]RawCandidate
	Trailers  []string
	Subtitles []SubtitleFile
	Themes    []string
	Skipped   []models.SkippedFile
}

// ScanDirectory walks an entity's directory (non-recursive) and classifies
// every file against the spec registry and the sidecar rules. The primary
// video file is excluded from asset consideration. A single unreadable file
// is logged and skipped; the scan continues.
func ScanDirectory(dir, primaryVideoFile string) (*ScanOutput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	out := &ScanOutput{Images: make(map[models.AssetType][]RawCandidate)}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.EqualFold(name, primaryVideoFile) {
			continue
		}
		if _, err := entry.Info(); err != nil {
			log.Printf("Scan: unreadable file %s: %v", name, err)
			out.Skipped = append(out.Skipped, models.SkippedFile{
				Path: filepath.Join(dir, name), Reason: "unreadable: " + err.Error(),
			})
			continue
		}

		path := filepath.Join(dir, name)
		ext := strings.ToLower(filepath.Ext(name))

		switch {
		case videoExtensions[ext]:
			if hasTrailerKeyword(name) {
				out.Trailers = append(out.Trailers, path)
			}
		case subtitleExtensions[ext]:
			out.Subtitles = append(out.Subtitles, SubtitleFile{
				Path:     path,
				Language: parseLanguageCode(name),
			})
		case audioExtensions[ext]:
			if strings.Contains(strings.ToLower(name), "theme") {
				out.Themes = append(out.Themes, path)
			}
		default:
			for _, spec := range FindSpecsByFilename(name) {
				if !spec.ExtensionAllowed(ext) {
					continue
				}
				out.Images[spec.Type] = append(out.Images[spec.Type], RawCandidate{
					Path: path, Spec: spec,
				})
			}
		}
	}

	return out, nil
}

func hasTrailerKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range trailerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// parseLanguageCode extracts a 2- or 3-letter language code from filenames
// like "Movie.en.srt" or "Movie.eng.forced.srt". Returns "" when absent.
func parseLanguageCode(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, ".")
	// Walk segments right to left, skipping flag segments like "forced".
	for i := len(parts) - 1; i > 0; i-- {
		seg := strings.ToLower(parts[i])
		if seg == "forced" || seg == "sdh" || seg == "cc" {
			continue
		}
		if len(seg) == 2 || len(seg) == 3 {
			if isAlpha(seg) {
				return seg
			}
		}
		break
	}
	return ""
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
