package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatorr/curatorr/internal/models"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestScanDirectoryClassification(t *testing.T) {
	dir := t.TempDir()

	poster := touch(t, dir, "poster.jpg")
	fanart := touch(t, dir, "fanart.png")
	trailer := touch(t, dir, "Movie-trailer.mp4")
	subtitle := touch(t, dir, "Movie.en.srt")
	theme := touch(t, dir, "theme.mp3")
	touch(t, dir, "Movie.mkv")       // primary video, excluded
	touch(t, dir, "notes.txt")       // no keyword, no sidecar rule
	touch(t, dir, "soundtrack.flac") // audio without theme keyword

	out, err := ScanDirectory(dir, "Movie.mkv")
	require.NoError(t, err)

	require.Len(t, out.Images[models.AssetPoster], 1)
	assert.Equal(t, poster, out.Images[models.AssetPoster][0].Path)
	require.Len(t, out.Images[models.AssetFanart], 1)
	assert.Equal(t, fanart, out.Images[models.AssetFanart][0].Path)

	assert.Equal(t, []string{trailer}, out.Trailers)
	require.Len(t, out.Subtitles, 1)
	assert.Equal(t, subtitle, out.Subtitles[0].Path)
	assert.Equal(t, "en", out.Subtitles[0].Language)
	assert.Equal(t, []string{theme}, out.Themes)
}

func TestScanDirectoryExcludesPrimaryVideo(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Movie-Trailer.mkv")
	touch(t, dir, "Another-Trailer.mkv")

	// Primary match is case-insensitive; only the other trailer remains.
	out, err := ScanDirectory(dir, "movie-trailer.mkv")
	require.NoError(t, err)
	assert.Len(t, out.Trailers, 1)
}

func TestScanDirectoryMissing(t *testing.T) {
	_, err := ScanDirectory(filepath.Join(t.TempDir(), "nope"), "")
	assert.Error(t, err)
}

func TestScanDirectorySkipsSubdirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "extras"), 0o755))
	touch(t, dir, "banner.jpg")

	out, err := ScanDirectory(dir, "")
	require.NoError(t, err)
	assert.Len(t, out.Images[models.AssetBanner], 1)
}

func TestScanExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "clearlogo.jpg") // logo requires png

	out, err := ScanDirectory(dir, "")
	require.NoError(t, err)
	assert.Empty(t, out.Images[models.AssetClearlogo])
}

func TestParseLanguageCode(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Movie.en.srt", "en"},
		{"Movie.eng.srt", "eng"},
		{"Movie.eng.forced.srt", "eng"},
		{"Movie.en.sdh.srt", "en"},
		{"Movie.srt", ""},
		{"Movie.2024.srt", ""},
		{"subtitle.srt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLanguageCode(tt.name))
		})
	}
}
