package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatorr/curatorr/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewStoreCreatesKindDirs(t *testing.T) {
	store := newTestStore(t)
	for _, kind := range []models.CacheKind{
		models.KindImages, models.KindVideo, models.KindText,
		models.KindAudio, models.KindActors,
	} {
		info, err := os.Stat(filepath.Join(store.Root(), string(kind)))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestPutShardedLayout(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.Put(models.KindImages, strings.NewReader("artwork bytes"), ".jpg")
	require.NoError(t, err)

	assert.Len(t, entry.Hash, 64)
	assert.Equal(t, "jpg", entry.Format)
	assert.Equal(t, int64(len("artwork bytes")), entry.SizeBytes)

	// {root}/images/{aa}/{bb}/{hash}.jpg
	want := filepath.Join(store.Root(), "images", entry.Hash[0:2], entry.Hash[2:4], entry.Hash+".jpg")
	assert.Equal(t, want, entry.FilePath)

	data, err := os.ReadFile(entry.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "artwork bytes", string(data))
}

func TestPutDedupInvariant(t *testing.T) {
	store := newTestStore(t)
	content := []byte("identical poster content")

	// Same bytes from two differently named sources yield one stored file.
	dir := t.TempDir()
	a := filepath.Join(dir, "poster.jpg")
	b := filepath.Join(dir, "cover-copy.jpg")
	require.NoError(t, os.WriteFile(a, content, 0o644))
	require.NoError(t, os.WriteFile(b, content, 0o644))

	e1, err := store.PutFile(models.KindImages, a)
	require.NoError(t, err)
	e2, err := store.PutFile(models.KindImages, b)
	require.NoError(t, err)

	assert.Equal(t, e1.Hash, e2.Hash)
	assert.Equal(t, e1.FilePath, e2.FilePath)

	// Exactly one file exists in the shard directory.
	entries, err := os.ReadDir(filepath.Dir(e1.FilePath))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPutNoStagingLeftovers(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Put(models.KindImages, bytes.NewReader([]byte("content")), ".png")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(store.Root(), "images"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".staging-"),
			"staging file %s left behind", e.Name())
	}
}

func TestPutNormalizesJpeg(t *testing.T) {
	store := newTestStore(t)
	entry, err := store.Put(models.KindImages, strings.NewReader("x"), ".JPEG")
	require.NoError(t, err)
	assert.Equal(t, "jpg", entry.Format)
	assert.True(t, strings.HasSuffix(entry.FilePath, ".jpg"))
}

func TestPutSniffsMissingExtension(t *testing.T) {
	store := newTestStore(t)

	// PNG magic bytes with no extension hint.
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a,
		0, 0, 0, 13, 'I', 'H', 'D', 'R',
		0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}
	entry, err := store.Put(models.KindImages, bytes.NewReader(pngHeader), "")
	require.NoError(t, err)
	assert.Equal(t, "png", entry.Format)
}

func TestStat(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.Put(models.KindText, strings.NewReader("1\n00:00:01,000 --> 00:00:02,000\nhi\n"), ".srt")
	require.NoError(t, err)

	got, err := store.Stat(models.KindText, entry.Hash)
	require.NoError(t, err)
	assert.Equal(t, entry.Hash, got.Hash)
	assert.Equal(t, entry.FilePath, got.FilePath)
	assert.Equal(t, "srt", got.Format)

	_, err = store.Stat(models.KindText, strings.Repeat("0", 64))
	assert.Error(t, err)

	_, err = store.Stat(models.KindText, "xy")
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.Put(models.KindImages, strings.NewReader("img"), ".png")
	require.NoError(t, err)

	url := store.PublicURL(entry)
	assert.Equal(t, "/cache/images/"+entry.Hash[0:2]+"/"+entry.Hash[2:4]+"/"+entry.Hash+".png", url)
}
