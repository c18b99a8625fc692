// Package cache implements the content-addressed store used for every asset
// kind. A file is stored once under a path derived from the sha256 of its
// bytes; identical content always resolves to the same entry regardless of
// original filename, entity, or discovery time.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/curatorr/curatorr/internal/models"
)

// PublicMount is the URL prefix under which cached files are served.
const PublicMount = "/cache"

type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating the kind subdirectories.
func NewStore(dir string) (*Store, error) {
	for _, kind := range []models.CacheKind{
		models.KindImages, models.KindVideo, models.KindText,
		models.KindAudio, models.KindActors,
	} {
		if err := os.MkdirAll(filepath.Join(dir, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return &Store{root: dir}, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// entryPath shards on the hash prefix to keep directory fan-out bounded:
// {root}/{kind}/{hash[0:2]}/{hash[2:4]}/{hash}.{ext}
func (s *Store) entryPath(kind models.CacheKind, hash, ext string) string {
	return filepath.Join(s.root, string(kind), hash[0:2], hash[2:4], hash+ext)
}

// PutFile caches a file from disk. If content with the same hash is already
// stored, the existing entry is returned without rewriting.
func (s *Store) PutFile(kind models.CacheKind, path string) (*models.CacheEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	return s.Put(kind, f, filepath.Ext(path))
}

// Put caches arbitrary content. ext is the original file extension (with
// dot); when empty the content type is sniffed. The write is crash-safe:
// content is staged to a temp file and atomically renamed into the hash
// path, so a concurrent reader never observes a partial file. Two writers
// racing on the same hash both commit identical bytes, so the second rename
// is harmless.
func (s *Store) Put(kind models.CacheKind, r io.Reader, ext string) (*models.CacheEntry, error) {
	kindDir := filepath.Join(s.root, string(kind))
	tmp, err := os.CreateTemp(kindDir, ".staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := sha256.New()
	size, err := io.Copy(tmp, io.TeeReader(r, hasher))
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("stage content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close staging file: %w", err)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	ext = normalizeExt(ext)
	if ext == "" {
		ext = sniffExt(tmpPath)
	}

	final := s.entryPath(kind, hash, ext)
	entry := &models.CacheEntry{
		Hash:      hash,
		Kind:      kind,
		FilePath:  final,
		Format:    strings.TrimPrefix(ext, "."),
		SizeBytes: size,
	}

	if _, err := os.Stat(final); err == nil {
		// Already cached; identical content by construction.
		return entry, nil
	}

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, fmt.Errorf("create shard dir: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return nil, fmt.Errorf("commit cache entry: %w", err)
	}
	return entry, nil
}

// Stat returns the entry for a hash if the stored file exists, searching the
// given kind. Format is recovered from the stored extension.
func (s *Store) Stat(kind models.CacheKind, hash string) (*models.CacheEntry, error) {
	if len(hash) < 4 {
		return nil, fmt.Errorf("malformed hash %q", hash)
	}
	dir := filepath.Join(s.root, string(kind), hash[0:2], hash[2:4])
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cache entry %s not found", hash)
	}
	for _, e := range entries {
		name := e.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == hash {
			info, err := e.Info()
			if err != nil {
				return nil, err
			}
			return &models.CacheEntry{
				Hash:      hash,
				Kind:      kind,
				FilePath:  filepath.Join(dir, name),
				Format:    strings.TrimPrefix(filepath.Ext(name), "."),
				SizeBytes: info.Size(),
			}, nil
		}
	}
	return nil, fmt.Errorf("cache entry %s not found", hash)
}

// PublicURL derives the serving URL for an entry by substituting the cache
// root with the public mount prefix.
func (s *Store) PublicURL(entry *models.CacheEntry) string {
	rel, err := filepath.Rel(s.root, entry.FilePath)
	if err != nil {
		return ""
	}
	return PublicMount + "/" + filepath.ToSlash(rel)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return ext
}

// sniffExt detects the extension from content when the source had none
// (provider URLs without a filename, uploads).
func sniffExt(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		log.Printf("[cache] content sniff failed for %s: %v", path, err)
		return ".bin"
	}
	if ext := mt.Extension(); ext != "" {
		return normalizeExt(ext)
	}
	return ".bin"
}
