package offline

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const cacheVersion = "v1"

type cachedRows[T any] struct {
	Rows     []T
	Skipped  int
	CachedAt time.Time
}

func cacheFilename(dir, csvPath string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(csvPath)
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

// loadCache returns cached rows for csvPath when the cache is newer than the file.
func loadCache[T any](dir, csvPath string) (cachedRows[T], bool) {
	var data cachedRows[T]
	if dir == "" {
		return data, false
	}

	info, err := os.Stat(csvPath)
	if err != nil {
		return data, false
	}

	file, err := os.Open(cacheFilename(dir, csvPath))
	if err != nil {
		return data, false
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return data, false
	}
	if !info.ModTime().Before(data.CachedAt) {
		return data, false
	}
	return data, true
}

func saveCache[T any](dir, csvPath string, rows []T, skipped int) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(cacheFilename(dir, csvPath))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(cachedRows[T]{Rows: rows, Skipped: skipped, CachedAt: time.Now()})
}
