package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// HashKey creates a SHA256 hash of an arbitrary string.
// This is useful for creating consistent, safe keys for Redis and Postgres.
func HashKey(s string) string {
	h := sha256.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// CityIDFromPath derives a city identifier from a capture file path, for
// capture files whose body lacks an explicit city_id. Files are named
// {cityID}_data.json, so the identifier is everything before the first
// underscore.
func CityIDFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	if i := strings.Index(name, "_"); i > 0 {
		return name[:i]
	}
	return name
}
