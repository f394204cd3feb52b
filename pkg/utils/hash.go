package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// HashPath creates a SHA256 hash of the cleaned absolute form of a path.
// It gives a stable, key-safe identifier for an output directory.
func HashPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	h := sha256.New()
	h.Write([]byte(filepath.Clean(path)))
	return hex.EncodeToString(h.Sum(nil))
}
