package surface

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Common abbreviations in Australian road names, expanded before hashing
var abbreviations = map[string]string{
	"rd":   "road",
	"st":   "street",
	"hwy":  "highway",
	"dr":   "drive",
	"ave":  "avenue",
	"tk":   "track",
	"trk":  "track",
	"4x4":  "4wd",
	"mt":   "mount",
	"pde":  "parade",
	"tce":  "terrace",
	"cres": "crescent",
}

// HashRoadName returns a content hash of a normalized road name so that
// "Lyell Hwy" and "LYELL HIGHWAY" share a cache entry
func HashRoadName(name string) string {
	hash := sha256.Sum256([]byte(normalizeName(name)))
	return fmt.Sprintf("%x", hash)
}

func normalizeName(name string) string {
	tokens := tokenize(name)
	for i, tok := range tokens {
		if full, ok := abbreviations[tok]; ok {
			tokens[i] = full
		}
	}
	return strings.Join(tokens, " ")
}
