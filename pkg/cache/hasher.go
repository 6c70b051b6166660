package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AddressKey builds a cache key for a normalized address string.
func AddressKey(normalized string) string {
	if normalized == "" {
		return ""
	}
	return fmt.Sprintf("geocode:%s", ShortHash([]byte(normalized)))
}

// PairKey builds a cache key for an origin/destination coordinate pair,
// rounded to 5 decimal places (~1m) so that floating point noise doesn't
// fragment the cache.
func PairKey(originLat, originLng, destLat, destLng float64) string {
	canonical := fmt.Sprintf("%.5f,%.5f->%.5f,%.5f", originLat, originLng, destLat, destLng)
	return fmt.Sprintf("matrix:%s", ShortHash([]byte(canonical)))
}

// BuildProviderKey builds a cache key namespaced by kind (e.g. "geocode",
// "matrix") and provider name, for results that should be invalidated or
// inspected per-provider.
func BuildProviderKey(kind, provider, hash string) string {
	return fmt.Sprintf("%s:%s:%s", kind, provider, hash)
}

// QuickHash hashes arbitrary data to a full SHA-256 hex digest.
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash hashes arbitrary data to a 16-character hex digest, short
// enough to use as a cache key component.
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
