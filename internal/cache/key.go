package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// keyPrefix namespaces listing keys so other payload kinds can share a store.
const keyPrefix = "listing-"

// ListingKey derives the key for the children of parentID at the endpoint
// sourceURL. Only surrounding whitespace and a trailing slash are stripped
// from the URL; any other spelling difference yields a separate key.
func ListingKey(sourceURL string, parentID int64) string {
	normalized := strings.TrimSuffix(strings.TrimSpace(sourceURL), "/")

	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(parentID, 10)))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
