// Package cache provides a file-backed store of listing answers with TTL
// expiration.
//
// The store sits underneath the in-memory widget cache: it remembers what the
// listing endpoint answered across process runs so repeated browsing sessions
// do not hit the endpoint again. Key features:
//   - One JSON file per entry in ~/.dyntree/cache/ (or DYNTREE_CACHE_DIR)
//   - Configurable TTL (default 1 hour) via config file, environment or flag
//   - Atomic writes (temp file + rename)
//   - Size cap enforced by Prune, oldest entries first
//   - SHA256 keys derived from the endpoint URL and parent id
package cache
