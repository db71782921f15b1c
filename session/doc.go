// Package session provides SessionStore implementations: a volatile
// in-memory store with optional TTL eviction and a SQLite-backed store for
// persistence across restarts. It also provides the per-session lock used to
// serialize concurrent exchanges for the same session id.
package session
