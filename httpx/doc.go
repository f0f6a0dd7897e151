// Package httpx provides the hardened JSON HTTP client shared by the
// reference-data cache and the wishlist store.
//
// Transient failures (network errors, 5xx responses) are retried with
// jittered exponential backoff; client errors (4xx) are returned immediately
// as StatusError so callers can map them (409 conflicts in particular).
// Context cancellation aborts in-flight requests and is never retried.
package httpx
