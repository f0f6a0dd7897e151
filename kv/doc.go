// Package kv provides the durable key-value storage port used by the
// storefront state layer.
//
// It defines a Store interface with three implementations: Bolt (file-backed,
// shared across processes of the same profile), Memory (test double), and
// Null (no-storage contexts where every read misses and writes are dropped).
package kv
