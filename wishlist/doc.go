// Package wishlist implements the remote-synchronized wishlist store.
//
// Unlike the cart, the wishlist's source of truth is the server: the local
// state is a mirror of confirmed responses and is never mutated
// optimistically, so it stays faithful to the authoritative copy a visitor
// may also touch from another device. A 409 on add is a benign idempotent
// no-op, not a failure to alarm the UI about. Toggle semantics are the
// caller's job: check Contains and pick Add or Remove.
package wishlist
