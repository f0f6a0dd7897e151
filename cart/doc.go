// Package cart implements the local shopping cart store.
//
// The cart is deliberately client-resident: every operation is synchronous,
// mutates an in-memory collection and persists the whole collection, so
// add-to-cart never waits on the network. Cart abandonment is acceptable;
// there is no remote counterpart. This asymmetry with the
// network-confirmed wishlist store is intentional.
package cart
