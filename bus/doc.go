// Package bus provides change notification for the storefront state layer:
// an in-process topic registry that UI fragments subscribe to, and a Watcher
// that polls shared-storage revision keys so mutations committed by another
// tab of the same profile trigger re-reads here.
//
// Subscribers receive no payload. They are expected to re-pull current state
// from the owning store, which keeps notification delivery idempotent.
package bus
