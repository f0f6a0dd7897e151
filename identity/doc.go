// Package identity resolves the visitor identity that namespaces every
// remote call: an authenticated user ID when the host page supplies one,
// otherwise a durable anonymous session ID minted once per browser profile.
package identity
