// Package refdata implements the read-through cache of catalog reference
// collections: categories, platforms, filter vocabularies and site settings.
//
// Entries live in durable storage with a 24-hour TTL so a warm profile can
// paint its first render without the network. Every failure mode degrades to
// an empty collection: a fetch error, a corrupt stored payload and an expired
// entry all behave like a miss, never like an error the UI has to handle.
// Concurrent misses for the same collection are coalesced into one fetch.
package refdata
