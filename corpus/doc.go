// Package corpus implements the content-addressable vector index at the
// heart of claimcheck. A Store holds a flat in-memory index of embedding
// vectors with a parallel slice of chunk metadata, supports exact
// squared-L2 nearest-neighbor search, and persists itself as atomically
// committed snapshots on disk.
//
// The system runs two independent stores, one per corpus: "web" for
// ingested web content and "document" for uploaded document content.
package corpus
