// Package storage defines the persistence interfaces for claimcheck's
// durable collections: the structured article store and the
// verification history log. The interfaces are backend-agnostic;
// the BadgerDB implementation lives in storage/badger.
//
// Vector search is deliberately not part of this package: the corpus
// package owns the vector index and its snapshot persistence.
package storage
