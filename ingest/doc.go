// Package ingest turns raw source content into corpus chunks. It
// provides the recursive character splitter, the single-content
// Ingestor (fingerprint dedup, chunking, batch embedding, corpus
// insert) and an ants-backed Pipeline for bulk ingestion.
package ingest
