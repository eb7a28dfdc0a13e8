// Package ingestion turns an uploaded file into persisted, embedded chunks.
//
// The Pipeline type runs the full workflow for a single upload:
//   - Validating size and declared mime type
//   - Short-circuiting duplicates by content hash
//   - Retaining the raw bytes under an uploads directory
//   - Extracting text per file type, chunking, and synthesizing metadata
//   - Embedding chunks and writing them to both stores
//
// A failure after the document record exists marks it failed and keeps the
// raw file for manual inspection; no chunk rows are written in that case.
package ingestion
