// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for corpus.
//
// This package defines the two persisted-store contracts that the ingestion
// pipeline and the hybrid searcher depend on, decoupled from any concrete
// backend:
//
//   - DocumentRepository: relational-style records for documents and chunks,
//     with content-hash dedup lookup and paginated listing
//   - VectorIndex: nearest-neighbor store over chunk embeddings, with
//     equality filtering for document-scoped search
//
// The two stores are deliberately separate interfaces even though the
// default backend (storage/badger) implements both over a single embedded
// database: the pipeline performs no cross-store transaction between them,
// and the reconciliation sweep in the engine depends on being able to
// compare their contents independently.
//
// # Constructor Return Type Pattern
//
// Backend packages return these interfaces from their public constructors to
// prevent accidental coupling to backend specifics:
//
//	repo, index, err := badger.NewStores(backend)
//
// # Thread Safety
//
// All implementations must be thread-safe. Both stores are shared,
// multi-reader resources; the ingestion pipeline is the sole writer for a
// given document ID at a time.
package storage
