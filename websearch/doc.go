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

// Package websearch defines the contract between the retrieval engine and
// an external web-search collaborator.
//
// The engine never fetches the web itself. It asks a Provider to derive
// focused sub-queries, locate result candidates, and extract page text,
// and fuses whatever comes back with document evidence. Deployments plug
// in a real provider; tests use the scripted double in websearch/mock.
package websearch
