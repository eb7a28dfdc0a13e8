// Package search implements hybrid retrieval over the document corpus
// and the web.
//
// A Searcher embeds the query, pulls top-K chunk hits from the vector
// index, enriches them from the document repository, and scores the set
// with a confidence heuristic. Depending on the mode it then consults
// the web collaborator, fuses both evidence kinds into a labeled context
// string, and emits a citation list. Stage failures degrade to empty
// results for that stage; Search never returns an error to the caller.
package search
