// Package mock provides a scripted test double for websearch.Provider.
package mock
