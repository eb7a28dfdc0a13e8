// Package mock provides test doubles for the ai package interfaces.
// The doubles produce deterministic output without any external service.
package mock
