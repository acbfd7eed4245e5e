// Package service contains the business logic orchestrating the stores,
// caches and event emitter. Services depend only on interfaces so they
// can be exercised with in-memory fakes.
package service
