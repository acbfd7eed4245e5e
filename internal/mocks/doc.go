// Package mocks provides centralized mock implementations for testing.
//
// Instead of defining inline mocks in individual test files, these
// standardized implementations can be reused across packages. Each mock
// exposes function fields to override behavior per test, default response
// values, and call tracking for verification.
package mocks
