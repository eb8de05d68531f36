// Package integration contains integration tests for the fleet service.
//
// These tests use testcontainers to spin up real dependencies (Redis) and
// exercise the demo sandbox and the rate limiter against them. They are
// skipped with -short.
package integration
