// Package pool provides a bounded pool of reusable handles to the upstream
// AI service. The number of concurrently checked-out handles never exceeds
// the configured size. Handles failing an operation are marked unhealthy,
// discarded at release time and lazily recreated on a later acquisition.
package pool
