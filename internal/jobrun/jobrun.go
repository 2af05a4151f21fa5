// Package jobrun generates the per-invocation identifier stamped into
// joblog rows (verbose reporter lines do not carry it), grounded on
// internal/server/middleware.go's RequestID middleware, which stamps
// every inbound request with a uuid.New().String() when the caller
// didn't supply one.
package jobrun

import "github.com/google/uuid"

// NewID generates a fresh run id for one gopar invocation.
func NewID() string {
	return uuid.New().String()
}
