package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IdempotencyKey identifies one logical ledger operation across retries.
// It is derived from the tenant, the operation kind, and the caller-supplied
// (referenceType, referenceId) pair.
type IdempotencyKey string

// NewIdempotencyKey builds the key for a ledger operation
func NewIdempotencyKey(tenantID uuid.UUID, operation, referenceType, referenceID string) IdempotencyKey {
	return IdempotencyKey(fmt.Sprintf("%s:%s:%s:%s", tenantID, operation, referenceType, referenceID))
}

// IdempotencyStore remembers completed operations so a retried request can
// return the original result instead of re-executing. Entries expire after
// the configured TTL; the database-level reference check remains the
// authoritative guard.
type IdempotencyStore interface {
	// Get returns the stored result payload for the key, or ok=false
	Get(ctx context.Context, key IdempotencyKey) (payload []byte, ok bool, err error)

	// Set stores the result payload for the key with a TTL
	Set(ctx context.Context, key IdempotencyKey, payload []byte, ttl time.Duration) error

	// Delete removes the key
	Delete(ctx context.Context, key IdempotencyKey) error
}
