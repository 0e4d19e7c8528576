package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrDuplicateKey signals a unique-key violation on save. Consumers treat
// it as "another writer got there first" and drop the duplicate write.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrNotFound signals that a lookup matched no row.
var ErrNotFound = errors.New("not found")

// SyncJobNotFoundError is returned when a sedex-state event references a
// job id with no persisted SyncJob. The message is rejected to the broker's
// dead-letter policy.
type SyncJobNotFoundError struct {
	JobID uuid.UUID
}

func (e *SyncJobNotFoundError) Error() string {
	return fmt.Sprintf("sync job %s not found", e.JobID)
}

// SenderIDValidationError rejects an admission with an unknown sender id.
type SenderIDValidationError struct {
	SenderID string
	Valid    []string
}

func (e *SenderIDValidationError) Error() string {
	return fmt.Sprintf("validation of senderId failed, given senderId %q, valid senderId(s): %s",
		e.SenderID, strings.Join(e.Valid, ", "))
}
