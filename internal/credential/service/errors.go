package service

import (
	"fmt"
	"time"
)

// DuplicateError reports an issuance attempt for an id that already exists.
// It carries the original record's attribution so the caller can see which
// worker issued first and when; the new request's worker never overwrites it.
type DuplicateError struct {
	CredentialID string
	IssuedBy     string
	IssuedAt     time.Time
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("Credential with ID %s already exists", e.CredentialID)
}

// NotFoundError reports a verification lookup for an id that was never issued.
// It still attributes the failed verification to the worker that performed it.
type NotFoundError struct {
	CredentialID string
	VerifiedBy   string
	Timestamp    time.Time
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Credential with ID %s not found", e.CredentialID)
}
