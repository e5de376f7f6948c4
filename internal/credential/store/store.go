package store

import (
	"context"

	"credvault/internal/credential/models"
)

// Store is the durable keyed collection both services share. It is the single
// source of truth; its uniqueness guarantee on CredentialID is what makes
// issuance correct under concurrency.
//
// Error Contract:
//   - Save returns sentinel.ErrConflict when a record with the same
//     CredentialID already exists. The existing record is never mutated.
//   - FindByID returns sentinel.ErrNotFound when no record exists.
//   - Other failures are wrapped infrastructure errors.
type Store interface {
	// Save persists a new record, filling the store-managed timestamps
	// (IssuedDate, CreatedAt, UpdatedAt) on the passed record.
	Save(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, credentialID string) (*models.Record, error)
}
