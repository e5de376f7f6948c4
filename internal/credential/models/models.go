package models

import (
	"maps"
	"time"
)

// Record is the persisted credential.
//
// Invariants:
//   - CredentialID is globally unique across the store for the lifetime of the
//     system; the store's uniqueness constraint is the arbiter, not the service.
//   - A record is never updated or deleted once written (append-only).
//   - Expiry is derived, never stored: a record is expired iff ExpiryDate is set
//     and lies before the evaluation instant. It is recomputed on every
//     verification call.
type Record struct {
	CredentialID   string         `json:"credentialId"`
	HolderName     string         `json:"holderName"`
	IssuerName     string         `json:"issuerName"`
	CredentialType string         `json:"credentialType"`
	IssuedDate     time.Time      `json:"issuedDate"`
	ExpiryDate     *time.Time     `json:"expiryDate,omitempty"`
	WorkerID       string         `json:"workerId"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// IsExpired reports whether the credential has expired as of now.
// A nil ExpiryDate means the credential never expires.
func (r *Record) IsExpired(now time.Time) bool {
	return r.ExpiryDate != nil && r.ExpiryDate.Before(now)
}

// Clone returns a deep copy so callers can hand records across goroutines
// without sharing the metadata map.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Metadata != nil {
		cp.Metadata = maps.Clone(r.Metadata)
	}
	return &cp
}
