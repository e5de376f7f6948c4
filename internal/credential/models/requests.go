package models

import (
	"strings"
	"time"

	dErrors "credvault/pkg/domain-errors"
)

// IssueRequest describes a credential to be issued. ExpiryDate is optional and
// absence means the credential never expires. Metadata is opaque to the core
// and echoed back verbatim.
type IssueRequest struct {
	CredentialID   string         `json:"credentialId"`
	HolderName     string         `json:"holderName"`
	IssuerName     string         `json:"issuerName"`
	CredentialType string         `json:"credentialType"`
	ExpiryDate     *time.Time     `json:"expiryDate,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Normalize trims surrounding whitespace so " CRED-1" and "CRED-1" are the same id.
func (r *IssueRequest) Normalize() {
	if r == nil {
		return
	}
	r.CredentialID = strings.TrimSpace(r.CredentialID)
	r.HolderName = strings.TrimSpace(r.HolderName)
	r.IssuerName = strings.TrimSpace(r.IssuerName)
	r.CredentialType = strings.TrimSpace(r.CredentialType)
}

// Validate checks that the request is well-formed. It never touches the store.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "Request body is required")
	}
	var missing []string
	if r.CredentialID == "" {
		missing = append(missing, "credentialId")
	}
	if r.HolderName == "" {
		missing = append(missing, "holderName")
	}
	if r.IssuerName == "" {
		missing = append(missing, "issuerName")
	}
	if r.CredentialType == "" {
		missing = append(missing, "credentialType")
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, "Missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// ToRecord builds the record to persist, stamped with the issuing worker.
// Store-managed timestamps (IssuedDate, CreatedAt, UpdatedAt) are left zero for
// the store to fill at creation time.
func (r *IssueRequest) ToRecord(workerID string) *Record {
	return &Record{
		CredentialID:   r.CredentialID,
		HolderName:     r.HolderName,
		IssuerName:     r.IssuerName,
		CredentialType: r.CredentialType,
		ExpiryDate:     r.ExpiryDate,
		WorkerID:       workerID,
		Metadata:       r.Metadata,
	}
}

// VerifyRequest identifies the credential to look up.
type VerifyRequest struct {
	CredentialID string `json:"credentialId"`
}

// Normalize trims surrounding whitespace from the id.
func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.CredentialID = strings.TrimSpace(r.CredentialID)
}

// Validate checks that the request is well-formed.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "Request body is required")
	}
	if r.CredentialID == "" {
		return dErrors.New(dErrors.CodeValidation, "Missing required field: credentialId")
	}
	return nil
}
