package handler

import (
	"time"

	"credvault/internal/credential/models"
	"credvault/internal/credential/service"
)

// CredentialData is the record as echoed back to clients. Store bookkeeping
// timestamps (created_at/updated_at) stay internal.
type CredentialData struct {
	CredentialID   string         `json:"credentialId"`
	HolderName     string         `json:"holderName"`
	IssuerName     string         `json:"issuerName"`
	CredentialType string         `json:"credentialType"`
	IssuedDate     time.Time      `json:"issuedDate"`
	ExpiryDate     *time.Time     `json:"expiryDate,omitempty"`
	WorkerID       string         `json:"workerId,omitempty"`
	IssuedBy       string         `json:"issuedBy,omitempty"`
	VerifiedBy     string         `json:"verifiedBy,omitempty"`
	IsExpired      *bool          `json:"isExpired,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// IssueResponse is the 201 envelope for successful issuance.
type IssueResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    CredentialData `json:"data"`
}

// DuplicateResponse is the 409 envelope; it attributes the id to its original
// issuer, not the rejected request.
type DuplicateResponse struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	IssuedBy string     `json:"issuedBy,omitempty"`
	IssuedAt *time.Time `json:"issuedAt,omitempty"`
}

// VerifyResponse is the 200 envelope for a found credential. Verified is true
// even when the credential has expired; isExpired carries the advisory flag.
type VerifyResponse struct {
	Success   bool           `json:"success"`
	Verified  bool           `json:"verified"`
	Message   string         `json:"message"`
	Data      CredentialData `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// NotFoundResponse is the 404 envelope; the failed verification is still
// attributed to the worker that performed it.
type NotFoundResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Verified   bool   `json:"verified"`
	VerifiedBy string `json:"verifiedBy"`
	Timestamp  string `json:"timestamp"`
}

func issuedData(record *models.Record) CredentialData {
	return CredentialData{
		CredentialID:   record.CredentialID,
		HolderName:     record.HolderName,
		IssuerName:     record.IssuerName,
		CredentialType: record.CredentialType,
		IssuedDate:     record.IssuedDate,
		ExpiryDate:     record.ExpiryDate,
		WorkerID:       record.WorkerID,
		Metadata:       record.Metadata,
	}
}

func verifiedData(result *service.VerifyResult) CredentialData {
	record := result.Credential
	isExpired := result.IsExpired
	return CredentialData{
		CredentialID:   record.CredentialID,
		HolderName:     record.HolderName,
		IssuerName:     record.IssuerName,
		CredentialType: record.CredentialType,
		IssuedDate:     record.IssuedDate,
		ExpiryDate:     record.ExpiryDate,
		IssuedBy:       result.IssuedBy,
		VerifiedBy:     result.VerifiedBy,
		IsExpired:      &isExpired,
		Metadata:       record.Metadata,
	}
}
