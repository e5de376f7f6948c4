package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"credvault/internal/credential/models"
	"credvault/pkg/platform/sentinel"
)

// PostgresStore persists credentials in PostgreSQL. The primary key on
// credential_id is the uniqueness backstop for concurrent issuance: the insert
// uses ON CONFLICT DO NOTHING, so losing the race surfaces as ErrConflict and
// the winning record is left untouched.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("credential record is required")
	}

	var metadata []byte
	if record.Metadata != nil {
		var err error
		metadata, err = json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("encode credential metadata: %w", err)
		}
	}

	// issued_date, created_at and updated_at default to now() in the schema so
	// the creation instant is stamped by the store, not the service.
	query := `
		INSERT INTO credentials (credential_id, holder_name, issuer_name, credential_type, expiry_date, worker_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (credential_id) DO NOTHING
		RETURNING issued_date, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		record.CredentialID,
		record.HolderName,
		record.IssuerName,
		record.CredentialType,
		record.ExpiryDate,
		record.WorkerID,
		metadata,
	).Scan(&record.IssuedDate, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// ON CONFLICT DO NOTHING returns no row when the id already exists.
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID string) (*models.Record, error) {
	query := `
		SELECT credential_id, holder_name, issuer_name, credential_type, issued_date, expiry_date, worker_id, metadata, created_at, updated_at
		FROM credentials
		WHERE credential_id = $1
	`
	var record models.Record
	var expiryDate sql.NullTime
	var metadata []byte
	err := s.db.QueryRowContext(ctx, query, credentialID).Scan(
		&record.CredentialID,
		&record.HolderName,
		&record.IssuerName,
		&record.CredentialType,
		&record.IssuedDate,
		&expiryDate,
		&record.WorkerID,
		&metadata,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	if expiryDate.Valid {
		record.ExpiryDate = &expiryDate.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
			return nil, fmt.Errorf("decode credential metadata: %w", err)
		}
	}
	return &record, nil
}
