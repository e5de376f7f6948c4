package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"credvault/internal/credential/metrics"
	"credvault/internal/credential/models"
	"credvault/internal/credential/store"
	"credvault/internal/platform/tracer"
	dErrors "credvault/pkg/domain-errors"
	"credvault/pkg/platform/sentinel"
)

// Cache is an optional read-through record cache in front of the store.
// Records are immutable, so cached copies never go stale in content.
//
// Error Contract:
//   - Get returns sentinel.ErrNotFound on miss.
type Cache interface {
	Get(ctx context.Context, credentialID string) (*models.Record, error)
	Set(ctx context.Context, record *models.Record) error
}

// Service implements the credential record lifecycle: issuance with the
// uniqueness invariant, and verification with derived expiry. Both operations
// are attributed to the worker identity injected at construction.
type Service struct {
	store    store.Store
	cache    Cache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	workerID string
	now      func() time.Time
}

type Option func(*Service)

// NewService constructs the credential service. workerID is the process-wide
// identity stamped on issuance and reported on verification.
func NewService(s store.Store, workerID string, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:    s,
		logger:   logger,
		tracer:   tracer.NewNoop(),
		workerID: workerID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithCache sets the optional record cache.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the verification clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WorkerID returns the identity of the handling worker.
func (s *Service) WorkerID() string {
	return s.workerID
}

// IssueResult echoes the persisted record plus a human-readable message naming
// the handling worker.
type IssueResult struct {
	Message    string
	Credential *models.Record
}

// Issue validates the request, enforces the uniqueness invariant, and persists
// a new record stamped with this worker's identity.
//
// Exactly one durable write happens on success; no failure path writes.
// A store-level constraint violation (the find-then-insert race) is remapped to
// the same DuplicateError contract as a pre-check duplicate.
func (s *Service) Issue(ctx context.Context, req *models.IssueRequest) (*IssueResult, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Request body is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanCredentialIssue,
		tracer.String(tracer.AttrCredentialID, req.CredentialID),
		tracer.String(tracer.AttrWorkerID, s.workerID),
	)
	result, err := s.issue(ctx, span, req)
	span.End(err)
	return result, err
}

func (s *Service) issue(ctx context.Context, span tracer.Span, req *models.IssueRequest) (*IssueResult, error) {
	existing, err := s.findTimed(ctx, req.CredentialID)
	if err == nil {
		span.SetAttributes(tracer.Bool(tracer.AttrDuplicate, true))
		return nil, s.duplicate(ctx, existing)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to look up credential")
	}

	record := req.ToRecord(s.workerID)
	start := s.now()
	err = s.store.Save(ctx, record)
	s.observeStoreOp("save", start)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the insert race; the store kept the first writer's record.
			span.SetAttributes(tracer.Bool(tracer.AttrDuplicate, true))
			winner, ferr := s.store.FindByID(ctx, req.CredentialID)
			if ferr != nil {
				s.logger.WarnContext(ctx, "duplicate issuance detected but winner not readable",
					"credential_id", req.CredentialID,
					"error", ferr,
				)
				return nil, s.duplicate(ctx, &models.Record{CredentialID: req.CredentialID})
			}
			return nil, s.duplicate(ctx, winner)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to save credential")
	}

	if s.cache != nil {
		if cerr := s.cache.Set(ctx, record); cerr != nil {
			// The store holds the truth; a cold cache only costs a later read.
			s.logger.WarnContext(ctx, "failed to cache issued credential",
				"credential_id", record.CredentialID,
				"error", cerr,
			)
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementCredentialsIssued()
	}
	s.logger.InfoContext(ctx, "credential issued",
		"credential_id", record.CredentialID,
		"credential_type", record.CredentialType,
	)

	return &IssueResult{
		Message:    fmt.Sprintf("Credential issued by %s", s.workerID),
		Credential: record,
	}, nil
}

func (s *Service) duplicate(ctx context.Context, existing *models.Record) error {
	if s.metrics != nil {
		s.metrics.IncrementDuplicateIssuances()
	}
	s.logger.InfoContext(ctx, "duplicate issuance rejected",
		"credential_id", existing.CredentialID,
		"issued_by", existing.WorkerID,
	)
	return &DuplicateError{
		CredentialID: existing.CredentialID,
		IssuedBy:     existing.WorkerID,
		IssuedAt:     existing.IssuedDate,
	}
}

// VerifyResult reports whether the credential exists, who issued it, who
// verified it, and whether it has expired as of the verification instant.
type VerifyResult struct {
	Verified   bool
	IsExpired  bool
	Message    string
	Credential *models.Record
	IssuedBy   string
	VerifiedBy string
	Timestamp  time.Time
}

// Verify looks up a credential by id. Existence alone decides the verified
// flag; expiry is recomputed against the clock on every call and reported as
// advisory information, never as a verification failure. Verification performs
// no writes to the store.
func (s *Service) Verify(ctx context.Context, req *models.VerifyRequest) (*VerifyResult, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Request body is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanCredentialVerify,
		tracer.String(tracer.AttrCredentialID, req.CredentialID),
		tracer.String(tracer.AttrWorkerID, s.workerID),
	)
	result, err := s.verify(ctx, span, req)
	span.End(err)
	return result, err
}

func (s *Service) verify(ctx context.Context, span tracer.Span, req *models.VerifyRequest) (*VerifyResult, error) {
	now := s.now().UTC()

	record := s.fromCache(ctx, span, req.CredentialID)
	if record == nil {
		found, err := s.findTimed(ctx, req.CredentialID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				if s.metrics != nil {
					s.metrics.IncrementVerifications(metrics.ResultNotFound)
				}
				return nil, &NotFoundError{
					CredentialID: req.CredentialID,
					VerifiedBy:   s.workerID,
					Timestamp:    now,
				}
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to look up credential")
		}
		record = found
		if s.cache != nil {
			if cerr := s.cache.Set(ctx, record); cerr != nil {
				s.logger.WarnContext(ctx, "failed to cache verified credential",
					"credential_id", record.CredentialID,
					"error", cerr,
				)
			}
		}
	}

	isExpired := record.IsExpired(now)
	span.SetAttributes(tracer.Bool(tracer.AttrExpired, isExpired))

	message := "Credential verified successfully"
	result := metrics.ResultVerified
	if isExpired {
		message = "Credential found but has expired"
		result = metrics.ResultExpired
	}
	if s.metrics != nil {
		s.metrics.IncrementVerifications(result)
	}

	return &VerifyResult{
		Verified:   true,
		IsExpired:  isExpired,
		Message:    message,
		Credential: record,
		IssuedBy:   record.WorkerID,
		VerifiedBy: s.workerID,
		Timestamp:  now,
	}, nil
}

// fromCache attempts a cache read; any failure falls through to the store.
func (s *Service) fromCache(ctx context.Context, span tracer.Span, credentialID string) *models.Record {
	if s.cache == nil {
		return nil
	}
	record, err := s.cache.Get(ctx, credentialID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "credential cache read failed",
				"credential_id", credentialID,
				"error", err,
			)
		}
		return nil
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
	return record
}

func (s *Service) findTimed(ctx context.Context, credentialID string) (*models.Record, error) {
	start := s.now()
	record, err := s.store.FindByID(ctx, credentialID)
	s.observeStoreOp("find_by_id", start)
	return record, err
}

func (s *Service) observeStoreOp(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOpLatency(operation, s.now().Sub(start).Seconds())
	}
}
