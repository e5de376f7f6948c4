package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credvault/internal/credential/models"
	"credvault/internal/credential/store"
	dErrors "credvault/pkg/domain-errors"
	"credvault/pkg/platform/sentinel"
)

var testClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *store.InMemoryStore) {
	t.Helper()
	mem := store.New().WithClock(func() time.Time { return testClock })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithClock(func() time.Time { return testClock })}, opts...)
	return NewService(mem, "worker-1", logger, opts...), mem
}

func issueRequest(id string) *models.IssueRequest {
	return &models.IssueRequest{
		CredentialID:   id,
		HolderName:     "Alice Johnson",
		IssuerName:     "University of Example",
		CredentialType: "degree",
		Metadata:       map[string]any{"grade": "A"},
	}
}

func TestService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("success stamps worker and timestamps", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.Issue(ctx, issueRequest("CRED-1"))
		require.NoError(t, err)

		assert.Equal(t, "Credential issued by worker-1", result.Message)
		assert.Equal(t, "CRED-1", result.Credential.CredentialID)
		assert.Equal(t, "worker-1", result.Credential.WorkerID)
		assert.Equal(t, testClock, result.Credential.IssuedDate)
		assert.Nil(t, result.Credential.ExpiryDate)
	})

	t.Run("normalizes id before storing", func(t *testing.T) {
		svc, mem := newTestService(t)

		req := issueRequest(" CRED-1 ")
		_, err := svc.Issue(ctx, req)
		require.NoError(t, err)

		found, err := mem.FindByID(ctx, "CRED-1")
		require.NoError(t, err)
		assert.Equal(t, "CRED-1", found.CredentialID)
	})

	t.Run("validation failure writes nothing", func(t *testing.T) {
		svc, mem := newTestService(t)

		req := issueRequest("CRED-1")
		req.HolderName = ""
		_, err := svc.Issue(ctx, req)

		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "Missing required fields: holderName", err.Error())

		_, err = mem.FindByID(ctx, "CRED-1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("nil request rejected", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Issue(ctx, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("duplicate id keeps original attribution", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Issue(ctx, issueRequest("CRED-1"))
		require.NoError(t, err)

		second := issueRequest("CRED-1")
		second.HolderName = "Bob Smith"
		_, err = svc.Issue(ctx, second)

		var dup *DuplicateError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "Credential with ID CRED-1 already exists", dup.Error())
		assert.Equal(t, "worker-1", dup.IssuedBy)
		assert.Equal(t, testClock, dup.IssuedAt)
	})

	t.Run("insert race remapped to duplicate", func(t *testing.T) {
		// The pre-check misses but Save hits the store's uniqueness constraint,
		// as happens when two workers issue the same id simultaneously.
		winner := &models.Record{
			CredentialID: "CRED-1",
			WorkerID:     "worker-2",
			IssuedDate:   testClock.Add(-time.Minute),
		}
		racy := &racingStore{winner: winner}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := NewService(racy, "worker-1", logger, WithClock(func() time.Time { return testClock }))

		_, err := svc.Issue(ctx, issueRequest("CRED-1"))

		var dup *DuplicateError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "worker-2", dup.IssuedBy)
		assert.Equal(t, winner.IssuedDate, dup.IssuedAt)
	})

	t.Run("store failure surfaces as internal", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := NewService(&failingStore{}, "worker-1", logger)

		_, err := svc.Issue(ctx, issueRequest("CRED-1"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("found and not expired", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Issue(ctx, issueRequest("CRED-1"))
		require.NoError(t, err)

		result, err := svc.Verify(ctx, &models.VerifyRequest{CredentialID: "CRED-1"})
		require.NoError(t, err)

		assert.True(t, result.Verified)
		assert.False(t, result.IsExpired)
		assert.Equal(t, "Credential verified successfully", result.Message)
		assert.Equal(t, "worker-1", result.IssuedBy)
		assert.Equal(t, "worker-1", result.VerifiedBy)
		assert.Equal(t, testClock, result.Timestamp)
	})

	t.Run("expired credential still verifies", func(t *testing.T) {
		svc, _ := newTestService(t)

		req := issueRequest("CRED-1")
		expiry := testClock.Add(-time.Hour)
		req.ExpiryDate = &expiry
		_, err := svc.Issue(ctx, req)
		require.NoError(t, err)

		result, err := svc.Verify(ctx, &models.VerifyRequest{CredentialID: "CRED-1"})
		require.NoError(t, err)

		assert.True(t, result.Verified)
		assert.True(t, result.IsExpired)
		assert.Equal(t, "Credential found but has expired", result.Message)
	})

	t.Run("future expiry not expired", func(t *testing.T) {
		svc, _ := newTestService(t)

		req := issueRequest("CRED-1")
		expiry := testClock.Add(time.Hour)
		req.ExpiryDate = &expiry
		_, err := svc.Issue(ctx, req)
		require.NoError(t, err)

		result, err := svc.Verify(ctx, &models.VerifyRequest{CredentialID: "CRED-1"})
		require.NoError(t, err)
		assert.False(t, result.IsExpired)
	})

	t.Run("expiry flips as the clock advances", func(t *testing.T) {
		clock := testClock
		mem := store.New().WithClock(func() time.Time { return testClock })
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := NewService(mem, "worker-1", logger, WithClock(func() time.Time { return clock }))

		req := issueRequest("CRED-1")
		expiry := testClock.Add(time.Hour)
		req.ExpiryDate = &expiry
		_, err := svc.Issue(ctx, req)
		require.NoError(t, err)

		result, err := svc.Verify(ctx, &models.VerifyRequest{CredentialID: "CRED-1"})
		require.NoError(t, err)
		assert.False(t, result.IsExpired)

		clock = testClock.Add(2 * time.Hour)
		result, err = svc.Verify(ctx, &models.VerifyRequest{CredentialID: "CRED-1"})
		require.NoError(t, err)
		assert.True(t, result.IsExpired)
		assert.True(t, result.Verified)
	})

	t.Run("unknown id attributed to verifying worker", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Verify(ctx, &models.VerifyRequest{CredentialID: "CRED-404"})

		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "Credential with ID CRED-404 not found", nf.Error())
		assert.Equal(t, "worker-1", nf.VerifiedBy)
		assert.Equal(t, testClock, nf.Timestamp)
	})

	t.Run("missing id rejected without lookup", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := NewService(&failingStore{}, "worker-1", logger)

		_, err := svc.Verify(ctx, &models.VerifyRequest{CredentialID: "  "})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("cache hit skips the store", func(t *testing.T) {
		cached := &models.Record{
			CredentialID: "CRED-1",
			WorkerID:     "worker-2",
			IssuedDate:   testClock.Add(-time.Minute),
		}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := NewService(&failingStore{}, "worker-1", logger,
			WithClock(func() time.Time { return testClock }),
			WithCache(&fakeCache{records: map[string]*models.Record{"CRED-1": cached}}),
		)

		result, err := svc.Verify(ctx, &models.VerifyRequest{CredentialID: "CRED-1"})
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, "worker-2", result.IssuedBy)
	})

	t.Run("cache miss falls back and fills the cache", func(t *testing.T) {
		c := &fakeCache{records: map[string]*models.Record{}}
		svc, _ := newTestService(t, WithCache(c))

		_, err := svc.Issue(ctx, issueRequest("CRED-1"))
		require.NoError(t, err)
		delete(c.records, "CRED-1")

		_, err = svc.Verify(ctx, &models.VerifyRequest{CredentialID: "CRED-1"})
		require.NoError(t, err)
		assert.Contains(t, c.records, "CRED-1")
	})
}

// racingStore simulates losing the find-then-insert race: the pre-check sees
// nothing but the insert hits the uniqueness constraint.
type racingStore struct {
	winner *models.Record
	saved  bool
}

func (s *racingStore) Save(_ context.Context, _ *models.Record) error {
	s.saved = true
	return sentinel.ErrConflict
}

func (s *racingStore) FindByID(_ context.Context, _ string) (*models.Record, error) {
	if s.saved {
		return s.winner.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

type failingStore struct{}

func (s *failingStore) Save(_ context.Context, _ *models.Record) error {
	return errors.New("connection refused")
}

func (s *failingStore) FindByID(_ context.Context, _ string) (*models.Record, error) {
	return nil, errors.New("connection refused")
}

type fakeCache struct {
	records map[string]*models.Record
}

func (c *fakeCache) Get(_ context.Context, credentialID string) (*models.Record, error) {
	record, ok := c.records[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (c *fakeCache) Set(_ context.Context, record *models.Record) error {
	c.records[record.CredentialID] = record.Clone()
	return nil
}
