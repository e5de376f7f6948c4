package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"credvault/internal/credential/handler/mocks"
	"credvault/internal/credential/models"
	"credvault/internal/credential/service"
	dErrors "credvault/pkg/domain-errors"
)

var testClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (*mocks.MockService, chi.Router) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.RegisterIssuance(r)
	h.RegisterVerification(r)
	r.NotFound(NotFound)
	return svc, r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleIssue(t *testing.T) {
	issueBody := map[string]any{
		"credentialId":   "CRED-1",
		"holderName":     "Alice Johnson",
		"issuerName":     "University of Example",
		"credentialType": "degree",
	}

	t.Run("created", func(t *testing.T) {
		svc, router := newTestRouter(t)
		svc.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(&service.IssueResult{
			Message: "Credential issued by worker-1",
			Credential: &models.Record{
				CredentialID:   "CRED-1",
				HolderName:     "Alice Johnson",
				IssuerName:     "University of Example",
				CredentialType: "degree",
				IssuedDate:     testClock,
				WorkerID:       "worker-1",
			},
		}, nil)

		rec := doJSON(t, router, http.MethodPost, "/api/issue", issueBody)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Credential issued by worker-1", body["message"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "CRED-1", data["credentialId"])
		assert.Equal(t, "worker-1", data["workerId"])
		assert.NotContains(t, data, "expiryDate")
	})

	t.Run("validation error", func(t *testing.T) {
		_, router := newTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/api/issue", map[string]any{
			"credentialId": "CRED-1",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Missing required fields: holderName, issuerName, credentialType", body["message"])
	})

	t.Run("malformed json", func(t *testing.T) {
		_, router := newTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/issue", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Invalid request body", body["message"])
	})

	t.Run("duplicate", func(t *testing.T) {
		svc, router := newTestRouter(t)
		svc.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(nil, &service.DuplicateError{
			CredentialID: "CRED-1",
			IssuedBy:     "worker-2",
			IssuedAt:     testClock,
		})

		rec := doJSON(t, router, http.MethodPost, "/api/issue", issueBody)

		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Credential with ID CRED-1 already exists", body["message"])
		assert.Equal(t, "worker-2", body["issuedBy"])
		assert.Contains(t, body, "issuedAt")
	})

	t.Run("duplicate without attribution omits fields", func(t *testing.T) {
		svc, router := newTestRouter(t)
		svc.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(nil, &service.DuplicateError{
			CredentialID: "CRED-1",
		})

		rec := doJSON(t, router, http.MethodPost, "/api/issue", issueBody)

		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decodeBody(t, rec)
		assert.NotContains(t, body, "issuedBy")
		assert.NotContains(t, body, "issuedAt")
	})

	t.Run("internal error hides detail", func(t *testing.T) {
		svc, router := newTestRouter(t)
		svc.EXPECT().Issue(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "Failed to save credential"))

		rec := doJSON(t, router, http.MethodPost, "/api/issue", issueBody)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Failed to save credential", body["message"])
	})
}

func TestHandleVerify(t *testing.T) {
	verifyBody := map[string]any{"credentialId": "CRED-1"}

	t.Run("verified", func(t *testing.T) {
		svc, router := newTestRouter(t)
		svc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(&service.VerifyResult{
			Verified:  true,
			IsExpired: false,
			Message:   "Credential verified successfully",
			Credential: &models.Record{
				CredentialID: "CRED-1",
				HolderName:   "Alice Johnson",
				IssuedDate:   testClock.Add(-time.Hour),
				WorkerID:     "worker-2",
			},
			IssuedBy:   "worker-2",
			VerifiedBy: "worker-1",
			Timestamp:  testClock,
		}, nil)

		rec := doJSON(t, router, http.MethodPost, "/api/verify", verifyBody)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, true, body["verified"])
		assert.Equal(t, "Credential verified successfully", body["message"])
		assert.Equal(t, testClock.Format(time.RFC3339), body["timestamp"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "worker-2", data["issuedBy"])
		assert.Equal(t, "worker-1", data["verifiedBy"])
		assert.Equal(t, false, data["isExpired"])
	})

	t.Run("expired still verified", func(t *testing.T) {
		svc, router := newTestRouter(t)
		expiry := testClock.Add(-time.Hour)
		svc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(&service.VerifyResult{
			Verified:  true,
			IsExpired: true,
			Message:   "Credential found but has expired",
			Credential: &models.Record{
				CredentialID: "CRED-1",
				ExpiryDate:   &expiry,
				WorkerID:     "worker-2",
			},
			IssuedBy:   "worker-2",
			VerifiedBy: "worker-1",
			Timestamp:  testClock,
		}, nil)

		rec := doJSON(t, router, http.MethodPost, "/api/verify", verifyBody)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["verified"])
		assert.Equal(t, "Credential found but has expired", body["message"])
		data := body["data"].(map[string]any)
		assert.Equal(t, true, data["isExpired"])
	})

	t.Run("not found", func(t *testing.T) {
		svc, router := newTestRouter(t)
		svc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil, &service.NotFoundError{
			CredentialID: "CRED-404",
			VerifiedBy:   "worker-1",
			Timestamp:    testClock,
		})

		rec := doJSON(t, router, http.MethodPost, "/api/verify", map[string]any{"credentialId": "CRED-404"})

		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, false, body["verified"])
		assert.Equal(t, "Credential with ID CRED-404 not found", body["message"])
		assert.Equal(t, "worker-1", body["verifiedBy"])
		assert.Equal(t, testClock.Format(time.RFC3339), body["timestamp"])
	})

	t.Run("missing id", func(t *testing.T) {
		_, router := newTestRouter(t)

		rec := doJSON(t, router, http.MethodPost, "/api/verify", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Missing required field: credentialId", body["message"])
	})
}

func TestNotFoundRoute(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Route not found", body["message"])
}
