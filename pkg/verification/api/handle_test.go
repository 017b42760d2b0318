package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasknest/tasknest/pkg/accounts"
	"github.com/tasknest/tasknest/pkg/client"
	"github.com/tasknest/tasknest/pkg/clock"
	"github.com/tasknest/tasknest/pkg/notification"
	"github.com/tasknest/tasknest/pkg/resendlimit"
	"github.com/tasknest/tasknest/pkg/tokenstore"
	"github.com/tasknest/tasknest/pkg/verification"
)

type handlerEnv struct {
	handler   *Handler
	service   *verification.Service
	directory *accounts.FileDirectory
	gateway   *notification.MockGateway
	clk       *clock.Fake
}

func setupTestHandler(t *testing.T) *handlerEnv {
	dataDir := t.TempDir()

	directory, err := accounts.NewFileDirectory(dataDir)
	require.NoError(t, err)
	tokenRepo, err := tokenstore.NewFileRepository(dataDir)
	require.NoError(t, err)
	counterRepo, err := resendlimit.NewFileRepository(dataDir)
	require.NoError(t, err)

	gateway := notification.NewMockGateway()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	service := verification.NewService(directory, tokenRepo, counterRepo, gateway,
		"https://app.example.com", verification.WithClock(clk))

	return &handlerEnv{
		handler:   NewHandler(service, directory),
		service:   service,
		directory: directory,
		gateway:   gateway,
		clk:       clk,
	}
}

func (e *handlerEnv) signupToken(t *testing.T, account *accounts.Account) string {
	_, err := e.service.RequestSignupVerification(context.Background(), account.ID)
	require.NoError(t, err)

	deliveries := e.gateway.Deliveries()
	require.NotEmpty(t, deliveries)
	u, err := url.Parse(deliveries[len(deliveries)-1].VerificationURL)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func authedRequest(method, path string, body []byte, account *accounts.Account) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if account != nil {
		ctx := context.WithValue(req.Context(), client.AuthUserKey, &client.AuthUser{
			UserId:   account.ID.String(),
			UserUuid: account.ID,
			Email:    account.Email,
		})
		req = req.WithContext(ctx)
	}
	return req
}

func TestHandler_VerifyEmail(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := setupTestHandler(t)
		account, err := env.directory.CreateAccount(context.Background(), "alice@example.com")
		require.NoError(t, err)
		token := env.signupToken(t, account)

		body, _ := json.Marshal(VerifyEmailRequest{Token: token})
		rec := httptest.NewRecorder()
		env.handler.VerifyEmail(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp VerifyEmailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		got, err := env.directory.GetAccount(context.Background(), account.ID)
		require.NoError(t, err)
		assert.True(t, got.Verified)
		require.NotNil(t, got.VerifiedAt)
		assert.Equal(t, got.VerifiedAt.UTC().Format(time.RFC3339), resp.VerifiedAt)
	})

	t.Run("MissingToken", func(t *testing.T) {
		env := setupTestHandler(t)
		body, _ := json.Marshal(VerifyEmailRequest{})
		rec := httptest.NewRecorder()
		env.handler.VerifyEmail(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		env := setupTestHandler(t)
		rec := httptest.NewRecorder()
		env.handler.VerifyEmail(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("{"))))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		env := setupTestHandler(t)
		body, _ := json.Marshal(VerifyEmailRequest{Token: "bogus"})
		rec := httptest.NewRecorder()
		env.handler.VerifyEmail(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		env := setupTestHandler(t)
		account, err := env.directory.CreateAccount(context.Background(), "alice@example.com")
		require.NoError(t, err)
		token := env.signupToken(t, account)

		env.clk.Advance(25 * time.Hour)

		body, _ := json.Marshal(VerifyEmailRequest{Token: token})
		rec := httptest.NewRecorder()
		env.handler.VerifyEmail(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "expired")
	})

	t.Run("ReusedToken", func(t *testing.T) {
		env := setupTestHandler(t)
		account, err := env.directory.CreateAccount(context.Background(), "alice@example.com")
		require.NoError(t, err)
		token := env.signupToken(t, account)

		body, _ := json.Marshal(VerifyEmailRequest{Token: token})
		rec := httptest.NewRecorder()
		env.handler.VerifyEmail(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		env.handler.VerifyEmail(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "already been used")
	})
}

func TestHandler_ResendVerification(t *testing.T) {
	t.Run("Unauthorized", func(t *testing.T) {
		env := setupTestHandler(t)
		rec := httptest.NewRecorder()
		env.handler.ResendVerification(rec, authedRequest(http.MethodPost, "/resend", nil, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Success", func(t *testing.T) {
		env := setupTestHandler(t)
		account, err := env.directory.CreateAccount(context.Background(), "alice@example.com")
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		env.handler.ResendVerification(rec, authedRequest(http.MethodPost, "/resend", nil, account))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, env.gateway.Deliveries(), 1)
	})

	t.Run("CooldownSetsRetryAfter", func(t *testing.T) {
		env := setupTestHandler(t)
		account, err := env.directory.CreateAccount(context.Background(), "alice@example.com")
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		env.handler.ResendVerification(rec, authedRequest(http.MethodPost, "/resend", nil, account))
		require.Equal(t, http.StatusOK, rec.Code)

		env.clk.Advance(1 * time.Second)

		rec = httptest.NewRecorder()
		env.handler.ResendVerification(rec, authedRequest(http.MethodPost, "/resend", nil, account))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "59", rec.Header().Get("Retry-After"))

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 59, resp.RetryAfterSeconds)
	})

	t.Run("DailyLimit", func(t *testing.T) {
		env := setupTestHandler(t)
		account, err := env.directory.CreateAccount(context.Background(), "alice@example.com")
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			env.handler.ResendVerification(rec, authedRequest(http.MethodPost, "/resend", nil, account))
			require.Equal(t, http.StatusOK, rec.Code)
			env.clk.Advance(61 * time.Second)
		}

		rec := httptest.NewRecorder()
		env.handler.ResendVerification(rec, authedRequest(http.MethodPost, "/resend", nil, account))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Empty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("AlreadyVerified", func(t *testing.T) {
		env := setupTestHandler(t)
		account, err := env.directory.CreateAccount(context.Background(), "alice@example.com")
		require.NoError(t, err)
		require.NoError(t, env.directory.SetVerified(context.Background(), account.ID))

		rec := httptest.NewRecorder()
		env.handler.ResendVerification(rec, authedRequest(http.MethodPost, "/resend", nil, account))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("AccountDeleted", func(t *testing.T) {
		env := setupTestHandler(t)
		ghost := &accounts.Account{ID: uuid.New(), Email: "ghost@example.com"}

		rec := httptest.NewRecorder()
		env.handler.ResendVerification(rec, authedRequest(http.MethodPost, "/resend", nil, ghost))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_GetVerificationStatus(t *testing.T) {
	t.Run("UnverifiedAccount", func(t *testing.T) {
		env := setupTestHandler(t)
		account, err := env.directory.CreateAccount(context.Background(), "alice@example.com")
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		env.handler.GetVerificationStatus(rec, authedRequest(http.MethodGet, "/status", nil, account))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp VerificationStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Verified)
		assert.Nil(t, resp.VerifiedAt)
		assert.Equal(t, "limited", resp.AccessMode)
	})

	t.Run("VerifiedAccount", func(t *testing.T) {
		env := setupTestHandler(t)
		account, err := env.directory.CreateAccount(context.Background(), "alice@example.com")
		require.NoError(t, err)
		require.NoError(t, env.directory.SetVerified(context.Background(), account.ID))

		rec := httptest.NewRecorder()
		env.handler.GetVerificationStatus(rec, authedRequest(http.MethodGet, "/status", nil, account))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp VerificationStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Verified)
		require.NotNil(t, resp.VerifiedAt)
		assert.Equal(t, "full", resp.AccessMode)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		env := setupTestHandler(t)
		rec := httptest.NewRecorder()
		env.handler.GetVerificationStatus(rec, authedRequest(http.MethodGet, "/status", nil, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
