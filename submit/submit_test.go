package submit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ledgertx.io/ledgertx/signer"
	"ledgertx.io/ledgertx/storage/testkit"
	"ledgertx.io/ledgertx/tx"
)

const (
	aliceSeed = "8hiZ8FPQLQnmFqXg8T1L3tgkJvLPeZXnGuThprDDJtQR"
	alicePub  = "GtvBGsnVhGnqR1RswqT3KSwdoU3UW7w23ukmDaH7uAEF"
)

func signedCreate(t *testing.T) tx.Transaction {
	t.Helper()
	cond, err := tx.MakeEd25519Condition(alicePub)
	require.NoError(t, err)
	asset := map[string]any{"kyc": map[string]any{
		"user_hash": "5c9b0ddd16f0d6471c661c0e",
		"dob":       "7/19/1988 12:00:00 AM +05:00",
		"pob":       "CN",
		"nab":       "Hang MioLoi",
	}}
	metadata := map[string]any{"Status": "A", "Error": nil, "Transaction": nil}
	unsigned, err := tx.MakeCreateTransaction(asset, metadata, []tx.Output{tx.MakeOutput(cond, "1")}, alicePub)
	require.NoError(t, err)
	signed, err := signer.New().Sign(unsigned, []string{aliceSeed})
	require.NoError(t, err)
	return signed
}

func TestNewClient_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		config      *ClientConfig
		expectedErr string
	}{
		{name: "nil config", config: nil, expectedErr: "config cannot be nil"},
		{name: "empty base URL", config: &ClientConfig{}, expectedErr: "base URL is required"},
		{name: "bad scheme", config: &ClientConfig{BaseURL: "ftp://node"}, expectedErr: "must be http or https"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			assert.Nil(t, client)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestSubmit_Accepted(t *testing.T) {
	signed := signedCreate(t)
	var gotBody, gotMode, gotPath, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotMode = r.URL.Query().Get("mode")
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-Id")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	c, err := NewClient(&ClientConfig{BaseURL: srv.URL + "/api/v1"})
	require.NoError(t, err)
	res, err := c.Submit(context.Background(), signed, ModeCommit)
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, res.Status)
	assert.Equal(t, http.StatusAccepted, res.HTTPStatus)
	assert.Equal(t, "/api/v1/transactions", gotPath)
	assert.Equal(t, "commit", gotMode)
	assert.Equal(t, res.RequestID, gotRequestID)
	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err)

	// The wire body is the canonical signed transaction: the stored body
	// with the id filled in.
	want := strings.Replace(testkit.SampleBody, `"id":null`, `"id":"`+testkit.SampleTxID+`"`, 1)
	assert.Equal(t, want, gotBody)
}

func TestSubmit_DefaultModeIsAsync(t *testing.T) {
	var gotMode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMode = r.URL.Query().Get("mode")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(&ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	res, err := c.Submit(context.Background(), signedCreate(t), "")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, res.Status)
	assert.Equal(t, "async", gotMode)
}

func TestSubmit_SuccessStatuses(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer srv.Close()

			c, err := NewClient(&ClientConfig{BaseURL: srv.URL})
			require.NoError(t, err)
			res, err := c.Submit(context.Background(), signedCreate(t), ModeCommit)
			require.NoError(t, err)
			assert.Equal(t, StatusAccepted, res.Status)
			assert.Equal(t, code, res.HTTPStatus)
		})
	}
}

func TestSubmit_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid transaction (DoubleSpend)","status":400}`))
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	c, err := NewClient(&ClientConfig{BaseURL: srv.URL, Logger: zap.New(core)})
	require.NoError(t, err)
	res, err := c.Submit(context.Background(), signedCreate(t), ModeSync)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, "Invalid transaction (DoubleSpend)", res.Message)
	assert.Equal(t, 1, logs.FilterMessage("Transaction rejected").Len())
}

func TestSubmit_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(&ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	res, err := c.Submit(context.Background(), signedCreate(t), ModeAsync)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Equal(t, http.StatusInternalServerError, res.HTTPStatus)
}

func TestSubmit_Unsigned(t *testing.T) {
	c, err := NewClient(&ClientConfig{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), signedCreate(t).Unsigned(), ModeAsync)
	assert.ErrorIs(t, err, ErrUnsigned)
}

func TestSubmit_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := NewClient(&ClientConfig{BaseURL: srv.URL, RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)
	signed := signedCreate(t)

	_, err = c.Submit(context.Background(), signed, ModeAsync)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Submit(ctx, signed, ModeAsync)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAsync, m)
	m, err = ParseMode("commit")
	require.NoError(t, err)
	assert.Equal(t, ModeCommit, m)
	_, err = ParseMode("later")
	assert.Error(t, err)
}
