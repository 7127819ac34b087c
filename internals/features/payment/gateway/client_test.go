package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		SecretKey:  "sk_test_secret",
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		MaxRetries: 3,
		Backoff:    func(int) time.Duration { return 0 },
	}
}

func TestVerifyTransactionSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/transaction/verify/ref-123", r.URL.Path)
		fmt.Fprint(w, `{"status":true,"message":"ok","data":{"reference":"ref-123","status":"success","amount":500000,"currency":"IDR","channel":"card","paid_at":"2024-05-01T10:00:00Z"}}`)
	}))
	defer srv.Close()

	tx, err := newTestClient(srv.URL).VerifyTransaction(context.Background(), "ref-123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_test_secret", gotAuth)
	assert.Equal(t, "ref-123", tx.Reference)
	assert.True(t, tx.Success())
	assert.Equal(t, int64(500000), tx.Amount)
	assert.Equal(t, 5000.00, tx.AmountMajor())
	require.NotNil(t, tx.PaidAt)
	assert.NotEmpty(t, tx.Raw)
}

func TestVerifyTransactionNotFoundExhaustsRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	var backoffCalls []int
	client.Backoff = func(attempt int) time.Duration {
		backoffCalls = append(backoffCalls, attempt)
		return 0
	}

	_, err := client.VerifyTransaction(context.Background(), "ref-missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 3, attempts)
	// backoff dipanggil sebelum attempt ke-2 dan ke-3, dengan nomor naik
	assert.Equal(t, []int{1, 2}, backoffCalls)
}

func TestVerifyTransactionTransientThenSuccess(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"status":true,"data":{"reference":"ref-1","status":"success","amount":1000}}`)
	}))
	defer srv.Close()

	tx, err := newTestClient(srv.URL).VerifyTransaction(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, tx.Success())
}

func TestVerifyTransactionPermanentStopsImmediately(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).VerifyTransaction(context.Background(), "ref-1")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
}

func TestVerifyTransactionProviderStatusFalseIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":false,"message":"Transaction reference not found"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).VerifyTransaction(context.Background(), "ref-x")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestVerifyTransactionEmptyReferenceIsPermanent(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1").VerifyTransaction(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestLinearBackoffGrows(t *testing.T) {
	assert.Equal(t, 2*time.Second, LinearBackoff(1))
	assert.Equal(t, 4*time.Second, LinearBackoff(2))
	assert.Equal(t, 6*time.Second, LinearBackoff(3))
}

func TestInitializeTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		fmt.Fprint(w, `{"status":true,"data":{"authorization_url":"https://pay.example/abc","access_code":"abc","reference":"ref-9"}}`)
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).InitializeTransaction(context.Background(), InitializeRequest{
		Reference:     "ref-9",
		CustomerEmail: "a@b.co",
		Amount:        150000,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", res.AuthorizationURL)
}
