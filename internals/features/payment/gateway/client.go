package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"tokoku_backend/internals/configs"
)

const statusSuccess = "success"

/* ===================== Types ===================== */

// VerifiedTransaction: record kanonik dari endpoint verifikasi provider.
// Ini yang dipersist, BUKAN body webhook — jalur sukses wajib verifikasi ulang.
type VerifiedTransaction struct {
	Reference string
	Status    string
	// Amount dalam satuan minor (mis. sen); konversi ke major saat persist.
	Amount        int64
	Currency      string
	Channel       string
	Fees          int64
	PaidAt        *time.Time
	Authorization json.RawMessage
	Customer      json.RawMessage
	// Raw: objek data lengkap dari provider, untuk kolom gateway_response.
	Raw json.RawMessage
}

func (v *VerifiedTransaction) Success() bool { return v.Status == statusSuccess }

// AmountMajor mengubah satuan minor provider ke satuan major lokal.
func (v *VerifiedTransaction) AmountMajor() float64 { return float64(v.Amount) / 100.0 }

// Verifier: "tanya provider status sebenarnya dari reference ini".
type Verifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error)
}

type InitializeRequest struct {
	Reference     string `json:"reference"`
	CustomerEmail string `json:"email"`
	// Amount satuan minor, mengikuti kontrak provider.
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Initializer dipakai jalur checkout untuk membuka sesi pembayaran.
type Initializer interface {
	InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
}

/* ===================== Client ===================== */

type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
	MaxRetries int
	// Backoff per attempt (1-based). Default linear n×2 detik: lag indexing
	// provider pendek dan terbatas, total tunggu ~6 detik untuk 3 attempt.
	Backoff func(attempt int) time.Duration
}

func NewClient(cfg configs.PaymentConfig) *Client {
	return &Client{
		BaseURL:    cfg.GatewayBaseURL,
		SecretKey:  cfg.GatewaySecretKey,
		HTTPClient: &http.Client{Timeout: cfg.VerifyTimeout},
		MaxRetries: cfg.VerifyMaxRetries,
		Backoff:    LinearBackoff,
	}
}

func LinearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 2 * time.Second
}

type providerEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type providerTransaction struct {
	Reference     string          `json:"reference"`
	Status        string          `json:"status"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	Channel       string          `json:"channel"`
	Fees          int64           `json:"fees"`
	PaidAt        string          `json:"paid_at"`
	Authorization json.RawMessage `json:"authorization"`
	Customer      json.RawMessage `json:"customer"`
}

// VerifyTransaction memanggil endpoint verifikasi provider dengan retry
// terbatas. Hanya not-found & transient yang diulang; permanent langsung stop.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error) {
	if reference == "" {
		return nil, &Error{Class: ClassPermanent, Op: "verify", Message: "reference kosong"}
	}

	attempts := c.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, c.Backoff(attempt-1)); err != nil {
				return nil, &Error{Class: ClassTransient, Op: "verify", Message: "dibatalkan saat backoff", Err: err}
			}
		}

		tx, err := c.doVerify(ctx, reference)
		if err == nil {
			return tx, nil
		}
		lastErr = err
		if IsPermanent(err) {
			return nil, err
		}
		log.Printf("[GATEWAY] verify %s attempt %d/%d gagal: %v", reference, attempt, attempts, err)
	}
	return nil, lastErr
}

func (c *Client) doVerify(ctx context.Context, reference string) (*VerifiedTransaction, error) {
	url := fmt.Sprintf("%s/transaction/verify/%s", c.BaseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Class: ClassPermanent, Op: "verify", Message: "gagal membuat request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// timeout / error jaringan: transient, bukan bukti tidak bayar
		return nil, &Error{Class: ClassTransient, Op: "verify", Message: "request gagal", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Class: ClassTransient, Op: "verify", Message: "gagal baca body", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// indexing provider bisa telat dari webhook — boleh dicoba lagi
		return nil, &Error{Class: ClassNotFound, Op: "verify", Message: "transaksi belum ditemukan di provider"}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Class: ClassPermanent, Op: "verify", Message: fmt.Sprintf("ditolak provider (%d)", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return nil, &Error{Class: ClassTransient, Op: "verify", Message: fmt.Sprintf("provider error (%d)", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Class: ClassPermanent, Op: "verify", Message: fmt.Sprintf("status tak terduga (%d)", resp.StatusCode)}
	}

	var env providerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{Class: ClassTransient, Op: "verify", Message: "body bukan JSON valid", Err: err}
	}
	if !env.Status {
		// provider menjawab 200 tapi status=false: record belum ada
		return nil, &Error{Class: ClassNotFound, Op: "verify", Message: env.Message}
	}

	var data providerTransaction
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &Error{Class: ClassPermanent, Op: "verify", Message: "data transaksi tidak bisa diparse", Err: err}
	}

	tx := &VerifiedTransaction{
		Reference:     data.Reference,
		Status:        data.Status,
		Amount:        data.Amount,
		Currency:      data.Currency,
		Channel:       data.Channel,
		Fees:          data.Fees,
		Authorization: data.Authorization,
		Customer:      data.Customer,
		Raw:           env.Data,
	}
	if data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			tx.PaidAt = &t
		}
	}
	return tx, nil
}

// InitializeTransaction membuka sesi pembayaran untuk checkout.
func (c *Client) InitializeTransaction(ctx context.Context, initReq InitializeRequest) (*InitializeResult, error) {
	payload, err := json.Marshal(initReq)
	if err != nil {
		return nil, &Error{Class: ClassPermanent, Op: "initialize", Message: "gagal marshal payload", Err: err}
	}

	url := c.BaseURL + "/transaction/initialize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Class: ClassPermanent, Op: "initialize", Message: "gagal membuat request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &Error{Class: ClassTransient, Op: "initialize", Message: "request gagal", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Class: ClassTransient, Op: "initialize", Message: "gagal baca body", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Class: ClassTransient, Op: "initialize", Message: fmt.Sprintf("provider menjawab %d", resp.StatusCode)}
	}

	var env providerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{Class: ClassTransient, Op: "initialize", Message: "body bukan JSON valid", Err: err}
	}
	if !env.Status {
		return nil, &Error{Class: ClassPermanent, Op: "initialize", Message: env.Message}
	}

	var result InitializeResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, &Error{Class: ClassPermanent, Op: "initialize", Message: "data tidak bisa diparse", Err: err}
	}
	return &result, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
