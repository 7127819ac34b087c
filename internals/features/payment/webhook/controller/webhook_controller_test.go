package controller

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoku_backend/internals/features/payment/webhook/dto"
	"tokoku_backend/internals/features/payment/webhook/model"
	"tokoku_backend/internals/features/payment/webhook/service"
)

type fakeSignature struct {
	outcome service.SignatureOutcome
}

func (f *fakeSignature) Verify(ctx context.Context, rawBody []byte, signature, ip string) service.SignatureOutcome {
	return f.outcome
}

type fakeDedup struct {
	result *service.DedupResult
	err    error
	calls  int
}

func (f *fakeDedup) Register(ctx context.Context, eventType, reference, providerID string, rawBody []byte, signature string) (*service.DedupResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeRouter struct {
	outcome service.Outcome
	calls   int
}

func (f *fakeRouter) Dispatch(ctx context.Context, env *dto.WebhookEnvelope) service.Outcome {
	f.calls++
	return f.outcome
}

type fakeMarker struct {
	results []string
}

func (f *fakeMarker) MarkProcessed(ctx context.Context, id uuid.UUID, result string) error {
	f.results = append(f.results, result)
	return nil
}

func newApp(ctrl *WebhookController) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})
	app.Post("/api/payments/webhook", ctrl.HandleGatewayWebhook)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/payments/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(service.SignatureHeader, "deadbeef")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, sonic.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

const validBody = `{"event":"charge.success","data":{"id":90210,"reference":"ref-1","amount":500000,"status":"success"}}`

func registeredEvent() *service.DedupResult {
	return &service.DedupResult{Event: &model.WebhookEvent{WebhookEventID: uuid.New()}}
}

func TestWebhookRejectedSignatureStillReturns200(t *testing.T) {
	dedup := &fakeDedup{}
	router := &fakeRouter{}
	ctrl := NewWebhookController(&fakeSignature{}, dedup, router, &fakeMarker{})

	status, body := postWebhook(t, newApp(ctrl), validBody)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, service.OutcomeIgnored, body["status"])
	// event yang tidak autentik tidak pernah menyentuh ledger atau router
	assert.Equal(t, 0, dedup.calls)
	assert.Equal(t, 0, router.calls)
}

func TestWebhookMalformedEnvelopeIs400(t *testing.T) {
	ctrl := NewWebhookController(
		&fakeSignature{outcome: service.SignatureOutcome{OK: true}},
		&fakeDedup{}, &fakeRouter{}, &fakeMarker{},
	)

	status, _ := postWebhook(t, newApp(ctrl), `{"event":`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	// terparse tapi tanpa event/reference juga struktural rusak
	status, _ = postWebhook(t, newApp(ctrl), `{"data":{"amount":1}}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestWebhookReplayShortCircuitsDispatch(t *testing.T) {
	router := &fakeRouter{}
	dedup := &fakeDedup{result: &service.DedupResult{
		Replay:       true,
		StoredResult: "success: order ORD-1 terkonfirmasi",
		Event:        &model.WebhookEvent{WebhookEventID: uuid.New()},
	}}
	ctrl := NewWebhookController(
		&fakeSignature{outcome: service.SignatureOutcome{OK: true}},
		dedup, router, &fakeMarker{},
	)

	status, body := postWebhook(t, newApp(ctrl), validBody)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, service.OutcomeDuplicate, body["status"])
	assert.Equal(t, "success: order ORD-1 terkonfirmasi", body["message"])
	assert.Equal(t, 0, router.calls)
}

func TestWebhookDispatchResultIsAckedAndPersisted(t *testing.T) {
	marker := &fakeMarker{}
	ctrl := NewWebhookController(
		&fakeSignature{outcome: service.SignatureOutcome{OK: true, Source: service.SecretSourceAPIKey}},
		&fakeDedup{result: registeredEvent()},
		&fakeRouter{outcome: service.Outcome{Status: service.OutcomeSuccess, Message: "order ORD-1 terkonfirmasi"}},
		marker,
	)

	status, body := postWebhook(t, newApp(ctrl), validBody)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, service.OutcomeSuccess, body["status"])
	require.Len(t, marker.results, 1)
	assert.Equal(t, "success: order ORD-1 terkonfirmasi", marker.results[0])
}

func TestWebhookLedgerWriteFailureStillAcks200(t *testing.T) {
	router := &fakeRouter{}
	ctrl := NewWebhookController(
		&fakeSignature{outcome: service.SignatureOutcome{OK: true}},
		&fakeDedup{err: assert.AnError},
		router,
		&fakeMarker{},
	)

	status, body := postWebhook(t, newApp(ctrl), validBody)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, service.OutcomeDeferred, body["status"])
	assert.Equal(t, 0, router.calls)
}
