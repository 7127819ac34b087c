package dto

import "encoding/json"

/* ===================== Event kinds ===================== */

// EventKind: varian tertutup event yang didukung. Router wajib switch
// exhaustive di atas enum ini supaya "event type tak tertangani" ketahuan
// saat compile, bukan jadi cabang runtime yang diam-diam.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventChargeSuccess
	EventChargeFailed
	EventChargeDispute
	EventTransferSuccess
	EventTransferFailed
)

func ParseEventKind(event string) EventKind {
	switch event {
	case "charge.success":
		return EventChargeSuccess
	case "charge.failed":
		return EventChargeFailed
	case "charge.dispute.create":
		return EventChargeDispute
	case "transfer.success":
		return EventTransferSuccess
	case "transfer.failed":
		return EventTransferFailed
	default:
		return EventUnknown
	}
}

func (k EventKind) String() string {
	switch k {
	case EventChargeSuccess:
		return "charge.success"
	case EventChargeFailed:
		return "charge.failed"
	case EventChargeDispute:
		return "charge.dispute.create"
	case EventTransferSuccess:
		return "transfer.success"
	case EventTransferFailed:
		return "transfer.failed"
	default:
		return "unknown"
	}
}

/* ===================== Envelope ===================== */

type WebhookData struct {
	// ID event di sisi provider; numerik atau string, dinormalkan ke string.
	ID        json.Number `json:"id"`
	Reference string      `json:"reference"`
	// Amount satuan minor.
	Amount        int64           `json:"amount"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Channel       string          `json:"channel"`
	PaidAt        string          `json:"paid_at"`
	Authorization json.RawMessage `json:"authorization,omitempty"`
	Customer      json.RawMessage `json:"customer,omitempty"`
}

type WebhookEnvelope struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

func (e *WebhookEnvelope) Kind() EventKind { return ParseEventKind(e.Event) }

func (e *WebhookEnvelope) ProviderEventID() string { return e.Data.ID.String() }

// Valid: envelope minimal yang bisa diproses (bukan validasi bisnis).
func (e *WebhookEnvelope) Valid() bool {
	return e.Event != "" && e.Data.Reference != ""
}
