package repository

import (
	"context"

	"github.com/agendasalud/payment-service/internal/domain/model"
)

// WebhookEventRepository is the audit ledger and idempotency gate for
// webhook deliveries.
type WebhookEventRepository interface {
	// RecordIfNew atomically inserts the event keyed by
	// (payment_id, request_id). When a row for that pair already exists
	// it is returned with isNew=false and nothing is written; callers
	// must then skip all side effects.
	RecordIfNew(ctx context.Context, event *model.WebhookEvent) (existing *model.WebhookEvent, isNew bool, err error)

	// MarkProcessed finalizes the event with a success outcome.
	MarkProcessed(ctx context.Context, id int64, response model.JSONB) error

	// MarkFailed finalizes the event with a failure outcome.
	MarkFailed(ctx context.Context, id int64, errorMessage string, response model.JSONB) error
}
