package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agendasalud/payment-service/internal/usecase"
)

// WebhookHandler receives MercadoPago webhook notifications. It always
// answers 200: MercadoPago retries non-2xx responses, and a permanently
// failing delivery would be redelivered forever. Failures are recorded
// in the outcome body and the audit ledger instead.
type WebhookHandler struct {
	webhooks *usecase.WebhookService
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks *usecase.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		logger:   logger,
	}
}

// HandleWebhook processes POST /webhook/mercadopago
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	var env usecase.WebhookEnvelope
	if err := c.Bind(&env); err != nil {
		h.logger.Error("Failed to parse webhook body", zap.Error(err))
		return c.JSON(http.StatusOK, usecase.Outcome{
			Success: false,
			Error:   "invalid webhook body",
		})
	}

	// MercadoPago also sends ids via query params on some topics
	if env.Data.ID == "" {
		env.Data.ID = c.QueryParam("data.id")
	}
	if env.Type == "" {
		env.Type = c.QueryParam("type")
	}

	headers := make(map[string]string)
	for name, values := range c.Request().Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	h.logger.Info("Webhook received",
		zap.String("type", env.Type),
		zap.String("action", env.Action),
		zap.String("data_id", env.Data.ID))

	outcome := h.webhooks.Handle(c.Request().Context(), env, headers)

	return c.JSON(http.StatusOK, outcome)
}
